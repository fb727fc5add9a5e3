// Package xhook 把 xspan.Engine 接入宿主管道。
//
// 提供三种接入方式：
//   - [Chain]：有序的 ingress/egress 处理器列表，[Register] 把引擎的两个钩子挂上去
//   - [HTTPMiddleware]：net/http 中间件，响应头刷出前执行 egress
//   - [GRPCUnaryServerInterceptor]：gRPC 一元拦截器，egress 结果通过 grpc.SetHeader 发送
//
// 钩子只做一件事：解引用引擎并调用 Begin/End。引擎为 nil 或未就绪时钩子为 no-op，
// 管道不会因为追踪未就绪而阻塞或失败。
//
// # 头部修改契约
//
//   - ingress 修改请求头（写入新 span 上下文）和响应头（写入关联 key）
//   - egress 只修改响应头（恢复调用方上下文）
package xhook
