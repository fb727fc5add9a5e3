// Package xspan 把分布式追踪 span 挂到穿过请求/响应管道的请求上，
// 并在对应响应离开管道时结束该 span。
//
// # 协议
//
// ingress（[Engine.Begin]）：
//  1. 从请求头提取父上下文
//  2. 有父上下文时创建子 span "<service>.<operation>"，否则创建根 span "root"
//  3. 把新 span 的上下文注入请求头，供下游使用
//  4. 从刚写入的 traceparent 读回关联 key，登记 (span, 父上下文)
//  5. 把同一个 key 复制到响应头
//
// egress（[Engine.End]）：
//  1. 从响应头读取关联 key
//  2. 原子地取出在途条目（同一 key 至多一次）
//  3. 结束 span
//  4. 把父上下文恢复到响应头；根 span 时清除传播头
//
// 以响应头为 key 来源，请求对象在 egress 时不必仍可访问。
//
// # 就绪
//
// 追踪后端可能晚于管道初始化。Engine 在拿到 TracerProvider 之前处于未就绪状态，
// Begin/End 不修改任何头部，直接返回。[Engine.SetTracerProvider] 可在任意时刻调用。
// 追踪后端在创建 span 时 panic 按未就绪处理，请求不带追踪继续。
//
// # 泄漏
//
// 没有对应 egress 的 span 会一直留在注册表中。通过 xspan.registry.pending 指标、
// [Engine.Pending] 或 [Engine.Collector] 观测。引擎不会自行清理：
// 需要限制陈旧条目时由宿主显式调度 [Engine.ReapStale]；进程退出前调用 [Engine.Shutdown]。
//
// # 已知限制
//
// 关联 key 依赖后端为每个 span 生成新的 span id。使用 noop 等不生成新 id 的
// TracerProvider 时，同一父上下文下的并发请求会得到相同的 key，后写入的条目覆盖先写入的，
// 覆盖计入 xspan.registry.overwritten。
package xspan
