// Package xprop 提供追踪上下文在请求/响应头之间的编解码能力。
//
// # 设计理念
//
// xprop 是纯函数层，不维护状态：
//   - [Carrier] 抽象可变的头部映射（大小写不敏感），兼容 OTel propagation.TextMapCarrier
//   - [TraceContext] 是 Absent | Present 的标签变体，零值即 Absent
//   - [Codec] 负责 Extract/Inject，默认实现 [W3C]，tracestate 解析基于 OTel trace.ParseTraceState
//
// # 载体
//
//   - [Header]: 扁平的 map[string]string，key 统一小写
//   - [HTTPHeader]: 原地包装 net/http.Header
//   - [MetadataCarrier]: 原地包装 gRPC metadata.MD
//
// # 修改契约
//
// Inject 原地修改传入的 Carrier，不返回副本：
//   - Present：写入规范化的 traceparent，tracestate 非空时一并写入，覆盖已有值
//   - Absent：删除 traceparent 和 tracestate
//
// Extract 遇到缺失或格式错误的 traceparent 一律返回 Absent，不 panic。
//
// # 规范形式
//
// traceparent 规范形式为 version 00、小写十六进制：
//
//	00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
//
// trace-flags 的 8 位全部保留（不只是 sampled 位），父上下文恢复时逐字节一致。
// 未知的更高版本按 W3C 前向兼容规则解析后以 00 版本重新生成。
// [CanonicalKey] 与 [W3C] 共用同一解析路径，保证读回的 key 与 Extract 结果一致。
package xprop
