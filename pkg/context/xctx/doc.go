// Package xctx 提供请求链路字段在 context 中的存取能力。
//
// 字段分两组：
//
// 追踪信息（Trace）：
//   - trace_id    : 追踪标识（W3C 规范，128-bit，32 位小写十六进制）
//   - span_id     : 跨度标识（W3C 规范，64-bit，16 位小写十六进制）
//   - trace_flags : 追踪标志（W3C trace-flags，如 "01" 表示已采样）
//
// 管道信息（Pipeline）：
//   - service   : 当前请求所属服务名
//   - operation : 当前请求的操作名
//
// # 命名约定
//
//	WithXxx(ctx, value) - 注入：将 value 写入 context，nil ctx 返回 ErrNilContext
//	Xxx(ctx)            - 读取：缺失时返回零值
//	WithSpanContext     - 从 OTel SpanContext 批量同步追踪字段
//
// xctx 是纯粹的存取层，不做格式校验。校验在 xprop（传输层）完成。
// 日志系统通过 AppendTraceAttrs/AppendPipelineAttrs 提取字段，见 xlog.EnrichHandler。
package xctx
