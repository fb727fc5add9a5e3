package xprop

import (
	"go.opentelemetry.io/otel/trace"
)

// Codec 追踪上下文编解码器。
//
// 实现必须是纯函数：无内部状态，可被任意 goroutine 并发调用。
type Codec interface {
	// Extract 从 Carrier 读取追踪上下文。缺失或格式错误返回 Absent。
	Extract(carrier Carrier) TraceContext

	// Inject 原地写入 Carrier。Present 覆盖已有值；Absent 删除传播头。
	Inject(carrier Carrier, tc TraceContext)
}

// w3cCodec W3C Trace Context 编解码器。
//
// traceparent 自行解析以保留完整的 trace-flags；
// tracestate 交给 OTel trace.ParseTraceState。
type w3cCodec struct{}

// 编译时接口检查
var _ Codec = w3cCodec{}

// W3C 返回 W3C Trace Context 编解码器（traceparent + tracestate）。
func W3C() Codec {
	return w3cCodec{}
}

// Extract 实现 [Codec]。
func (c w3cCodec) Extract(carrier Carrier) TraceContext {
	if carrier == nil {
		return TraceContext{}
	}
	traceID, spanID, flags, ok := parseTraceparent(carrier.Get(HeaderTraceparent))
	if !ok {
		return TraceContext{}
	}
	cfg := trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}
	// 非法 tracestate 只丢弃 tracestate 本身，traceparent 仍然有效。
	if ts, err := trace.ParseTraceState(carrier.Get(HeaderTracestate)); err == nil {
		cfg.TraceState = ts
	}
	return Present(trace.NewSpanContext(cfg))
}

// Inject 实现 [Codec]。
//
// 写入前先清除旧的传播头：新上下文没有 tracestate 时，
// 不能残留上一跳的 tracestate。
func (c w3cCodec) Inject(carrier Carrier, tc TraceContext) {
	if carrier == nil {
		return
	}
	carrier.Del(HeaderTraceparent)
	carrier.Del(HeaderTracestate)
	if !tc.IsPresent() {
		return
	}
	carrier.Set(HeaderTraceparent, tc.Traceparent())
	if ts := tc.Tracestate(); ts != "" {
		carrier.Set(HeaderTracestate, ts)
	}
}

// CanonicalKey 把 traceparent 头部值规范化为注册表 key。
//
// 与 [W3C] 的 Extract 共用同一解析路径，返回值等于 Extract 结果的
// [TraceContext.Traceparent]。无效值返回 ("", false)。
func CanonicalKey(traceparent string) (string, bool) {
	if traceparent == "" {
		return "", false
	}
	tc := W3C().Extract(Header{HeaderTraceparent: traceparent})
	if !tc.IsPresent() {
		return "", false
	}
	return tc.Traceparent(), true
}

// KeyOf 返回 Carrier 中 traceparent 的规范化 key。
func KeyOf(carrier Carrier) (string, bool) {
	if carrier == nil {
		return "", false
	}
	return CanonicalKey(carrier.Get(HeaderTraceparent))
}
