package xprop

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceContext 追踪上下文：Absent | Present(SpanContext)。
//
// 零值为 Absent。Present 只接受有效的 SpanContext，无效值一律视为 Absent，
// 因此不存在"部分填充"的中间状态。
type TraceContext struct {
	sc trace.SpanContext
}

// Absent 返回不携带追踪上下文的 TraceContext。
func Absent() TraceContext {
	return TraceContext{}
}

// Present 由 SpanContext 构造 TraceContext，无效的 SpanContext 返回 Absent。
func Present(sc trace.SpanContext) TraceContext {
	if !sc.IsValid() {
		return TraceContext{}
	}
	return TraceContext{sc: sc}
}

// FromSpan 读取 span 的上下文。nil span 或未记录的 noop span 返回 Absent。
func FromSpan(span trace.Span) TraceContext {
	if span == nil {
		return TraceContext{}
	}
	return Present(span.SpanContext())
}

// FromContext 读取 ctx 中当前 span（本地或远端）的上下文。
func FromContext(ctx context.Context) TraceContext {
	if ctx == nil {
		return TraceContext{}
	}
	return Present(trace.SpanContextFromContext(ctx))
}

// IsPresent 是否携带有效的追踪上下文。
func (c TraceContext) IsPresent() bool {
	return c.sc.IsValid()
}

// SpanContext 返回底层 SpanContext，Absent 时为零值。
func (c TraceContext) SpanContext() trace.SpanContext {
	return c.sc
}

// Traceparent 返回规范形式的 traceparent，Absent 返回空字符串。
//
// 输出 version 00、小写十六进制，trace-flags 原样保留全部 8 位。
func (c TraceContext) Traceparent() string {
	if !c.sc.IsValid() {
		return ""
	}
	return formatTraceparent(c.sc.TraceID(), c.sc.SpanID(), c.sc.TraceFlags())
}

// Tracestate 返回 tracestate 的字符串形式，可能为空。
func (c TraceContext) Tracestate() string {
	return c.sc.TraceState().String()
}

// Equal 比较两个 TraceContext 的 traceparent 与 tracestate。
// 远端标记不参与比较。
func (c TraceContext) Equal(other TraceContext) bool {
	if c.IsPresent() != other.IsPresent() {
		return false
	}
	if !c.IsPresent() {
		return true
	}
	return c.Traceparent() == other.Traceparent() && c.Tracestate() == other.Tracestate()
}

// String 实现 fmt.Stringer，Absent 输出 "<absent>"。
func (c TraceContext) String() string {
	if !c.IsPresent() {
		return "<absent>"
	}
	if ts := c.Tracestate(); ts != "" {
		return c.Traceparent() + ";" + ts
	}
	return c.Traceparent()
}

// ContextWith 把 TraceContext 作为远端父上下文放入 ctx。
// Absent 时清除 ctx 中已有的 span，使后续创建的 span 成为新的根。
func ContextWith(ctx context.Context, tc TraceContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if !tc.IsPresent() {
		return trace.ContextWithSpanContext(ctx, trace.SpanContext{})
	}
	return trace.ContextWithRemoteSpanContext(ctx, tc.sc)
}
