package xctx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Trace 字段
// =============================================================================

// WithTraceID 将 trace ID 注入 context。
func WithTraceID(ctx context.Context, traceID string) (context.Context, error) {
	return withString(ctx, keyTraceID, traceID)
}

// TraceID 从 context 提取 trace ID，不存在返回空字符串。
func TraceID(ctx context.Context) string {
	return stringValue(ctx, keyTraceID)
}

// WithSpanID 将 span ID 注入 context。
func WithSpanID(ctx context.Context, spanID string) (context.Context, error) {
	return withString(ctx, keySpanID, spanID)
}

// SpanID 从 context 提取 span ID，不存在返回空字符串。
func SpanID(ctx context.Context) string {
	return stringValue(ctx, keySpanID)
}

// WithTraceFlags 将 W3C trace-flags 注入 context（如 "01"）。
func WithTraceFlags(ctx context.Context, flags string) (context.Context, error) {
	return withString(ctx, keyTraceFlags, flags)
}

// TraceFlags 从 context 提取 trace-flags，不存在返回空字符串。
func TraceFlags(ctx context.Context) string {
	return stringValue(ctx, keyTraceFlags)
}

// WithSpanContext 将 OTel SpanContext 的 trace_id/span_id/trace_flags 同步到 context。
//
// 无效的 SpanContext 不做任何修改，原样返回 ctx。
// trace-flags 以 2 位小写十六进制写入，与 traceparent 中的表示一致。
func WithSpanContext(ctx context.Context, sc trace.SpanContext) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if !sc.IsValid() {
		return ctx, nil
	}
	ctx = context.WithValue(ctx, keyTraceID, sc.TraceID().String())
	ctx = context.WithValue(ctx, keySpanID, sc.SpanID().String())
	ctx = context.WithValue(ctx, keyTraceFlags, sc.TraceFlags().String())
	return ctx, nil
}
