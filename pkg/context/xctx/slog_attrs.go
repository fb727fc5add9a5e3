package xctx

import (
	"context"
	"log/slog"
)

// AppendTraceAttrs 将 context 中的追踪字段追加到 attrs，只追加非空字段。
// 传入预分配的切片可避免热路径分配。
func AppendTraceAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	if v := TraceID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceID, v))
	}
	if v := SpanID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeySpanID, v))
	}
	if v := TraceFlags(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceFlags, v))
	}
	return attrs
}

// AppendPipelineAttrs 将 context 中的 service/operation 追加到 attrs。
func AppendPipelineAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	if v := Service(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyService, v))
	}
	if v := Operation(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyOperation, v))
	}
	return attrs
}

// LogAttrs 返回 context 中全部非空字段，均为空时返回 nil。
func LogAttrs(ctx context.Context) []slog.Attr {
	attrs := AppendPipelineAttrs(AppendTraceAttrs(make([]slog.Attr, 0, 5), ctx), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
