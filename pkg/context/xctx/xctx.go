package xctx

import (
	"context"
	"errors"
)

// 设计决策: contextKey 使用 string 而非 int+iota，
// 包私有类型不会与其他包冲突，字符串值在调试时可读。
type contextKey string

// ErrNilContext 表示传入的 context 为 nil。
var ErrNilContext = errors.New("xctx: nil context")

// 日志属性 Key，遵循 OpenTelemetry 语义约定（下划线分隔）。
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyTraceFlags = "trace_flags"
	KeyService    = "service"
	KeyOperation  = "operation"
)

const (
	keyTraceID    = contextKey("xctx:trace_id")
	keySpanID     = contextKey("xctx:span_id")
	keyTraceFlags = contextKey("xctx:trace_flags")
	keyService    = contextKey("xctx:service")
	keyOperation  = contextKey("xctx:operation")
)

// withString 写入字符串字段，nil ctx 返回 ErrNilContext。
func withString(ctx context.Context, key contextKey, value string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, key, value), nil
}

// stringValue 读取字符串字段，缺失或 nil ctx 返回空字符串。
func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
