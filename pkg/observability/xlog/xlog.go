package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口。
//
// 所有方法都需要 context.Context 参数，确保追踪信息正确传播。
// 只接受 slog.Attr，避免隐式 key-value 转换。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger，派生 logger 共享级别。
	With(attrs ...slog.Attr) Logger
}

// Leveler 级别控制接口，与 Logger 分离，避免污染核心日志接口。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 组合接口，Build 返回此接口。
type LoggerWithLevel interface {
	Logger
	Leveler
}
