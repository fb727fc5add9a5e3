package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key。
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyKey       = "key"
)

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建人类可读的耗时属性（如 "1m30s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Count 创建计数属性。
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Component 创建组件名属性。
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Key 创建关联键属性。
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}
