package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，底层即 slog.Level。
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// String 使用 slog 的表示：DEBUG/INFO/WARN/ERROR，非标准级别形如 "INFO+2"。
// 输出可被 ParseLevel 原样解析。
func (l Level) String() string {
	return slog.Level(l).String()
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 使配置文件可以直接反序列化为 Level。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析日志级别，大小写不敏感，忽略首尾空白。
//
// 接受 slog 的全部写法（"debug"、"INFO+2"、"error-1"），另外兼容 "warning"。
// 热加载时配置文件里的级别原样经过这里，失败返回 ErrUnknownLevel。
func ParseLevel(s string) (Level, error) {
	name := strings.TrimSpace(s)
	if strings.EqualFold(name, "warning") {
		return LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return Level(l), nil
}
