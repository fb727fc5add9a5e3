package xconf

import "github.com/knadh/koanf/v2"

// Format 配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置接口。基础读取操作直接使用 Client() 返回的 koanf 实例。
type Config interface {
	// Client 返回底层 koanf 实例。Reload 后返回新实例。
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的配置反序列化到 target，path 为空表示整个配置。
	// target 中配置未出现的字段保持原值。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件，并发安全。非文件配置返回 ErrNotFileBacked。
	Reload() error

	// Path 返回配置文件路径，非文件配置返回空字符串。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// Decode 加载 path 并反序列化到以 defaults 为初值的 T。
//
// 返回的 Config 可用于后续 Reload/Watch。
func Decode[T any](path string, defaults T, opts ...Option) (T, Config, error) {
	cfg, err := New(path, opts...)
	if err != nil {
		return defaults, nil, err
	}
	out := defaults
	if err := cfg.Unmarshal("", &out); err != nil {
		return defaults, nil, err
	}
	return out, cfg, nil
}
