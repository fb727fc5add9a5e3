package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xspan/internal/otelsetup"
	"github.com/omeyang/xspan/pkg/config/xconf"
	"github.com/omeyang/xspan/pkg/observability/xspan"
)

// Config xspand 配置，对应配置文件顶层结构。
type Config struct {
	Service ServiceConfig `koanf:"service"`
	Log     LogConfig     `koanf:"log"`
	Tracing TracingConfig `koanf:"tracing"`
	Reap    ReapConfig    `koanf:"reap"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServiceConfig 业务 HTTP 服务。
type ServiceConfig struct {
	Name            string        `koanf:"name"`
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig 日志。File 非空时输出到轮转文件。
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// TracingConfig 追踪后端。
type TracingConfig struct {
	Exporter     string        `koanf:"exporter"`
	Endpoint     string        `koanf:"endpoint"`
	Insecure     bool          `koanf:"insecure"`
	ReadyDelay   time.Duration `koanf:"ready_delay"`
	RootSpanName string        `koanf:"root_span_name"`
}

// ReapConfig 过期 span 清扫，Interval 为 0 表示关闭。
type ReapConfig struct {
	Interval time.Duration `koanf:"interval"`
	MaxAge   time.Duration `koanf:"max_age"`
}

// MetricsConfig Prometheus 暴露端点。Addr 为空时不启动。
type MetricsConfig struct {
	Addr      string `koanf:"addr"`
	Namespace string `koanf:"namespace"`
}

var (
	errEmptyServiceAddr = errors.New("service.addr must not be empty")
	errInvalidReap      = errors.New("reap.max_age must be positive when reap.interval is set")
	errNegativeDelay    = errors.New("tracing.ready_delay must not be negative")
)

func defaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			Name:            otelsetup.DefaultServiceName,
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Exporter:     otelsetup.ExporterStdout,
			Endpoint:     otelsetup.DefaultEndpoint,
			Insecure:     true,
			RootSpanName: xspan.DefaultRootSpanName,
		},
		Reap: ReapConfig{
			MaxAge: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Addr:      ":9090",
			Namespace: "xspan",
		},
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Service.Addr) == "" {
		return errEmptyServiceAddr
	}
	if c.Reap.Interval > 0 && c.Reap.MaxAge <= 0 {
		return errInvalidReap
	}
	if c.Tracing.ReadyDelay < 0 {
		return errNegativeDelay
	}
	return nil
}

// loadConfig 读取配置文件，未出现的字段取默认值。
// 返回的 xconf.Config 供后续热加载使用。
func loadConfig(path string) (Config, xconf.Config, error) {
	cfg, handle, err := xconf.Decode(path, defaultConfig())
	if err != nil {
		return Config{}, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, handle, nil
}
