package xspan

import (
	"github.com/omeyang/xspan/pkg/observability/xlog"
	"github.com/omeyang/xspan/pkg/observability/xpending"
	"github.com/omeyang/xspan/pkg/observability/xprop"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultInstrumentationName 默认 instrumentation scope 名称。
	DefaultInstrumentationName = "github.com/omeyang/xspan/pkg/observability/xspan"

	// DefaultRootSpanName 无父上下文时创建的根 span 名称。
	DefaultRootSpanName = "root"
)

// Option 定义 Engine 的配置选项。
type Option func(*config)

type config struct {
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
	codec               xprop.Codec
	logger              xlog.Logger
	instrumentationName string
	rootSpanName        string
	spanKind            trace.SpanKind
	registryOpts        []xpending.Option
}

func defaultConfig() config {
	return config{
		meterProvider:       otel.GetMeterProvider(),
		codec:               xprop.W3C(),
		instrumentationName: DefaultInstrumentationName,
		rootSpanName:        DefaultRootSpanName,
		spanKind:            trace.SpanKindServer,
	}
}

func (c *config) validate() error {
	if c.rootSpanName == "" {
		return ErrEmptyRootSpanName
	}
	if c.spanKind < trace.SpanKindInternal || c.spanKind > trace.SpanKindConsumer {
		return ErrInvalidSpanKind
	}
	return nil
}

// WithTracerProvider 设置 TracerProvider，Engine 创建后即就绪。
//
// 不设置时 Engine 处于未就绪状态，Begin/End 均为 no-op，
// 直到调用 [Engine.SetTracerProvider]。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 otel.GetMeterProvider()。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		if provider != nil {
			c.meterProvider = provider
		}
	}
}

// WithCodec 设置上下文编解码器，默认 [xprop.W3C]。
func WithCodec(codec xprop.Codec) Option {
	return func(c *config) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithLogger 设置日志记录器，默认使用 xlog 全局 Logger。
func WithLogger(logger xlog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInstrumentationName 设置 tracer/meter 的 instrumentation scope 名称。
func WithInstrumentationName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.instrumentationName = name
		}
	}
}

// WithRootSpanName 设置根 span 名称，默认 "root"。空字符串使 New 返回错误。
func WithRootSpanName(name string) Option {
	return func(c *config) {
		c.rootSpanName = name
	}
}

// WithSpanKind 设置 span kind，默认 trace.SpanKindServer。
func WithSpanKind(kind trace.SpanKind) Option {
	return func(c *config) {
		c.spanKind = kind
	}
}

// WithShardCount 设置在途注册表的分片数量，规则同 [xpending.WithShardCount]。
func WithShardCount(n int) Option {
	return func(c *config) {
		c.registryOpts = append(c.registryOpts, xpending.WithShardCount(n))
	}
}
