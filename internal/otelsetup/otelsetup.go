package otelsetup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// 支持的导出器。
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
	ExporterNone   = "none"
)

// 默认值。
const (
	DefaultServiceName = "xspand"
	DefaultEndpoint    = "localhost:4317"
)

var (
	// ErrUnknownExporter 导出器名称无法识别。
	ErrUnknownExporter = errors.New("otelsetup: unknown exporter")
	// ErrEmptyEndpoint otlp 导出器缺少 endpoint。
	ErrEmptyEndpoint = errors.New("otelsetup: empty otlp endpoint")
)

// Config Provider 配置。
type Config struct {
	// ServiceName 写入 resource 的 service.name。
	ServiceName string
	// Exporter stdout | otlp | none，空值按 stdout 处理。
	Exporter string
	// Endpoint OTLP/gRPC 地址（host:port）。
	Endpoint string
	// Insecure 为 true 时 OTLP 使用明文连接。
	Insecure bool
	// Writer stdout 导出器的输出目标，nil 使用 os.Stdout。
	Writer io.Writer
}

// Providers 一组已初始化的 Provider。
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider

	once sync.Once
	err  error
}

// New 按配置构建 Provider。
//
// OTLP 导出器惰性建连，New 不会因 Collector 不可达而失败。
func New(ctx context.Context, cfg Config) (*Providers, error) {
	exporter := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if exporter == "" {
		exporter = ExporterStdout
	}
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", name)))
	if err != nil {
		return nil, fmt.Errorf("otelsetup: build resource: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	switch exporter {
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("otelsetup: create stdout exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
	case ExporterOTLP:
		traceExp, metricExp, err := newOTLP(ctx, cfg)
		if err != nil {
			return nil, err
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExp))
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	case ExporterNone:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}

	return &Providers{
		Tracer: sdktrace.NewTracerProvider(traceOpts...),
		Meter:  sdkmetric.NewMeterProvider(meterOpts...),
	}, nil
}

func newOTLP(ctx context.Context, cfg Config) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, nil, ErrEmptyEndpoint
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("otelsetup: create otlp trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, nil, errors.Join(
			fmt.Errorf("otelsetup: create otlp metric exporter: %w", err),
			traceExp.Shutdown(ctx))
	}
	return traceExp, metricExp, nil
}

// Shutdown 刷新并关闭全部 Provider，可重复调用，后续调用返回首次结果。
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.once.Do(func() {
		var errs []error
		if p.Tracer != nil {
			if err := p.Tracer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("otelsetup: shutdown tracer provider: %w", err))
			}
		}
		if p.Meter != nil {
			if err := p.Meter.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("otelsetup: shutdown meter provider: %w", err))
			}
		}
		p.err = errors.Join(errs...)
	})
	return p.err
}
