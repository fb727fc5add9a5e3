package xspan

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/omeyang/xspan/pkg/context/xctx"
	"github.com/omeyang/xspan/pkg/observability/xlog"
	"github.com/omeyang/xspan/pkg/observability/xpending"
	"github.com/omeyang/xspan/pkg/observability/xprop"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// abandonedDescription 未经 egress 被强制结束的 span 状态描述。
const abandonedDescription = "span abandoned: no egress"

// Request 进入管道的请求。Headers 在 Begin 中被原地修改。
type Request struct {
	Service   string
	Operation string
	Headers   xprop.Carrier
}

// Response 离开管道的响应。Headers 在 Begin 中写入关联 key，在 End 中被恢复。
type Response struct {
	Headers xprop.Carrier
}

// Pending 在途 span 条目。Parent 为 Absent 表示根 span。
type Pending struct {
	Span      trace.Span
	Parent    xprop.TraceContext
	Started   time.Time
	Service   string
	Operation string
}

// IsRoot 是否为根 span。
func (p *Pending) IsRoot() bool {
	return !p.Parent.IsPresent()
}

// tracerHandle 包装 trace.Tracer，供 atomic.Pointer 使用。
type tracerHandle struct {
	tracer trace.Tracer
}

// Engine 关联引擎：在请求 ingress 时创建 span，在响应 egress 时结束 span。
//
// 所有方法并发安全，且不会返回影响管道流程的错误，也不会 panic。
// nil *Engine 上调用 Begin/End 为 no-op。
type Engine struct {
	tracer   atomic.Pointer[tracerHandle]
	registry *xpending.Registry[*Pending]
	codec    xprop.Codec
	logger   xlog.Logger
	inst     *instruments
	gauge    metric.Registration

	instrumentationName string
	rootSpanName        string
	spanKind            trace.SpanKind
}

// New 创建关联引擎。
//
// 未通过 [WithTracerProvider] 提供 TracerProvider 时引擎处于未就绪状态。
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	registry, err := xpending.New[*Pending](cfg.registryOpts...)
	if err != nil {
		return nil, err
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	inst, err := newInstruments(meter)
	if err != nil {
		return nil, err
	}
	gauge, err := registry.RegisterGauge(meter, MetricRegistryPending)
	if err != nil {
		return nil, fmt.Errorf("xspan: register pending gauge failed: %w", err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = xlog.Default()
	}

	e := &Engine{
		registry:            registry,
		codec:               cfg.codec,
		logger:              logger.With(xlog.Component("xspan")),
		inst:                inst,
		gauge:               gauge,
		instrumentationName: cfg.instrumentationName,
		rootSpanName:        cfg.rootSpanName,
		spanKind:            cfg.spanKind,
	}
	if cfg.tracerProvider != nil {
		e.SetTracerProvider(cfg.tracerProvider)
	}
	return e, nil
}

// SetTracerProvider 设置 TracerProvider，使引擎就绪。并发安全，可在任意时刻调用。
// 传入 nil 使引擎回到未就绪状态。
func (e *Engine) SetTracerProvider(provider trace.TracerProvider) {
	if e == nil {
		return
	}
	if provider == nil {
		e.tracer.Store(nil)
		return
	}
	tracer := provider.Tracer(e.instrumentationName)
	if tracer == nil {
		e.tracer.Store(nil)
		return
	}
	e.tracer.Store(&tracerHandle{tracer: tracer})
}

// Ready 引擎是否已持有 tracer。
func (e *Engine) Ready() bool {
	return e != nil && e.tracer.Load() != nil
}

// Pending 返回在途 span 数量，用于发现 egress 缺失导致的泄漏。
func (e *Engine) Pending() int {
	if e == nil {
		return 0
	}
	return e.registry.Len()
}

// Stats 返回在途注册表的统计快照。
func (e *Engine) Stats() xpending.Stats {
	if e == nil {
		return xpending.Stats{}
	}
	return e.registry.Stats()
}

// Collector 返回在途注册表的 Prometheus Collector。
// nil 引擎返回不产出任何指标的 Collector。
func (e *Engine) Collector(namespace string) prometheus.Collector {
	if e == nil {
		return emptyCollector{}
	}
	return e.registry.Collector(namespace)
}

// emptyCollector 不描述也不产出指标，注册时按 unchecked collector 处理。
type emptyCollector struct{}

func (emptyCollector) Describe(chan<- *prometheus.Desc) {}
func (emptyCollector) Collect(chan<- prometheus.Metric)  {}

// =============================================================================
// Ingress
// =============================================================================

// Begin 在请求 ingress 时调用。
//
// 以请求头中的追踪上下文为父创建子 span（"<service>.<operation>"），
// 没有有效上下文时创建根 span。随后：
//   - 把新 span 的上下文写入 req.Headers
//   - 从刚写入的 traceparent 读回关联 key 并登记在途条目
//   - resp.Headers 非 nil 时把同一个 key 复制过去，供 End 在响应上找回
//
// 以下情况静默返回原 ctx，且不修改任何头部：引擎未就绪、req 或 req.Headers 为 nil、
// service 或 operation 为空。
//
// 返回的 ctx 携带新 span 以及 xctx 追踪/管道字段，供宿主代码和日志使用。
func (e *Engine) Begin(ctx context.Context, req *Request, resp *Response) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if e == nil {
		return ctx
	}
	handle := e.tracer.Load()
	if handle == nil {
		return ctx
	}
	if req == nil || req.Headers == nil || req.Service == "" || req.Operation == "" {
		return ctx
	}

	parent := e.codec.Extract(req.Headers)
	root := !parent.IsPresent()

	span, err := e.startSpan(ctx, handle.tracer, req, parent)
	if err != nil {
		e.inst.startFailed.Add(ctx, 1, kindOption(root))
		e.logger.Debug(ctx, "span start failed, request proceeds untraced",
			xlog.Err(err), serviceAttr(req.Service), operationAttr(req.Operation))
		return ctx
	}

	e.codec.Inject(req.Headers, xprop.FromSpan(span))

	// key 从实际写入的头部读回，保证与 End 侧的解析路径一致。
	key, ok := xprop.KeyOf(req.Headers)
	if !ok {
		e.safeEnd(span)
		e.codec.Inject(req.Headers, parent)
		e.inst.startFailed.Add(ctx, 1, kindOption(root))
		e.logger.Debug(ctx, "span has no valid context, request proceeds untraced",
			xlog.Err(ErrInvalidKey), serviceAttr(req.Service), operationAttr(req.Operation))
		return ctx
	}

	entry := &Pending{
		Span:      span,
		Parent:    parent,
		Started:   time.Now(),
		Service:   req.Service,
		Operation: req.Operation,
	}
	if replaced := e.registry.Put(key, entry); replaced {
		// 被覆盖的条目无法再被 Pop，其 span 不会结束。
		e.inst.overwritten.Add(ctx, 1, kindOption(root))
		e.logger.Warn(ctx, "pending span overwritten by colliding key",
			xlog.Key(key), serviceAttr(req.Service), operationAttr(req.Operation))
	}
	e.inst.started.Add(ctx, 1, kindOption(root))

	if resp != nil && resp.Headers != nil {
		resp.Headers.Set(xprop.HeaderTraceparent, key)
	}

	ctx = trace.ContextWithSpan(ctx, span)
	if next, err := xctx.WithSpanContext(ctx, span.SpanContext()); err == nil {
		ctx = next
	}
	if next, err := xctx.WithPipeline(ctx, req.Service, req.Operation); err == nil {
		ctx = next
	}
	return ctx
}

// startSpan 创建根 span 或子 span。
//
// 追踪后端在 Start 中 panic 时恢复并返回 ErrSpanStart，与未就绪同等处理。
func (e *Engine) startSpan(ctx context.Context, tracer trace.Tracer, req *Request, parent xprop.TraceContext) (span trace.Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			span = nil
			err = fmt.Errorf("%w: %v", ErrSpanStart, r)
		}
	}()

	root := !parent.IsPresent()
	name := e.rootSpanName
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(e.spanKind),
		trace.WithAttributes(
			attribute.String(AttrService, req.Service),
			attribute.String(AttrOperation, req.Operation),
			attribute.Bool(AttrRoot, root),
		),
	}
	if root {
		opts = append(opts, trace.WithNewRoot())
	} else {
		name = req.Service + "." + req.Operation
		ctx = xprop.ContextWith(ctx, parent)
	}

	_, span = tracer.Start(ctx, name, opts...)
	if span == nil {
		return nil, fmt.Errorf("%w: backend returned nil span", ErrSpanStart)
	}
	return span, nil
}

// =============================================================================
// Egress
// =============================================================================

// End 在响应 egress 时调用。
//
// 从 resp.Headers 读取关联 key 并原子地取出在途条目；取到后结束 span，
// 并把调用方原始的追踪上下文恢复到 resp.Headers（根 span 时清除传播头）。
//
// 以下情况静默返回：引擎未就绪、req 为 nil、resp 或 resp.Headers 为 nil。
// 响应上没有追踪上下文时记录 warn；key 未登记（重复 egress 或重试路径）时
// 记录 debug，两者都不修改响应。
func (e *Engine) End(ctx context.Context, req *Request, resp *Response) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e == nil || e.tracer.Load() == nil {
		return
	}
	if req == nil || resp == nil || resp.Headers == nil {
		return
	}

	if tc := e.codec.Extract(resp.Headers); !tc.IsPresent() {
		e.inst.missingContext.Add(ctx, 1)
		e.logger.Warn(ctx, "no trace context on response, no span to close",
			serviceAttr(req.Service), operationAttr(req.Operation))
		return
	}

	key, ok := xprop.KeyOf(resp.Headers)
	if !ok {
		e.inst.unmatched.Add(ctx, 1)
		e.logger.Debug(ctx, "response trace context has no usable key",
			serviceAttr(req.Service), operationAttr(req.Operation))
		return
	}

	entry, ok := e.registry.Pop(key)
	if !ok {
		e.inst.unmatched.Add(ctx, 1)
		e.logger.Debug(ctx, "no pending span for key", xlog.Key(key))
		return
	}

	e.retire(ctx, entry, false)
	e.codec.Inject(resp.Headers, entry.Parent)
}

// =============================================================================
// Teardown
// =============================================================================

// ReapStale 结束在途时间超过 maxAge 的 span，返回结束的数量。
//
// 被结束的 span 标记为错误状态与 xspan.abandoned=true。
// 引擎不会自行调用 ReapStale，由宿主显式调度。maxAge <= 0 时不做任何事。
func (e *Engine) ReapStale(ctx context.Context, maxAge time.Duration) int {
	if e == nil || maxAge <= 0 {
		return 0
	}
	if ctx == nil {
		ctx = context.Background()
	}
	stale := e.registry.Sweep(time.Now().Add(-maxAge), func(p *Pending) time.Time { return p.Started })
	for _, p := range stale {
		e.retire(ctx, p, true)
	}
	if len(stale) > 0 {
		e.logger.Warn(ctx, "reaped stale pending spans", xlog.Count(len(stale)), xlog.Duration(maxAge))
	}
	return len(stale)
}

// Shutdown 使引擎回到未就绪状态，结束全部在途 span（标记为 abandoned），返回结束的数量。
//
// Shutdown 之后 Begin/End 为 no-op；再次 SetTracerProvider 可恢复使用。
// 调用方应在 Shutdown 之后再刷新/关闭 TracerProvider，使被结束的 span 得以导出。
func (e *Engine) Shutdown(ctx context.Context) int {
	if e == nil {
		return 0
	}
	if ctx == nil {
		ctx = context.Background()
	}
	e.tracer.Store(nil)

	leaked := e.registry.Drain()
	for _, p := range leaked {
		e.retire(ctx, p, true)
	}
	if len(leaked) > 0 {
		e.logger.Warn(ctx, "pending spans abandoned at shutdown", xlog.Count(len(leaked)))
	}
	return len(leaked)
}

// Close 注销 pending gauge 的回调。引擎不再使用时调用。
func (e *Engine) Close() error {
	if e == nil || e.gauge == nil {
		return nil
	}
	return e.gauge.Unregister()
}

// retire 结束条目中的 span 并记录指标。
func (e *Engine) retire(ctx context.Context, p *Pending, abandoned bool) {
	if abandoned {
		e.markAbandoned(p.Span)
	}
	e.safeEnd(p.Span)
	e.inst.recordRetired(ctx, p.IsRoot(), abandoned, time.Since(p.Started))
}

func (e *Engine) markAbandoned(span trace.Span) {
	defer e.recoverBackend("mark abandoned")
	span.SetStatus(codes.Error, abandonedDescription)
	span.SetAttributes(attribute.Bool(AttrAbandoned, true))
}

// safeEnd 结束 span，追踪后端 panic 时仅记录日志。
func (e *Engine) safeEnd(span trace.Span) {
	defer e.recoverBackend("end span")
	span.End()
}

func (e *Engine) recoverBackend(op string) {
	if r := recover(); r != nil {
		e.logger.Error(context.Background(), "tracing backend panicked",
			slog.String("op", op), slog.Any("panic", r))
	}
}

func serviceAttr(s string) slog.Attr   { return slog.String(xctx.KeyService, s) }
func operationAttr(s string) slog.Attr { return slog.String(xctx.KeyOperation, s) }
