package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omeyang/xspan/internal/otelsetup"
	"github.com/omeyang/xspan/pkg/config/xconf"
	"github.com/omeyang/xspan/pkg/context/xctx"
	"github.com/omeyang/xspan/pkg/lifecycle/xrun"
	"github.com/omeyang/xspan/pkg/observability/xlog"
	"github.com/omeyang/xspan/pkg/observability/xprop"
	"github.com/omeyang/xspan/pkg/observability/xspan"
	"github.com/omeyang/xspan/pkg/pipeline/xhook"
)

const readHeaderTimeout = 5 * time.Second

// server 持有 xspand 的全部运行时组件。
type server struct {
	cfg       Config
	logger    xlog.LoggerWithLevel
	engine    *xspan.Engine
	providers *otelsetup.Providers
	registry  *prometheus.Registry
}

// newServer 组装引擎与 OTel Provider。
//
// Provider 在此创建，但 TracerProvider 要等 ready_delay 之后才交给引擎，
// 期间引擎未就绪，请求原样透传。
func newServer(ctx context.Context, cfg Config, logger xlog.LoggerWithLevel, traceOut io.Writer) (*server, error) {
	providers, err := otelsetup.New(ctx, otelsetup.Config{
		ServiceName: cfg.Service.Name,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		Writer:      traceOut,
	})
	if err != nil {
		return nil, err
	}

	engine, err := xspan.New(
		xspan.WithMeterProvider(providers.Meter),
		xspan.WithLogger(logger),
		xspan.WithRootSpanName(cfg.Tracing.RootSpanName),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create engine: %w", err), providers.Shutdown(ctx))
	}

	registry := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		engine.Collector(cfg.Metrics.Namespace),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, errors.Join(fmt.Errorf("register collector: %w", err),
				engine.Close(), providers.Shutdown(ctx))
		}
	}

	return &server{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		providers: providers,
		registry:  registry,
	}, nil
}

// =============================================================================
// HTTP
// =============================================================================

// echoResponse 回显下游看到的上下文。
type echoResponse struct {
	Service     string `json:"service"`
	Operation   string `json:"operation"`
	TraceID     string `json:"trace_id,omitempty"`
	SpanID      string `json:"span_id,omitempty"`
	Traceparent string `json:"traceparent,omitempty"`
}

func (s *server) appHandler() http.Handler {
	middleware := xhook.HTTPMiddleware(s.engine,
		xhook.WithServiceName(s.cfg.Service.Name),
		xhook.WithOperationResolver(echoOperation),
	)

	mux := http.NewServeMux()
	mux.Handle("/echo/{operation}", middleware(http.HandlerFunc(s.echo)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.engine.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *server) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// echoOperation 以路径参数作为 operation，路由未匹配时退回 "METHOD path"。
func echoOperation(r *http.Request) string {
	if op := r.PathValue("operation"); op != "" {
		return op
	}
	return r.Method + " " + r.URL.Path
}

func (s *server) echo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := echoResponse{
		Service:     s.cfg.Service.Name,
		Operation:   r.PathValue("operation"),
		TraceID:     xctx.TraceID(ctx),
		SpanID:      xctx.SpanID(ctx),
		Traceparent: r.Header.Get(xprop.HeaderTraceparent),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn(ctx, "write echo response failed", xlog.Err(err))
	}
}

// =============================================================================
// 任务
// =============================================================================

// tasks 返回交给 xrun 的全部任务。handle 为 nil 时不监视配置文件。
func (s *server) tasks(handle xconf.Config) ([]func(ctx context.Context) error, error) {
	app := &http.Server{
		Addr:              s.cfg.Service.Addr,
		Handler:           s.appHandler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	tasks := []func(ctx context.Context) error{
		xrun.HTTPServer(app, s.cfg.Service.ShutdownTimeout),
		xrun.Timer(s.cfg.Tracing.ReadyDelay, s.enableTracing),
	}

	if s.cfg.Metrics.Addr != "" {
		metrics := &http.Server{
			Addr:              s.cfg.Metrics.Addr,
			Handler:           s.metricsHandler(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		tasks = append(tasks, xrun.HTTPServer(metrics, s.cfg.Service.ShutdownTimeout))
	}

	if s.cfg.Reap.Interval > 0 {
		tasks = append(tasks, xrun.Ticker(s.cfg.Reap.Interval, false, s.reap))
	}

	if handle != nil {
		watcher, err := xconf.Watch(handle, s.onConfigChange)
		if err != nil {
			return nil, fmt.Errorf("watch config: %w", err)
		}
		tasks = append(tasks, watcher.Run)
	}
	return tasks, nil
}

// enableTracing 把 TracerProvider 交给引擎，此后请求开始产生 span。
func (s *server) enableTracing(ctx context.Context) error {
	s.engine.SetTracerProvider(s.providers.Tracer)
	s.logger.Info(ctx, "tracing ready",
		slog.String("exporter", s.cfg.Tracing.Exporter),
		xlog.Duration(s.cfg.Tracing.ReadyDelay))
	return nil
}

// reap 清扫结果由引擎记录日志与指标。
func (s *server) reap(ctx context.Context) error {
	s.engine.ReapStale(ctx, s.cfg.Reap.MaxAge)
	return nil
}

// onConfigChange 只热加载日志级别，其余字段需要重启生效。
func (s *server) onConfigChange(cfg xconf.Config, err error) {
	ctx := context.Background()
	if err != nil {
		s.logger.Warn(ctx, "reload config failed, keeping previous values", xlog.Err(err))
		return
	}
	raw := cfg.Client().String("log.level")
	if raw == "" {
		return
	}
	level, err := xlog.ParseLevel(raw)
	if err != nil {
		s.logger.Warn(ctx, "ignore invalid log level", slog.String("level", raw), xlog.Err(err))
		return
	}
	if level == s.logger.GetLevel() {
		return
	}
	s.logger.SetLevel(level)
	s.logger.Info(ctx, "log level changed", slog.String("level", level.String()))
}

// shutdown 先结束引擎中残留的 span，再刷新导出器。
func (s *server) shutdown(ctx context.Context) error {
	s.engine.Shutdown(ctx)
	return errors.Join(s.providers.Shutdown(ctx), s.engine.Close())
}

// =============================================================================
// 运行
// =============================================================================

func buildLogger(cfg LogConfig) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().SetLevelString(cfg.Level).SetFormat(cfg.Format)
	if cfg.File != "" {
		b = b.SetRotation(cfg.File)
	}
	return b.Build()
}

// serve 运行服务直到 ctx 取消或收到退出信号。退出信号视为正常结束。
func serve(ctx context.Context, cfg Config, handle xconf.Config, logger xlog.LoggerWithLevel, traceOut io.Writer, opts ...xrun.Option) error {
	s, err := newServer(ctx, cfg, logger, traceOut)
	if err != nil {
		return err
	}

	tasks, err := s.tasks(handle)
	if err != nil {
		return errors.Join(err, s.shutdown(context.Background()))
	}

	logger.Info(ctx, "xspand starting",
		slog.String("addr", cfg.Service.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr))

	runOpts := append([]xrun.Option{xrun.WithLogger(logger), xrun.WithName("xspand")}, opts...)
	runErr := xrun.RunWithOptions(ctx, runOpts, tasks...)

	var sigErr *xrun.SignalError
	if errors.As(runErr, &sigErr) {
		logger.Info(ctx, "received signal, shutting down", slog.Any("signal", sigErr.Signal))
		runErr = nil
	}

	sctx, cancel := shutdownContext(cfg.Service.ShutdownTimeout)
	defer cancel()
	shutdownErr := s.shutdown(sctx)
	logger.Info(sctx, "xspand stopped")
	return errors.Join(runErr, shutdownErr)
}

// shutdownContext timeout <= 0 表示不限时。
func shutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
