package xspan_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/omeyang/xspan/pkg/observability/xlog"
	"github.com/omeyang/xspan/pkg/observability/xspan"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	parentTP = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	parentTS = "congo=t61rcWkgMzE"
)

// syncBuffer 并发安全的日志缓冲区。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// harness 测试用的引擎与内存后端。
type harness struct {
	engine   *xspan.Engine
	exporter *tracetest.InMemoryExporter
	tp       *sdktrace.TracerProvider
	reader   *sdkmetric.ManualReader
	logs     *syncBuffer
}

func newHarness(t *testing.T, opts ...xspan.Option) *harness {
	t.Helper()
	h := newHarnessNotReady(t, opts...)
	h.engine.SetTracerProvider(h.tp)
	require.True(t, h.engine.Ready())
	return h
}

func newHarnessNotReady(t *testing.T, opts ...xspan.Option) *harness {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	logs := &syncBuffer{}
	logger, cleanup, err := xlog.New().SetOutput(logs).SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)

	base := []xspan.Option{xspan.WithMeterProvider(mp), xspan.WithLogger(logger)}
	engine, err := xspan.New(append(base, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = engine.Close()
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = cleanup()
	})
	return &harness{engine: engine, exporter: exporter, tp: tp, reader: reader, logs: logs}
}

// metric 返回指定名称的指标数据，不存在返回 nil。
func (h *harness) metric(t *testing.T, name string) metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	return nil
}

// counter 返回计数器在给定属性集上的累计值。
func (h *harness) counter(t *testing.T, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := h.metric(t, name).(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func (h *harness) gauge(t *testing.T, name string) int64 {
	t.Helper()
	g, ok := h.metric(t, name).(metricdata.Gauge[int64])
	require.True(t, ok, "gauge %s not found", name)
	require.Len(t, g.DataPoints, 1)
	return g.DataPoints[0].Value
}

func kind(k string) attribute.KeyValue {
	return attribute.String(xspan.AttrKind, k)
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}
