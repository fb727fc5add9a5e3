package xpending

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
)

// =============================================================================
// OTel
// =============================================================================

// RegisterGauge 注册一个 OTel Int64ObservableGauge，采集时报告 Len()。
//
// 返回的 Registration 用于注销回调；注册表销毁前应调用 Unregister。
func (r *Registry[V]) RegisterGauge(meter metric.Meter, name string) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	gauge, err := meter.Int64ObservableGauge(name,
		metric.WithDescription("Number of pending entries awaiting retirement"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, int64(r.Len()))
		return nil
	}, gauge)
}

// =============================================================================
// Prometheus
// =============================================================================

// collector 把 Stats 暴露为 Prometheus 指标，每次 Collect 读取一次快照。
type collector[V any] struct {
	reg *Registry[V]

	pending    *prometheus.Desc
	puts       *prometheus.Desc
	pops       *prometheus.Desc
	misses     *prometheus.Desc
	overwrites *prometheus.Desc
}

// 编译时接口检查
var _ prometheus.Collector = (*collector[int])(nil)

// Collector 返回注册表的 Prometheus Collector。
//
// 指标（namespace 为空时省略前缀）：
//   - <ns>_pending_entries（gauge）
//   - <ns>_registry_puts_total / _pops_total / _misses_total / _overwrites_total（counter）
func (r *Registry[V]) Collector(namespace string) prometheus.Collector {
	ns := strings.TrimSpace(namespace)
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(ns, "", name), help, nil, nil)
	}
	return &collector[V]{
		reg:        r,
		pending:    desc("pending_entries", "Number of pending entries awaiting retirement."),
		puts:       desc("registry_puts_total", "Total entries inserted into the registry."),
		pops:       desc("registry_pops_total", "Total entries retired from the registry."),
		misses:     desc("registry_misses_total", "Total pops that found no entry."),
		overwrites: desc("registry_overwrites_total", "Total inserts that replaced an existing entry."),
	}
}

func (c *collector[V]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pending
	ch <- c.puts
	ch <- c.pops
	ch <- c.misses
	ch <- c.overwrites
}

func (c *collector[V]) Collect(ch chan<- prometheus.Metric) {
	st := c.reg.Stats()
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(st.Pending))
	ch <- prometheus.MustNewConstMetric(c.puts, prometheus.CounterValue, float64(st.Puts))
	ch <- prometheus.MustNewConstMetric(c.pops, prometheus.CounterValue, float64(st.Pops))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.overwrites, prometheus.CounterValue, float64(st.Overwrites))
}
