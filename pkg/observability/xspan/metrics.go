package xspan

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称。
const (
	MetricSpansStarted         = "xspan.spans.started"
	MetricSpansFinished        = "xspan.spans.finished"
	MetricSpansAbandoned       = "xspan.spans.abandoned"
	MetricSpansStartFailed     = "xspan.spans.start_failed"
	MetricEgressMissingContext = "xspan.egress.missing_context"
	MetricEgressUnmatched      = "xspan.egress.unmatched"
	MetricRegistryOverwritten  = "xspan.registry.overwritten"
	MetricRegistryPending      = "xspan.registry.pending"
	MetricPendingDuration      = "xspan.span.pending_duration"
)

// 指标与 span 属性键。
const (
	AttrKind      = "kind"
	AttrService   = "service.name"
	AttrOperation = "operation.name"
	AttrRoot      = "xspan.root"
	AttrAbandoned = "xspan.abandoned"
)

const (
	kindRoot  = "root"
	kindChild = "child"
)

var (
	rootAttrs  = metric.WithAttributeSet(attribute.NewSet(attribute.String(AttrKind, kindRoot)))
	childAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String(AttrKind, kindChild)))
)

func kindOption(root bool) metric.MeasurementOption {
	if root {
		return rootAttrs
	}
	return childAttrs
}

// instruments Engine 使用的 OTel 指标。
type instruments struct {
	started         metric.Int64Counter
	finished        metric.Int64Counter
	abandoned       metric.Int64Counter
	startFailed     metric.Int64Counter
	missingContext  metric.Int64Counter
	unmatched       metric.Int64Counter
	overwritten     metric.Int64Counter
	pendingDuration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	counter := func(name, desc string) (metric.Int64Counter, error) {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{span}"))
		if err != nil {
			return nil, fmt.Errorf("xspan: create counter %s failed: %w", name, err)
		}
		return c, nil
	}

	var (
		inst instruments
		err  error
	)
	if inst.started, err = counter(MetricSpansStarted, "spans started at ingress"); err != nil {
		return nil, err
	}
	if inst.finished, err = counter(MetricSpansFinished, "spans retired at egress"); err != nil {
		return nil, err
	}
	if inst.abandoned, err = counter(MetricSpansAbandoned, "pending spans ended without egress"); err != nil {
		return nil, err
	}
	if inst.startFailed, err = counter(MetricSpansStartFailed, "ingress requests left untraced by a backend failure"); err != nil {
		return nil, err
	}
	if inst.missingContext, err = counter(MetricEgressMissingContext, "responses without trace context at egress"); err != nil {
		return nil, err
	}
	if inst.unmatched, err = counter(MetricEgressUnmatched, "egress keys with no pending span"); err != nil {
		return nil, err
	}
	if inst.overwritten, err = counter(MetricRegistryOverwritten, "pending spans replaced by a colliding key"); err != nil {
		return nil, err
	}

	inst.pendingDuration, err = meter.Float64Histogram(
		MetricPendingDuration,
		metric.WithDescription("time a span spent pending between ingress and retirement"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("xspan: create histogram %s failed: %w", MetricPendingDuration, err)
	}
	return &inst, nil
}

func (i *instruments) recordRetired(ctx context.Context, root, abandoned bool, pending time.Duration) {
	opt := kindOption(root)
	if abandoned {
		i.abandoned.Add(ctx, 1, opt)
	} else {
		i.finished.Add(ctx, 1, opt)
	}
	i.pendingDuration.Record(ctx, pending.Seconds(), opt)
}
