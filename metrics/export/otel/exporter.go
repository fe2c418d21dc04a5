package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/playgate/gatekeeper"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() gatekeeper.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         gatekeeper.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter holds the instrument registration. Close unregisters it.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	counters      []observedCounter
	latencyBucket metric.Int64ObservableGauge
	latencySum    metric.Float64ObservableCounter
	auditDropped  metric.Int64ObservableCounter

	bucketAttrs []metric.ObserveOption
}

// NewExporter registers gatekeeper instruments on meter.
func NewExporter(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	observables := make([]metric.Observable, 0, int(gatekeeper.MetricLoginLatency)+3)

	for id := gatekeeper.MetricID(0); id < gatekeeper.MetricLoginLatency; id++ {
		name := "gatekeeper." + id.String()
		ins, err := meter.Int64ObservableCounter(name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", name, err)
		}
		e.counters = append(e.counters, observedCounter{id: id, instrument: ins})
		observables = append(observables, ins)
	}

	var err error
	e.latencyBucket, err = meter.Int64ObservableGauge("gatekeeper.login_latency.bucket",
		metric.WithDescription("Cumulative login count at or below the le bound in seconds."))
	if err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	e.latencySum, err = meter.Float64ObservableCounter("gatekeeper.login_latency.sum",
		metric.WithDescription("Total login latency."), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create latency sum: %w", err)
	}
	e.auditDropped, err = meter.Int64ObservableCounter("gatekeeper.audit_dropped",
		metric.WithDescription("Audit events dropped due to dispatcher backpressure."))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.latencyBucket, e.latencySum, e.auditDropped)

	for _, bound := range gatekeeper.HistogramBounds {
		le := strconv.FormatFloat(bound.Seconds(), 'g', -1, 64)
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String("le", le)))
	}
	e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String("le", "+Inf")))

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		if v, ok := snapshot.Counters[c.id]; ok {
			o.ObserveInt64(c.instrument, int64(v))
		}
	}

	if raw, ok := snapshot.Histograms[gatekeeper.MetricLoginLatency]; ok {
		var cumulative uint64
		for i, attrs := range e.bucketAttrs {
			if i < len(raw) {
				cumulative += raw[i]
			}
			o.ObserveInt64(e.latencyBucket, int64(cumulative), attrs)
		}
		o.ObserveFloat64(e.latencySum, snapshot.LatencySum.Seconds())
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
