package prometheus

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playgate/gatekeeper"
)

const namespace = "gatekeeper"

type metricsSource interface {
	MetricsSnapshot() gatekeeper.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   gatekeeper.MetricID
	desc *prom.Desc
}

var counterHelp = map[gatekeeper.MetricID]string{
	gatekeeper.MetricLoginSuccess:     "Logins that issued a session token.",
	gatekeeper.MetricLoginFailure:     "Logins rejected for invalid credentials, bad requests or backend failures.",
	gatekeeper.MetricLoginRateLimited: "Logins rejected by the failed-login throttle.",
	gatekeeper.MetricLoginBanned:      "Logins rejected because the account is banned.",
	gatekeeper.MetricIdentityRejected: "Logins rejected for a missing external identity link.",
	gatekeeper.MetricTokenFallback:    "Presented session tokens that were rejected before password authentication.",
	gatekeeper.MetricSessionIssued:    "Session tokens written to the session store.",
	gatekeeper.MetricPasswordUpgraded: "Password hashes upgraded during login.",
}

// Exporter is a prometheus.Collector over engine counters. It reads a
// snapshot on every scrape and holds no state of its own.
type Exporter struct {
	source   metricsSource
	counters []counterDef
	latency  *prom.Desc
	dropped  *prom.Desc
}

var _ prom.Collector = (*Exporter)(nil)

// NewExporter creates an Exporter reading from source, usually a *gatekeeper.Engine.
func NewExporter(source metricsSource) *Exporter {
	e := &Exporter{
		source: source,
		latency: prom.NewDesc(
			prom.BuildFQName(namespace, "", "login_latency_seconds"),
			"Login latency from request validation to response.", nil, nil),
		dropped: prom.NewDesc(
			prom.BuildFQName(namespace, "", "audit_dropped_total"),
			"Audit events dropped due to dispatcher backpressure.", nil, nil),
	}
	for id := gatekeeper.MetricID(0); id < gatekeeper.MetricLoginLatency; id++ {
		e.counters = append(e.counters, counterDef{
			id:   id,
			desc: prom.NewDesc(prom.BuildFQName(namespace, "", id.String()+"_total"), counterHelp[id], nil, nil),
		})
	}
	return e
}

func (e *Exporter) Describe(ch chan<- *prom.Desc) {
	for _, c := range e.counters {
		ch <- c.desc
	}
	ch <- e.latency
	ch <- e.dropped
}

func (e *Exporter) Collect(ch chan<- prom.Metric) {
	if e.source == nil {
		return
	}
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		v, ok := snapshot.Counters[c.id]
		if !ok {
			continue
		}
		ch <- prom.MustNewConstMetric(c.desc, prom.CounterValue, float64(v))
	}

	if raw, ok := snapshot.Histograms[gatekeeper.MetricLoginLatency]; ok {
		buckets := make(map[float64]uint64, len(gatekeeper.HistogramBounds))
		var cumulative uint64
		for i, bound := range gatekeeper.HistogramBounds {
			if i < len(raw) {
				cumulative += raw[i]
			}
			buckets[bound.Seconds()] = cumulative
		}
		count := cumulative
		if len(raw) > len(gatekeeper.HistogramBounds) {
			count += raw[len(gatekeeper.HistogramBounds)]
		}
		ch <- prom.MustNewConstHistogram(e.latency, count, snapshot.LatencySum.Seconds(), buckets)
	}

	ch <- prom.MustNewConstMetric(e.dropped, prom.CounterValue, float64(e.source.AuditDropped()))
}

// Handler serves the exporter from a private registry.
func (e *Exporter) Handler() http.Handler {
	registry := prom.NewRegistry()
	registry.MustRegister(e)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
