package gatekeeper

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginBanned
	MetricIdentityRejected
	// MetricTokenFallback counts presented tokens that were rejected before
	// the password path ran.
	MetricTokenFallback
	MetricSessionIssued
	MetricPasswordUpgraded
	// MetricLoginLatency only carries a histogram.
	MetricLoginLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:     "login_success",
	MetricLoginFailure:     "login_failure",
	MetricLoginRateLimited: "login_rate_limited",
	MetricLoginBanned:      "login_banned",
	MetricIdentityRejected: "identity_rejected",
	MetricTokenFallback:    "token_fallback",
	MetricSessionIssued:    "session_issued",
	MetricPasswordUpgraded: "password_upgraded",
	MetricLoginLatency:     "login_latency",
}

// String returns the snake_case metric name.
func (id MetricID) String() string {
	if id < metricIDCount {
		return metricNames[id]
	}
	return "unknown"
}

// HistogramBounds are the inclusive upper bounds of the latency buckets. The
// last bucket is unbounded.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free counter set. A nil or disabled Metrics ignores writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
	latencySum    atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// LatencySum is the total observed login latency.
	LatencySum time.Duration
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricLoginLatency keeps one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricLoginLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	m.latencySum.Add(int64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Histograms are present only when latency
// tracking is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricLoginLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLoginLatency].buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
		s.LatencySum = time.Duration(m.latencySum.Load())
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
