package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/playgate/gatekeeper"
)

type fakeSource struct {
	snapshot gatekeeper.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() gatekeeper.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestCollectCounters(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: gatekeeper.MetricsSnapshot{
			Counters: map[gatekeeper.MetricID]uint64{
				gatekeeper.MetricLoginSuccess:  7,
				gatekeeper.MetricTokenFallback: 2,
			},
		},
		dropped: 3,
	})

	expected := `
# HELP gatekeeper_login_success_total Logins that issued a session token.
# TYPE gatekeeper_login_success_total counter
gatekeeper_login_success_total 7
# HELP gatekeeper_token_fallback_total Presented session tokens that were rejected before password authentication.
# TYPE gatekeeper_token_fallback_total counter
gatekeeper_token_fallback_total 2
# HELP gatekeeper_audit_dropped_total Audit events dropped due to dispatcher backpressure.
# TYPE gatekeeper_audit_dropped_total counter
gatekeeper_audit_dropped_total 3
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"gatekeeper_login_success_total", "gatekeeper_token_fallback_total", "gatekeeper_audit_dropped_total"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectLatencyHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: gatekeeper.MetricsSnapshot{
			Counters: map[gatekeeper.MetricID]uint64{},
			Histograms: map[gatekeeper.MetricID][]uint64{
				gatekeeper.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			LatencySum: 1500 * time.Millisecond,
		},
	})

	expected := `
# HELP gatekeeper_login_latency_seconds Login latency from request validation to response.
# TYPE gatekeeper_login_latency_seconds histogram
gatekeeper_login_latency_seconds_bucket{le="0.005"} 1
gatekeeper_login_latency_seconds_bucket{le="0.01"} 3
gatekeeper_login_latency_seconds_bucket{le="0.025"} 6
gatekeeper_login_latency_seconds_bucket{le="0.05"} 10
gatekeeper_login_latency_seconds_bucket{le="0.1"} 15
gatekeeper_login_latency_seconds_bucket{le="0.25"} 21
gatekeeper_login_latency_seconds_bucket{le="0.5"} 28
gatekeeper_login_latency_seconds_bucket{le="+Inf"} 36
gatekeeper_login_latency_seconds_sum 1.5
gatekeeper_login_latency_seconds_count 36
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected), "gatekeeper_login_latency_seconds"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectDisabledMetricsOnlyDropped(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: gatekeeper.MetricsSnapshot{
			Counters:   map[gatekeeper.MetricID]uint64{},
			Histograms: map[gatekeeper.MetricID][]uint64{},
		},
	})
	if n := testutil.CollectAndCount(exp); n != 1 {
		t.Fatalf("expected only the audit dropped counter, got %d metrics", n)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: gatekeeper.MetricsSnapshot{
			Counters: map[gatekeeper.MetricID]uint64{gatekeeper.MetricLoginSuccess: 1},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gatekeeper_login_success_total 1") {
		t.Fatalf("expected login counter in body, got:\n%s", rec.Body.String())
	}
}
