// Package prometheus exposes gatekeeper engine counters as a
// prometheus.Collector.
//
// Counters are named gatekeeper_<metric>_total; login latency is the
// gatekeeper_login_latency_seconds histogram. [Exporter.Handler] serves a
// private registry. Callers that already run a registry register the
// Exporter there instead.
package prometheus
