// Package otel publishes gatekeeper engine counters through an
// OpenTelemetry Meter.
//
// [NewExporter] registers one observable counter per login metric, a
// bucket gauge keyed by the "le" attribute for login latency, and a latency
// sum. A single callback reads the engine snapshot on each collection.
// Callers own the MeterProvider; the exporter never mutates the engine.
package otel
