// Package metrics defines the interfaces used to record session metrics.
// Sinks like PromSink and InfluxSink (infra/metrics) record admissions,
// releases and station occupancy and can be combined with NewMultiSink.
// NewMetricsSink builds sinks from configuration through the factory
// registry and returns a MultiSink automatically when several are configured.
package metrics
