// Package observability exports traces and metrics over OTLP/HTTP.
//
// The pipeline opens a span per run on the global tracer and its counters are
// published through RegisterPipelineMetrics:
//
//	reg, err := observability.RegisterPipelineMetrics(observability.Meter(observability.MeterName), p.Progress)
//	defer reg.Unregister()
//
// Component wires both providers into the lifecycle registry. It is a no-op
// unless observability.enabled is set.
package observability
