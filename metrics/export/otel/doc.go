// Package otel publishes goAuthClient metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per client counter and an
// Int64ObservableGauge per renewal latency bucket. One callback reads
// [goAuthClient.Client.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
