// Package otel binds staffauth engine metrics to OpenTelemetry
// observable instruments.
//
// [New] registers one Int64ObservableCounter per engine counter and, for
// the login latency histogram, a cumulative bucket gauge labelled with le
// plus a count gauge. One callback reads the engine snapshot per
// collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers pass a Meter.
//   - Mutate engine state.
package otel
