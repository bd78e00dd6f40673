// Package otel binds goSession engine state to an OpenTelemetry Meter.
//
// Engine counters become Int64ObservableCounters and each latency bucket
// an Int64ObservableGauge holding the cumulative count. The stored
// session is exposed as Float64ObservableGauges (logged in, age,
// remaining) and audit traffic as gosession_audit_events_total with an
// "event" attribute per type. One callback samples the engine per
// collection. The caller owns the MeterProvider.
package otel
