// Package otel publishes siteguard metrics through an OpenTelemetry Meter.
//
// Each counter family becomes one Int64ObservableCounter whose series are told
// apart by an attribute. The latency histogram is published as cumulative bucket
// gauges. A single callback reads Engine.MetricsSnapshot per collection. The
// caller owns the MeterProvider.
package otel
