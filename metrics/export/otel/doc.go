// Package otel publishes sessiongate engine metrics through an OpenTelemetry
// meter.
//
// [NewOTelExporter] registers one observable counter per engine counter and
// one observable gauge per latency bucket, all fed by a single callback that
// reads [sessiongate.Engine.MetricsSnapshot]. The caller owns the meter
// provider.
package otel
