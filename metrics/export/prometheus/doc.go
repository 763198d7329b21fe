// Package prometheus exposes sessiongate engine metrics as a
// prometheus.Collector.
//
// Counter names are sessiongate_*_total and the validation latency histogram
// is sessiongate_validate_latency_seconds. The exporter never registers with
// the global registry; use [PrometheusExporter.Handler] or register it on a
// registry you own.
package prometheus
