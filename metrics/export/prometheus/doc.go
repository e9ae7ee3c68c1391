// Package prometheus renders siteguard metrics in the Prometheus text exposition
// format.
//
// Counters are grouped into labelled families (siteguard_csrf_checks_total{result=...}
// and so on). The CheckLimit latency histogram is siteguard_check_limit_latency_seconds.
// Nothing is registered globally; mount [Exporter.Handler] where it is needed.
package prometheus
