// Package prometheus renders goSession engine state in the Prometheus
// text exposition format.
//
// Engine counters are named gosession_*_total and the login latency
// histogram is gosession_login_latency_seconds. The stored session shows
// up as the gosession_session_logged_in, gosession_session_age_seconds and
// gosession_session_remaining_seconds gauges, read without renewing or
// expiring it. Audit traffic is gosession_audit_events_total{event="..."}
// plus gosession_audit_dropped_total. Nothing is registered globally;
// mount [PrometheusExporter.Handler] wherever the process serves metrics.
package prometheus
