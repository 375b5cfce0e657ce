// Package metrics provides Prometheus metrics for the lookup client.
//
// Exposed families:
//   - dray_lookup_request_latency_seconds: lookup latency by operation and outcome
//   - dray_lookup_requests_total: lookup count by operation and outcome
//   - dray_lookup_probe_rounds_total: prober rounds by outcome
//   - dray_lookup_probe_owner_changes_total: ownership changes seen by the prober
//   - dray_lookup_probe_last_success_timestamp_seconds: end of the last clean round
//
// Metrics are served on /metrics by Server.
//
// Usage:
//
//	lookupMetrics := metrics.NewLookupMetrics()
//	resolver := lookup.New(transport, cfg, lookup.WithMetrics(lookupMetrics))
//
//	metricsServer := metrics.NewServer(":9090")
//	metricsServer.Start()
package metrics
