package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup operation label values.
const (
	OpLookupTopic     = "lookup_topic"
	OpLookupTopicData = "lookup_topic_data"
	OpBundleRange     = "bundle_range"
)

// Outcome label values. Failures use the admin error kind name.
const (
	StatusSuccess     = "success"
	StatusMalformed   = "malformed_topic_name"
	StatusTransport   = "transport"
	StatusTimeout     = "timeout"
	StatusInterrupted = "interrupted"
)

// DefaultLookupLatencyBuckets cover a single HTTP round trip to the admin
// endpoint, from local sub-millisecond answers up to the default read timeout.
var DefaultLookupLatencyBuckets = []float64{
	0.0005, // 0.5ms
	0.001,  // 1ms
	0.0025, // 2.5ms
	0.005,  // 5ms
	0.01,   // 10ms
	0.025,  // 25ms
	0.05,   // 50ms
	0.1,    // 100ms
	0.25,   // 250ms
	0.5,    // 500ms
	1.0,    // 1s
	2.5,    // 2.5s
	5.0,    // 5s
	10.0,   // 10s
	30.0,   // 30s
	60.0,   // 60s
}

// LookupMetrics holds metrics for lookup calls.
type LookupMetrics struct {
	// LatencyHistogram tracks time from issuing a lookup until its future settles.
	// Labels: operation, status
	LatencyHistogram *prometheus.HistogramVec

	// RequestsTotal counts lookups. Labels: operation, status
	RequestsTotal *prometheus.CounterVec

	// AbandonedTotal counts blocking waits that gave up before the lookup
	// settled. The lookup itself is still counted in RequestsTotal when it
	// eventually settles. Labels: operation, status (timeout, interrupted)
	AbandonedTotal *prometheus.CounterVec
}

// NewLookupMetrics creates lookup metrics registered with the default registry.
func NewLookupMetrics() *LookupMetrics {
	return NewLookupMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewLookupMetricsWithRegistry creates lookup metrics registered with reg.
// Useful for testing to avoid conflicts with the default registry.
func NewLookupMetricsWithRegistry(reg prometheus.Registerer) *LookupMetrics {
	f := promauto.With(reg)
	return &LookupMetrics{
		LatencyHistogram: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dray",
				Subsystem: "lookup",
				Name:      "request_latency_seconds",
				Help:      "Topic lookup latency in seconds, broken down by operation and outcome.",
				Buckets:   DefaultLookupLatencyBuckets,
			},
			[]string{"operation", "status"},
		),
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "lookup",
				Name:      "requests_total",
				Help:      "Total number of topic lookups, broken down by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		AbandonedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "lookup",
				Name:      "waits_abandoned_total",
				Help:      "Total number of blocking lookups that stopped waiting before a result arrived.",
			},
			[]string{"operation", "status"},
		),
	}
}

// RecordLookup records one settled lookup.
func (m *LookupMetrics) RecordLookup(operation, status string, durationSeconds float64) {
	m.LatencyHistogram.WithLabelValues(operation, status).Observe(durationSeconds)
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRejected records a lookup refused before any request was sent.
func (m *LookupMetrics) RecordRejected(operation string) {
	m.RequestsTotal.WithLabelValues(operation, StatusMalformed).Inc()
}

// RecordAbandoned records a blocking wait that ended with status before its
// lookup settled.
func (m *LookupMetrics) RecordAbandoned(operation, status string) {
	m.AbandonedTotal.WithLabelValues(operation, status).Inc()
}
