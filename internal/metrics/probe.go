package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe round outcome label values.
const (
	RoundOK       = "ok"
	RoundDegraded = "degraded"
)

// ProbeMetrics holds metrics for the lookup prober.
type ProbeMetrics struct {
	// RoundsTotal counts probe rounds. Labels: result (ok, degraded)
	RoundsTotal *prometheus.CounterVec

	// OwnerChangesTotal counts observed broker ownership changes.
	OwnerChangesTotal prometheus.Counter

	// LastSuccess is the unix time of the last round where every lookup succeeded.
	LastSuccess prometheus.Gauge

	// TopicsWatched is the number of topics probed per round.
	TopicsWatched prometheus.Gauge
}

// NewProbeMetrics creates probe metrics registered with the default registry.
func NewProbeMetrics() *ProbeMetrics {
	return NewProbeMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewProbeMetricsWithRegistry creates probe metrics registered with reg.
func NewProbeMetricsWithRegistry(reg prometheus.Registerer) *ProbeMetrics {
	f := promauto.With(reg)
	return &ProbeMetrics{
		RoundsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "lookup_probe",
				Name:      "rounds_total",
				Help:      "Total number of probe rounds, broken down by result.",
			},
			[]string{"result"},
		),
		OwnerChangesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dray",
				Subsystem: "lookup_probe",
				Name:      "owner_changes_total",
				Help:      "Total number of topic ownership changes observed between rounds.",
			},
		),
		LastSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dray",
				Subsystem: "lookup_probe",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last probe round in which every lookup succeeded.",
			},
		),
		TopicsWatched: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dray",
				Subsystem: "lookup_probe",
				Name:      "topics_watched",
				Help:      "Number of topics resolved per probe round.",
			},
		),
	}
}

// RecordRound records the end of a probe round.
func (m *ProbeMetrics) RecordRound(ok bool, at time.Time) {
	if !ok {
		m.RoundsTotal.WithLabelValues(RoundDegraded).Inc()
		return
	}
	m.RoundsTotal.WithLabelValues(RoundOK).Inc()
	m.LastSuccess.Set(float64(at.Unix()))
}

// RecordOwnerChange counts one ownership change.
func (m *ProbeMetrics) RecordOwnerChange() {
	m.OwnerChangesTotal.Inc()
}
