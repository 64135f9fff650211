package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Event results recorded on edr_invalidation_events_total.
const (
	resultApplied     = "applied"
	resultFailed      = "failed"
	resultMalformed   = "malformed"
	resultUnknownColl = "unknown_collection"
	resultStale       = "stale_version"
)

// invalidationMetrics tracks how collection-update events reach the
// dataset and axis caches.
type invalidationMetrics struct {
	events   *prometheus.CounterVec
	evicted  *prometheus.CounterVec
	applyDur *prometheus.HistogramVec
	lag      prometheus.Gauge
}

func newInvalidationMetrics(r prometheus.Registerer) *invalidationMetrics {
	m := &invalidationMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edr_invalidation_events_total",
			Help: "Collection-update events consumed, by result.",
		}, []string{"result"}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edr_invalidation_evicted_total",
			Help: "Entries dropped from the dataset and axis caches by update events.",
		}, []string{"cache"}),
		applyDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edr_invalidation_apply_seconds",
			Help:    "Time to evict the caches of one updated collection, by update op.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		lag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edr_invalidation_lag_seconds",
			Help: "Age of the last consumed update event when it was read.",
		}),
	}
	if r != nil {
		r.MustRegister(m.events, m.evicted, m.applyDur, m.lag)
	}
	return m
}
