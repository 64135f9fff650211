// Package observability records the EDR query, cache and HTTP metrics.
// Nothing is recorded until Init binds the collectors to a registry.
package observability

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	cacheResults  *prometheus.CounterVec
	cacheOps      *prometheus.HistogramVec
	invalidatedAt *prometheus.GaugeVec
}

var current atomic.Pointer[collectors]

func newCollectors() *collectors {
	return &collectors{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
			},
			[]string{"method", "route", "status"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edr_queries_total",
				Help: "EDR queries by query type and outcome.",
			},
			[]string{"query", "outcome"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edr_query_duration_seconds",
				Help:    "Time spent selecting and assembling an EDR query.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"query"},
		),
		cacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edr_cache_results_total",
				Help: "Dataset and axis cache lookups by outcome.",
			},
			[]string{"cache", "outcome"},
		),
		cacheOps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redis_op_duration_seconds",
				Help:    "Latency of Redis operations.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"op", "result"},
		),
		invalidatedAt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edr_collection_invalidated_at_seconds",
				Help: "Unix time of the last applied invalidation per collection.",
			},
			[]string{"collection"},
		),
	}
}

// Init registers fresh collectors on reg. With enabled false every
// recording function becomes a no-op.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		current.Store(nil)
		return
	}
	c := newCollectors()
	reg.MustRegister(c.httpRequests, c.httpDuration, c.queries, c.queryDuration,
		c.cacheResults, c.cacheOps, c.invalidatedAt)
	current.Store(c)
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := current.Load()
	if c == nil {
		return
	}
	st := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(method, route, st).Inc()
	c.httpDuration.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveQuery records one provider call. outcome is "ok" or the error kind.
func ObserveQuery(query, outcome string, durationSeconds float64) {
	c := current.Load()
	if c == nil {
		return
	}
	c.queries.WithLabelValues(query, outcome).Inc()
	c.queryDuration.WithLabelValues(query).Observe(durationSeconds)
}

// IncCacheResult counts a lookup in cache ("datasets" or "axes") with
// outcome "hit", "miss" or "error".
func IncCacheResult(cache, outcome string) {
	c := current.Load()
	if c == nil {
		return
	}
	c.cacheResults.WithLabelValues(cache, outcome).Inc()
}

func ObserveCacheOp(op, result string, durationSeconds float64) {
	c := current.Load()
	if c == nil {
		return
	}
	c.cacheOps.WithLabelValues(op, result).Observe(durationSeconds)
}

func SetCollectionInvalidatedAt(collection string, unix float64) {
	c := current.Load()
	if c == nil {
		return
	}
	c.invalidatedAt.WithLabelValues(collection).Set(unix)
}
