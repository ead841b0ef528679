// Package metrics holds the Prometheus instrumentation for the
// order-flow engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every collector the engine exposes.
type Registry struct {
	registry *prometheus.Registry

	// Stream ingestion
	TradesIngested *prometheus.CounterVec
	FramesDropped  *prometheus.CounterVec
	Reconnects     *prometheus.CounterVec

	// Aggregator housekeeping
	BucketsPruned prometheus.Counter
	OpenBuckets   *prometheus.GaugeVec

	// Price-step resolver
	ResolveDuration *prometheus.HistogramVec
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
}

// NewRegistry creates and registers all engine collectors on a private
// Prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		TradesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_trades_ingested_total",
			Help: "Normalized trades applied to the footprint aggregator",
		}, []string{"symbol"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_frames_dropped_total",
			Help: "Raw stream frames dropped at the normalization boundary",
		}, []string{"symbol"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_stream_reconnects_total",
			Help: "WebSocket reconnect attempts per symbol",
		}, []string{"symbol"}),
		BucketsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_buckets_pruned_total",
			Help: "Footprint time buckets evicted by retention pruning",
		}),
		OpenBuckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderflow_open_buckets",
			Help: "Footprint time buckets currently held per symbol",
		}, []string{"symbol"}),
		ResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderflow_pricestep_resolve_seconds",
			Help:    "Price-step resolution latency by outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_cache_hits_total",
			Help: "Cache hits by cache name",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_cache_misses_total",
			Help: "Cache misses by cache name",
		}, []string{"cache"}),
	}

	r.registry.MustRegister(
		r.TradesIngested,
		r.FramesDropped,
		r.Reconnects,
		r.BucketsPruned,
		r.OpenBuckets,
		r.ResolveDuration,
		r.CacheHits,
		r.CacheMisses,
	)

	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for test assertions.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
