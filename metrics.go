package extendiblemap

import (
	"github.com/gostonefire/extendiblemap/internal/blockcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// mapMetrics - Prometheus instrumentation for one hash map instance. Structural change
// counters are incremented by the engine, cache counters are read straight off the block
// cache through collector funcs.
type mapMetrics struct {
	gatherer prometheus.Gatherer

	splits      prometheus.Counter
	merges      prometheus.Counter
	grows       prometheus.Counter
	shrinks     prometheus.Counter
	globalDepth prometheus.Gauge
}

// newMapMetrics - Returns a pointer to a new mapMetrics instance. When registerer is nil an
// own registry is created and exposed through the gatherer field.
func newMapMetrics(registerer prometheus.Registerer, cache *blockcache.Cache) (metrics *mapMetrics) {
	metrics = &mapMetrics{}

	if registerer == nil {
		registry := prometheus.NewRegistry()
		registerer = registry
		metrics.gatherer = registry
	}

	metrics.splits = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "extendiblemap_bucket_splits_total",
			Help: "Total number of bucket splits",
		},
	)

	metrics.merges = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "extendiblemap_bucket_merges_total",
			Help: "Total number of bucket merges",
		},
	)

	metrics.grows = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "extendiblemap_directory_grows_total",
			Help: "Total number of directory doublings",
		},
	)

	metrics.shrinks = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "extendiblemap_directory_shrinks_total",
			Help: "Total number of directory halvings",
		},
	)

	metrics.globalDepth = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "extendiblemap_global_depth",
			Help: "Current global depth of the directory",
		},
	)

	promauto.With(registerer).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "extendiblemap_cache_hits_total",
			Help: "Total number of block fetches satisfied from cache",
		},
		func() float64 { return float64(cache.Stats().Hits) },
	)

	promauto.With(registerer).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "extendiblemap_cache_misses_total",
			Help: "Total number of block fetches read from file",
		},
		func() float64 { return float64(cache.Stats().Misses) },
	)

	promauto.With(registerer).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "extendiblemap_cache_evictions_total",
			Help: "Total number of cache resident blocks evicted",
		},
		func() float64 { return float64(cache.Stats().Evictions) },
	)

	return
}
