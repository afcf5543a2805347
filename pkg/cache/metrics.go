package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	// CacheHits counts cache hits by tier.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameprobe_cache_hits_total",
		Help: "Cache hits by tier",
	}, []string{"tier"})

	// CacheMisses counts lookups that found no live entry in any tier.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nameprobe_cache_misses_total",
		Help: "Cache misses",
	})

	// CacheEvictions counts entries removed by the bulk eviction sweep.
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nameprobe_cache_evictions_total",
		Help: "Entries evicted by capacity sweeps",
	})

	// CacheEntries tracks the current entry count of the memory tier.
	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nameprobe_cache_entries",
		Help: "Current number of entries in the memory cache",
	})

	// CacheErrors counts Redis tier operation failures.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameprobe_cache_errors_total",
		Help: "Cache tier errors by operation",
	}, []string{"operation"})
)
