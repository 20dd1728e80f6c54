package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_cache_hits_total",
		Help: "Total number of harvest cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_cache_misses_total",
		Help: "Total number of harvest cache misses",
	})

	cacheSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_cache_size_bytes",
		Help: "Bytes written to the harvest cache",
	})

	notModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_cache_revalidations_total",
		Help: "Total number of 304 revalidations of stale cache entries",
	})

	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)
