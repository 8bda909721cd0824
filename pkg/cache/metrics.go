package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits by tier (l1, l2, l3)
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartcache_hits_total",
			Help: "Total number of cache hits by tier",
		},
		[]string{"tier"},
	)

	// cacheMisses tracks requests missing every tier
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartcache_misses_total",
			Help: "Total number of cache misses across all tiers",
		},
	)

	// cacheEvictions tracks L1 LRU evictions
	cacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartcache_evictions_total",
			Help: "Total number of L1 LRU evictions",
		},
	)

	// cachePromotions tracks copies from a lower tier into L1
	cachePromotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartcache_promotions_total",
			Help: "Total number of promotions into L1",
		},
	)

	// cacheDemotions tracks copies out of L1 into L2
	cacheDemotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartcache_demotions_total",
			Help: "Total number of demotions from L1 to L2",
		},
	)

	// cacheInvalidations tracks keys removed by pattern or cascade
	cacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartcache_invalidations_total",
			Help: "Total number of keys removed by pattern invalidation",
		},
	)

	// cacheL1Bytes tracks current L1 memory usage
	cacheL1Bytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smartcache_l1_size_bytes",
			Help: "Current encoded size of the L1 tier in bytes",
		},
	)

	// cacheCompressionSaved tracks bytes saved by compression
	cacheCompressionSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartcache_compression_saved_bytes_total",
			Help: "Total bytes saved by compressing large values",
		},
	)

	// cacheTierDegraded flags backing tiers currently unreachable
	cacheTierDegraded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartcache_tier_degraded",
			Help: "1 if the backing tier is degraded, 0 otherwise",
		},
		[]string{"tier"}, // "l2", "l3"
	)

	// cacheGetDuration observes foreground Get latency
	cacheGetDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smartcache_get_duration_seconds",
			Help:    "Foreground Get duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	// cacheErrors tracks codec and capacity errors by operation
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartcache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "encode", "decode", "capacity"
	)
)
