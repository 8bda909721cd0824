// Package metrics provides the centralized Prometheus metrics registry
// for the cache service. All metrics are defined in their respective
// packages (cache, store) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the cache service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - smartcache_hits_total{tier} (Counter): Cache hits by tier (l1, l2, l3)
//   - smartcache_misses_total (Counter): Requests missing every tier
//   - smartcache_evictions_total (Counter): L1 LRU evictions
//   - smartcache_promotions_total (Counter): Promotions into L1
//   - smartcache_demotions_total (Counter): Demotions from L1 to L2
//   - smartcache_invalidations_total (Counter): Keys removed by pattern invalidation
//   - smartcache_l1_size_bytes (Gauge): Current encoded size of the L1 tier
//   - smartcache_compression_saved_bytes_total (Counter): Bytes saved by compression
//   - smartcache_tier_degraded{tier} (Gauge): 1 while a backing tier is degraded
//   - smartcache_get_duration_seconds (Histogram): Foreground Get latency
//   - smartcache_errors_total{operation} (Counter): Codec and capacity errors
//
// Example Prometheus Queries:
//
//   # Overall Hit Rate
//   sum(rate(smartcache_hits_total[5m])) /
//   (sum(rate(smartcache_hits_total[5m])) + sum(rate(smartcache_misses_total[5m])))
//
//   # L1 Share of Hits
//   rate(smartcache_hits_total{tier="l1"}[5m]) / sum(rate(smartcache_hits_total[5m]))
//
//   # Tier Outage
//   smartcache_tier_degraded > 0
//
//   # P95 Get Latency
//   histogram_quantile(0.95, rate(smartcache_get_duration_seconds_bucket[5m]))
//
//   # Eviction Pressure
//   rate(smartcache_evictions_total[5m])
