// Package cache implements an intelligent multi-level cache with the
// following features:
//
// - L1 in-process memory tier with hard-bounded LRU eviction
// - L2/L3 backing tiers behind a narrow store contract (Redis, Postgres)
// - Adaptive TTL derived from observed access frequency
// - Automatic promotion of hot keys and demotion of cold keys
// - Transparent compression of large values
// - Glob pattern invalidation and dependency-graph cascades
// - Proactive cache warming through a caller-supplied loader
// - Background maintenance, reclassification and warming loops
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create the backing tiers
//	l2 := store.NewRedisStore(redisClient, logger)
//	l3 := store.NewPostgresStore(db, logger)
//
//	// Create the cache service
//	svc := cache.New(cache.DefaultConfig(), l2, l3)
//	defer svc.Shutdown(context.Background())
//
//	// Store and read values
//	ok, err := svc.Set(ctx, "user:42", profile, 30*time.Minute, cache.WriteThrough)
//	var out Profile
//	if svc.GetInto(ctx, "user:42", &out) {
//		// cache hit
//	}
//
// # Write Strategies
//
// Set accepts one of three strategies. WriteThrough updates L1
// synchronously and L2/L3 best-effort, giving read-your-writes across
// tiers. WriteBack updates only L1 and defers the flush to eviction or
// the maintenance sweep; readers hitting L2 before the flush see a
// stale or absent value, which is an accepted staleness window.
// WriteAround skips L1 for values written once and read rarely.
//
// # Invalidation
//
//	// Delete every key of a user
//	n, err := svc.InvalidatePattern(ctx, "user:42:*")
//
//	// Cascade: deleting the user also drops derived profiles
//	svc.AddDependency("user:42", "profile:42:*")
//	svc.Delete(ctx, "user:42")
//
// The glob grammar is '*' (any run) and '?' (one character) only; see
// MatchPattern.
//
// # Degradation
//
// A failing backing tier never surfaces as an error. The tier's circuit
// breaker opens, reads and writes continue against the remaining tiers,
// and Stats reports L2Degraded/L3Degraded so operators can alert on the
// outage.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - smartcache_hits_total{tier} / smartcache_misses_total
//   - smartcache_evictions_total, smartcache_promotions_total,
//     smartcache_demotions_total, smartcache_invalidations_total
//   - smartcache_l1_size_bytes
//   - smartcache_compression_saved_bytes_total
//   - smartcache_tier_degraded{tier}
//   - smartcache_get_duration_seconds
//   - smartcache_errors_total{operation}
package cache
