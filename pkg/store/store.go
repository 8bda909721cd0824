// Package store provides the backing tier implementations consumed by
// the cache core: a shared Redis tier (L2) and a durable Postgres tier
// (L3), both behind the narrow TierStore contract.
//
// Transport failures never surface as errors; a failing tier reports
// found=false / ok=false and flips Healthy so the core can mark it
// degraded in stats. A circuit breaker keeps a flapping backend from
// adding latency to every foreground call.
package store

import (
	"context"
	"time"
)

// TierStore is the contract between the cache core and a backing tier.
type TierStore interface {
	// Name identifies the tier in logs and stats ("redis", "postgres").
	Name() string

	// Get returns the stored bytes for key, or found=false on miss or
	// transport failure.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key with the given TTL. Returns false on
	// transport failure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool

	// Delete removes key. Returns true only if a stored value was
	// actually removed.
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes every key matching the glob pattern
	// (grammar: '*' any run, '?' one character) and returns the count.
	DeletePattern(ctx context.Context, pattern string) int

	// Healthy reports whether the tier is currently usable.
	Healthy() bool
}
