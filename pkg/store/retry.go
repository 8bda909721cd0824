package store

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig holds the backoff configuration for best-effort tier
// writes (write-back flushes and eviction demotions).
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default backoff configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetrySet writes to a tier with jittered exponential backoff until it
// succeeds, attempts are exhausted, or the context is cancelled.
// Returns whether the write eventually succeeded. A degraded tier
// (Healthy() == false) aborts immediately; the breaker already knows
// the backend is down and retrying would only stack latency.
func RetrySet(ctx context.Context, cfg RetryConfig, tier TierStore, key string, value []byte, ttl time.Duration) bool {
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if tier.Set(ctx, key, value, ttl) {
			if attempt > 1 {
				log.Debug().
					Str("tier", tier.Name()).
					Str("key", key).
					Int("attempt", attempt).
					Msg("Tier write succeeded after retry")
			}
			return true
		}

		if !tier.Healthy() || attempt >= cfg.MaxAttempts {
			break
		}

		// ±20% jitter to avoid thundering herd on recovery.
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	log.Warn().
		Str("tier", tier.Name()).
		Str("key", key).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Tier write attempts exhausted")
	return false
}
