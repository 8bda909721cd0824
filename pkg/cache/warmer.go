package cache

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWarmConcurrency bounds parallel warm loads.
	DefaultWarmConcurrency = 8
)

// WarmLoader fetches the value for a key being warmed. found=false
// means the key has no value and is skipped without error.
type WarmLoader func(ctx context.Context, key string) (value any, found bool, err error)

// warmTarget is the slice of the orchestrator the warmer needs.
type warmTarget interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	SetWithDefaults(ctx context.Context, key string, value any) (bool, error)
}

// Warmer proactively populates keys through a caller-supplied loader.
// Warming is best-effort: loader failures are logged and skipped, never
// surfaced to the caller.
type Warmer struct {
	target      warmTarget
	concurrency int
	logger      zerolog.Logger
}

// NewWarmer creates a warmer writing through the given target.
func NewWarmer(target warmTarget, concurrency int, logger zerolog.Logger) *Warmer {
	if concurrency <= 0 {
		concurrency = DefaultWarmConcurrency
	}
	return &Warmer{
		target:      target,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Warm loads every key not already resident in some tier through the
// loader, bounded by the configured concurrency, and returns the number
// of keys actually warmed.
func (w *Warmer) Warm(ctx context.Context, keys []string, loader WarmLoader) (int, error) {
	if loader == nil {
		return 0, ErrNilLoader
	}

	var warmed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, key := range keys {
		g.Go(func() error {
			if _, found := w.target.Get(ctx, key); found {
				return nil
			}

			value, found, err := loader(ctx, key)
			if err != nil {
				w.logger.Warn().Err(err).Str("key", key).Msg("Warm loader failed, skipping key")
				return nil
			}
			if !found {
				return nil
			}

			if ok, err := w.target.SetWithDefaults(ctx, key, value); err != nil {
				w.logger.Warn().Err(err).Str("key", key).Msg("Warm store failed, skipping key")
			} else if ok {
				warmed.Add(1)
			}
			return nil
		})
	}

	// Workers never return errors; Wait only propagates ctx cancellation
	// observed by errgroup itself.
	_ = g.Wait()

	w.logger.Debug().
		Int("requested", len(keys)).
		Int64("warmed", warmed.Load()).
		Msg("Cache warming complete")
	return int(warmed.Load()), nil
}
