package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jobpilot/smartcache/pkg/store"
)

// Invalidator deletes keys across every tier, by glob pattern or by
// cascading through the registered dependency graph.
//
// The graph maps a source pattern to the dependent patterns that must be
// invalidated whenever a deleted key matches the source. Registration is
// assumed acyclic; no cycle detection is performed. A visited set bounds
// the cascade so a mistakenly cyclic registration degenerates into a
// no-op instead of unbounded recursion.
type Invalidator struct {
	mu   sync.Mutex
	deps map[string]map[string]struct{}

	l1      *MemoryStore
	tiers   []store.TierStore
	tracker *Tracker
	logger  zerolog.Logger
}

// NewInvalidator creates an invalidation engine over the given tiers.
// Nil tier stores are skipped.
func NewInvalidator(l1 *MemoryStore, tracker *Tracker, logger zerolog.Logger, tiers ...store.TierStore) *Invalidator {
	inv := &Invalidator{
		deps:    make(map[string]map[string]struct{}),
		l1:      l1,
		tracker: tracker,
		logger:  logger,
	}
	for _, t := range tiers {
		if t != nil {
			inv.tiers = append(inv.tiers, t)
		}
	}
	return inv
}

// AddDependency registers that invalidating a key matching source must
// also invalidate every key matching dependent.
func (inv *Invalidator) AddDependency(source, dependent string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	set, ok := inv.deps[source]
	if !ok {
		set = make(map[string]struct{})
		inv.deps[source] = set
	}
	set[dependent] = struct{}{}
}

// RemoveDependency unregisters a dependency edge.
func (inv *Invalidator) RemoveDependency(source, dependent string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if set, ok := inv.deps[source]; ok {
		delete(set, dependent)
		if len(set) == 0 {
			delete(inv.deps, source)
		}
	}
}

// InvalidatePattern deletes every key matching the glob in each tier
// independently and returns the summed count. Pattern invalidation does
// not cascade through the dependency graph; only Delete does.
func (inv *Invalidator) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if err := ValidatePattern(pattern); err != nil {
		return 0, err
	}

	count := 0
	for _, key := range inv.l1.Keys() {
		if MatchPattern(pattern, key) {
			if inv.l1.Delete(key) {
				inv.tracker.Forget(key)
				count++
			}
		}
	}
	for _, tier := range inv.tiers {
		count += tier.DeletePattern(ctx, pattern)
	}

	inv.logger.Debug().
		Str("pattern", pattern).
		Int("invalidated", count).
		Msg("Pattern invalidation complete")
	return count, nil
}

// Delete removes key from every tier, clears its access pattern, and
// cascades through the dependency graph: every registered source pattern
// matching the key has its dependent patterns invalidated recursively.
// Returns true if the key was present in at least one tier.
func (inv *Invalidator) Delete(ctx context.Context, key string) bool {
	found := inv.l1.Delete(key)
	for _, tier := range inv.tiers {
		if tier.Delete(ctx, key) {
			found = true
		}
	}
	inv.tracker.Forget(key)

	inv.cascade(ctx, key, make(map[string]struct{}))
	return found
}

// cascade invalidates the dependents of every source pattern matching
// key, then recurses on each dependent pattern treated as a source.
func (inv *Invalidator) cascade(ctx context.Context, key string, visited map[string]struct{}) {
	inv.mu.Lock()
	var dependents []string
	for source, set := range inv.deps {
		if !MatchPattern(source, key) {
			continue
		}
		for dep := range set {
			if _, seen := visited[dep]; !seen {
				visited[dep] = struct{}{}
				dependents = append(dependents, dep)
			}
		}
	}
	inv.mu.Unlock()

	for _, dep := range dependents {
		n, err := inv.InvalidatePattern(ctx, dep)
		if err != nil {
			inv.logger.Warn().Err(err).Str("pattern", dep).Msg("Skipping invalid dependent pattern")
			continue
		}
		inv.logger.Debug().
			Str("key", key).
			Str("dependent", dep).
			Int("invalidated", n).
			Msg("Dependency cascade")
		inv.cascade(ctx, dep, visited)
	}
}
