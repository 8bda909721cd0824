package cache

import (
	"time"
)

// Adaptive TTL tiers. TTL tracks the key's current classification and
// is recomputed at every Set and every promotion, never cached.
const (
	// TTLHot is assigned to hot keys.
	TTLHot = 2 * time.Hour

	// TTLWarm is assigned to keys accessed more than once per hour.
	TTLWarm = 1 * time.Hour

	// TTLDefault is assigned to everything else.
	TTLDefault = 30 * time.Minute

	// L2MinFrequencyPerHour gates L2 backfill so one-shot reads do not
	// fill the shared tier.
	L2MinFrequencyPerHour = 0.5
)

// Placement decides promotion and tier admission from tracker output.
type Placement struct {
	tracker *Tracker
}

// NewPlacement creates a placement optimizer over the given tracker.
func NewPlacement(tracker *Tracker) *Placement {
	return &Placement{tracker: tracker}
}

// ShouldPromote reports whether a key found in a lower tier should be
// copied up to L1. Promotion never removes the source copy; tiers may
// hold redundant copies.
func (p *Placement) ShouldPromote(key string, inL1 bool) bool {
	if inL1 {
		return false
	}
	return p.tracker.Classify(key) == Hot
}

// ShouldCacheInL2 reports whether a key read from L3 is worth
// backfilling into L2.
func (p *Placement) ShouldCacheInL2(key string) bool {
	return p.tracker.Frequency(key) > L2MinFrequencyPerHour
}

// AdaptiveTTL returns the TTL for key based on its current
// classification and frequency.
func (p *Placement) AdaptiveTTL(key string) time.Duration {
	if p.tracker.Classify(key) == Hot {
		return TTLHot
	}
	if p.tracker.Frequency(key) > ColdFrequencyPerHour {
		return TTLWarm
	}
	return TTLDefault
}
