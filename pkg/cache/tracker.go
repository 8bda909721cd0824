package cache

import (
	"sync"
	"time"
)

// Classification buckets derived from observed access frequency.
type Classification string

const (
	// Hot keys see more than HotFrequencyPerHour accesses per hour.
	Hot Classification = "hot"

	// Cold keys see fewer than ColdFrequencyPerHour accesses per hour.
	Cold Classification = "cold"

	// Neutral keys fall between the two thresholds.
	Neutral Classification = "neutral"
)

const (
	// HotFrequencyPerHour is the hot classification threshold.
	HotFrequencyPerHour = 10.0

	// ColdFrequencyPerHour is the cold classification threshold.
	ColdFrequencyPerHour = 1.0

	// minElapsedHours floors the elapsed window at one hour. Until an
	// hour has passed since first access, frequency reads as accesses
	// within the trailing hour; without the floor a single access right
	// after first touch would divide by a near-zero window and
	// classify every fresh key as hot.
	minElapsedHours = 1.0
)

// AccessPattern holds the per-key counters driving placement and TTL.
type AccessPattern struct {
	Count       int64
	FirstAccess time.Time
	LastAccess  time.Time
	Frequency   float64 // accesses per hour
}

// Tracker records per-key access patterns and maintains the derived
// hot/cold sets. Safe for concurrent use on the foreground path; the
// background analyzer calls Sweep to migrate stale hot keys to cold.
type Tracker struct {
	mu       sync.Mutex
	patterns map[string]*AccessPattern
	hot      map[string]struct{}
	cold     map[string]struct{}

	now func() time.Time
}

// NewTracker creates an empty access pattern tracker.
func NewTracker() *Tracker {
	return &Tracker{
		patterns: make(map[string]*AccessPattern),
		hot:      make(map[string]struct{}),
		cold:     make(map[string]struct{}),
		now:      time.Now,
	}
}

// Record registers an access to key and reclassifies it.
func (t *Tracker) Record(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	p, ok := t.patterns[key]
	if !ok {
		p = &AccessPattern{FirstAccess: now}
		t.patterns[key] = p
	}
	p.Count++
	p.LastAccess = now
	p.Frequency = frequency(p.Count, now.Sub(p.FirstAccess))
	t.reclassify(key, p.Frequency)
}

// Classify returns the current bucket for key. Untracked keys are
// neutral.
func (t *Tracker) Classify(key string) Classification {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.hot[key]; ok {
		return Hot
	}
	if _, ok := t.cold[key]; ok {
		return Cold
	}
	return Neutral
}

// Frequency returns the observed accesses per hour for key.
func (t *Tracker) Frequency(key string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.patterns[key]; ok {
		return p.Frequency
	}
	return 0
}

// Pattern returns a copy of the access pattern for key.
func (t *Tracker) Pattern(key string) (AccessPattern, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.patterns[key]; ok {
		return *p, true
	}
	return AccessPattern{}, false
}

// Forget drops all state for key. Called on Delete.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.patterns, key)
	delete(t.hot, key)
	delete(t.cold, key)
}

// HotKeys returns a snapshot of the hot set.
func (t *Tracker) HotKeys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.hot))
	for k := range t.hot {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.patterns)
}

// Sweep recomputes every tracked frequency and migrates hot keys with
// no access within staleAfter into the cold set. Returns the number of
// keys that changed bucket.
func (t *Tracker) Sweep(staleAfter time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	changed := 0
	for key, p := range t.patterns {
		p.Frequency = frequency(p.Count, now.Sub(p.FirstAccess))

		_, wasHot := t.hot[key]
		_, wasCold := t.cold[key]

		if wasHot && now.Sub(p.LastAccess) >= staleAfter {
			delete(t.hot, key)
			t.cold[key] = struct{}{}
			changed++
			continue
		}

		t.reclassify(key, p.Frequency)
		_, isHot := t.hot[key]
		_, isCold := t.cold[key]
		if isHot != wasHot || isCold != wasCold {
			changed++
		}
	}
	return changed
}

// reclassify updates hot/cold membership for key. Caller holds the lock.
func (t *Tracker) reclassify(key string, freq float64) {
	delete(t.hot, key)
	delete(t.cold, key)
	switch {
	case freq > HotFrequencyPerHour:
		t.hot[key] = struct{}{}
	case freq < ColdFrequencyPerHour:
		t.cold[key] = struct{}{}
	}
}

// frequency computes accesses per hour over the elapsed window.
func frequency(count int64, elapsed time.Duration) float64 {
	hours := elapsed.Hours()
	if hours < minElapsedHours {
		hours = minElapsedHours
	}
	return float64(count) / hours
}
