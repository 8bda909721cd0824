package cache

import (
	"time"
)

// CacheLevel identifies a cache tier.
type CacheLevel string

const (
	// LevelL1 is the in-process memory tier.
	LevelL1 CacheLevel = "l1"

	// LevelL2 is the shared remote tier.
	LevelL2 CacheLevel = "l2"

	// LevelL3 is the durable backing tier.
	LevelL3 CacheLevel = "l3"
)

// CacheStrategy selects which tiers a Set updates synchronously.
type CacheStrategy string

const (
	// WriteThrough writes L1 synchronously, then L2 and L3 best-effort.
	WriteThrough CacheStrategy = "write_through"

	// WriteBack writes L1 only and defers the L2/L3 flush to eviction
	// or the periodic maintenance sweep.
	WriteBack CacheStrategy = "write_back"

	// WriteAround skips L1 and writes L2/L3 only.
	WriteAround CacheStrategy = "write_around"
)

// Valid reports whether the strategy is one of the known variants.
func (s CacheStrategy) Valid() bool {
	switch s {
	case WriteThrough, WriteBack, WriteAround:
		return true
	}
	return false
}

// Entry represents a cached value resident in L1.
// An entry is owned by the tier holding it; moving between tiers is
// always a copy, never a shared reference.
type Entry struct {
	// Key is the logical cache key.
	Key string `json:"key"`

	// Value is the encoded (and possibly compressed) value bytes.
	Value []byte `json:"value"`

	// CreatedAt is when the entry was written to this tier.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessed is the time of the most recent read.
	LastAccessed time.Time `json:"last_accessed"`

	// AccessCount counts reads since CreatedAt.
	AccessCount int64 `json:"access_count"`

	// TTL is the time-to-live from CreatedAt. Always positive.
	TTL time.Duration `json:"ttl"`

	// SizeBytes is the encoded size of Value.
	SizeBytes int `json:"size_bytes"`

	// Compressed indicates Value holds the gzip form.
	Compressed bool `json:"compressed"`

	// Dirty marks a write-back entry not yet flushed to L2/L3.
	Dirty bool `json:"dirty"`

	// Strategy is the write strategy the entry was stored with.
	Strategy CacheStrategy `json:"strategy"`

	// Metadata carries optional caller-supplied annotations.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ExpiresAt returns the absolute expiry time.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// ExpiredAt reports whether the entry is expired at the given time.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// IsExpired reports whether the entry has expired.
func (e *Entry) IsExpired() bool {
	return e.ExpiredAt(time.Now())
}

// RemainingTTL returns the time left until expiry at the given time.
// Returns 0 if already expired.
func (e *Entry) RemainingTTL(now time.Time) time.Duration {
	remaining := e.ExpiresAt().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Touch records a read at the given time.
func (e *Entry) Touch(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}
