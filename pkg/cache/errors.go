package cache

import (
	"errors"
	"fmt"
)

// Errors surfaced to callers. Backing-store failures are never among
// them; those degrade the affected tier instead (see Stats flags).
var (
	// ErrInvalidTTL is returned by Set when ttl <= 0.
	ErrInvalidTTL = errors.New("ttl must be positive")

	// ErrInvalidStrategy is returned by Set for an unknown write strategy.
	ErrInvalidStrategy = errors.New("invalid write strategy")

	// ErrNilLoader is returned by WarmCache when no loader is supplied.
	ErrNilLoader = errors.New("warm loader cannot be nil")

	// ErrBadPattern is returned for a malformed glob pattern.
	ErrBadPattern = errors.New("malformed glob pattern")
)

// SerializationError indicates the codec failed to encode or decode a
// value. On the read path callers treat it as a miss for that tier and
// drop the corrupted entry.
type SerializationError struct {
	Op  string // "encode" or "decode"
	Key string
	Err error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("serialization %s failed for key %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("serialization %s failed: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// CapacityExceededError indicates L1 eviction could not free a slot.
// This points at broken LRU bookkeeping and is fatal to the Set that
// triggered it.
type CapacityExceededError struct {
	Capacity int
}

// Error implements the error interface.
func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("l1 capacity %d exceeded and eviction freed no slot", e.Capacity)
}
