package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jobpilot/smartcache/internal/testutil"
)

func newTestInvalidator(t *testing.T) (*Invalidator, *MemoryStore, *testutil.MockStore, *testutil.MockStore) {
	t.Helper()
	l1 := NewMemoryStore(100)
	l2 := testutil.NewMockStore("redis")
	l3 := testutil.NewMockStore("postgres")
	inv := NewInvalidator(l1, NewTracker(), zerolog.Nop(), l2, l3)
	return inv, l1, l2, l3
}

func TestInvalidator_PatternSumsAcrossTiers(t *testing.T) {
	inv, l1, l2, l3 := newTestInvalidator(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := l1.Put(testEntry("user:1", 4, time.Minute, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	l2.Set(ctx, "user:1", []byte("x"), time.Minute)
	l2.Set(ctx, "user:2", []byte("x"), time.Minute)
	l3.Set(ctx, "session:1", []byte("x"), time.Minute)

	count, err := inv.InvalidatePattern(ctx, "user:*")
	if err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}
	// One L1 copy plus two L2 copies; the session key is untouched.
	if count != 3 {
		t.Errorf("Invalidated count: got %d, want 3", count)
	}
	if l1.Contains("user:1") || l2.Contains("user:1") || l2.Contains("user:2") {
		t.Error("Matching keys should be gone from every tier")
	}
	if !l3.Contains("session:1") {
		t.Error("Non-matching key should survive")
	}
}

func TestInvalidator_BadPattern(t *testing.T) {
	inv, _, _, _ := newTestInvalidator(t)

	if _, err := inv.InvalidatePattern(context.Background(), ""); err != ErrBadPattern {
		t.Errorf("Empty pattern should return ErrBadPattern, got %v", err)
	}
}

func TestInvalidator_DeleteReportsPresence(t *testing.T) {
	inv, _, l2, _ := newTestInvalidator(t)
	ctx := context.Background()

	l2.Set(ctx, "a", []byte("x"), time.Minute)

	if !inv.Delete(ctx, "a") {
		t.Error("Delete of a present key should return true")
	}
	if inv.Delete(ctx, "a") {
		t.Error("Delete of an absent key should return false")
	}
}

func TestInvalidator_DependencyCascade(t *testing.T) {
	inv, _, l2, _ := newTestInvalidator(t)
	ctx := context.Background()

	inv.AddDependency("user:*", "profile:*")
	inv.AddDependency("profile:*", "feed:*")

	l2.Set(ctx, "user:1", []byte("x"), time.Minute)
	l2.Set(ctx, "profile:1", []byte("x"), time.Minute)
	l2.Set(ctx, "feed:1", []byte("x"), time.Minute)
	l2.Set(ctx, "other:1", []byte("x"), time.Minute)

	inv.Delete(ctx, "user:1")

	if l2.Contains("profile:1") {
		t.Error("Direct dependent should be invalidated")
	}
	if l2.Contains("feed:1") {
		t.Error("Transitive dependent should be invalidated")
	}
	if !l2.Contains("other:1") {
		t.Error("Unrelated key should survive the cascade")
	}
}

func TestInvalidator_CyclicDependenciesTerminate(t *testing.T) {
	inv, _, l2, _ := newTestInvalidator(t)
	ctx := context.Background()

	inv.AddDependency("a:*", "b:*")
	inv.AddDependency("b:*", "a:*")
	l2.Set(ctx, "a:1", []byte("x"), time.Minute)
	l2.Set(ctx, "b:1", []byte("x"), time.Minute)

	// The visited set must bound the recursion.
	inv.Delete(ctx, "a:1")

	if l2.Contains("b:1") {
		t.Error("Dependent in the cycle should still be invalidated")
	}
}

func TestInvalidator_RemoveDependency(t *testing.T) {
	inv, _, l2, _ := newTestInvalidator(t)
	ctx := context.Background()

	inv.AddDependency("user:*", "profile:*")
	inv.RemoveDependency("user:*", "profile:*")

	l2.Set(ctx, "user:1", []byte("x"), time.Minute)
	l2.Set(ctx, "profile:1", []byte("x"), time.Minute)

	inv.Delete(ctx, "user:1")

	if !l2.Contains("profile:1") {
		t.Error("Removed dependency edge must not cascade")
	}
}

func TestInvalidator_PatternDoesNotCascade(t *testing.T) {
	inv, _, l2, _ := newTestInvalidator(t)
	ctx := context.Background()

	inv.AddDependency("user:*", "profile:*")
	l2.Set(ctx, "user:1", []byte("x"), time.Minute)
	l2.Set(ctx, "profile:1", []byte("x"), time.Minute)

	if _, err := inv.InvalidatePattern(ctx, "user:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	if !l2.Contains("profile:1") {
		t.Error("Pattern invalidation must not walk the dependency graph")
	}
}
