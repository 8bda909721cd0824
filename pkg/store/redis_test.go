package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, zerolog.Nop()), mr
}

func TestRedisStore_SetGet(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	if !s.Set(ctx, "foo", []byte("bar"), time.Minute) {
		t.Fatal("Set should succeed")
	}

	data, found := s.Get(ctx, "foo")
	if !found || string(data) != "bar" {
		t.Errorf("Get: found=%v data=%q", found, data)
	}

	// Keys are namespaced under the store prefix.
	if !mr.Exists(DefaultKeyPrefix + "foo") {
		t.Error("Stored key should carry the prefix")
	}
}

func TestRedisStore_SetRejectsNonPositiveTTL(t *testing.T) {
	s, _ := newTestRedisStore(t)

	if s.Set(context.Background(), "foo", []byte("bar"), 0) {
		t.Error("Zero TTL should be rejected")
	}
}

func TestRedisStore_MissIsNotAFailure(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	// Repeated misses must not trip the breaker.
	for i := 0; i < 10; i++ {
		if _, found := s.Get(ctx, "absent"); found {
			t.Fatal("Absent key should miss")
		}
	}
	if !s.Healthy() {
		t.Error("Misses must not open the circuit breaker")
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	if !s.Set(ctx, "short", []byte("v"), time.Second) {
		t.Fatal("Set should succeed")
	}
	mr.FastForward(2 * time.Second)

	if _, found := s.Get(ctx, "short"); found {
		t.Error("Expired key should miss")
	}
}

func TestRedisStore_Delete(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	s.Set(ctx, "foo", []byte("v"), time.Minute)

	if !s.Delete(ctx, "foo") {
		t.Error("Delete of present key should return true")
	}
	if s.Delete(ctx, "foo") {
		t.Error("Delete of absent key should return false")
	}
}

func TestRedisStore_DeletePattern(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	s.Set(ctx, "user:1", []byte("v"), time.Minute)
	s.Set(ctx, "user:2", []byte("v"), time.Minute)
	s.Set(ctx, "session:1", []byte("v"), time.Minute)

	if n := s.DeletePattern(ctx, "user:*"); n != 2 {
		t.Errorf("DeletePattern: got %d, want 2", n)
	}
	if _, found := s.Get(ctx, "session:1"); !found {
		t.Error("Non-matching key should survive")
	}
	if _, found := s.Get(ctx, "user:1"); found {
		t.Error("Matching key should be gone")
	}
}

func TestRedisStore_BreakerOpensOnBackendLoss(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	mr.Close()

	// Five consecutive transport failures open the breaker.
	for i := 0; i < 5; i++ {
		if _, found := s.Get(ctx, "foo"); found {
			t.Fatal("Get against a dead backend should miss")
		}
	}
	if s.Healthy() {
		t.Error("Breaker should be open after repeated transport failures")
	}

	// Open breaker degrades without touching the backend.
	if s.Set(ctx, "foo", []byte("v"), time.Minute) {
		t.Error("Set through an open breaker should fail fast")
	}
}

func TestTranslateRedisGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user:*", "user:*"},
		{"user:?", "user:?"},
		{"a[b]c", `a\[b\]c`},
		{`a\b`, `a\\b`},
		{"a^b", `a\^b`},
	}
	for _, tt := range tests {
		if got := translateRedisGlob(tt.in); got != tt.want {
			t.Errorf("translateRedisGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeRedisGlob(t *testing.T) {
	if got := escapeRedisGlob("smart*cache:?"); got != `smart\*cache:\?` {
		t.Errorf("escapeRedisGlob: got %q", got)
	}
}
