package cache

import (
	"testing"
	"time"
)

func testEntry(key string, size int, ttl time.Duration, now time.Time) *Entry {
	return &Entry{
		Key:          key,
		Value:        make([]byte, size),
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          ttl,
		SizeBytes:    size,
	}
}

func TestMemoryStore_PutAndGet(t *testing.T) {
	m := NewMemoryStore(10)
	now := time.Now()

	if _, err := m.Put(testEntry("a", 8, time.Minute, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, ok := m.Get("a")
	if !ok {
		t.Fatal("Get after Put should hit")
	}
	if entry.Key != "a" {
		t.Errorf("Wrong entry: got %q", entry.Key)
	}
	if entry.AccessCount != 1 {
		t.Errorf("Get should touch the entry: access count %d", entry.AccessCount)
	}
	if m.Len() != 1 || m.Bytes() != 8 {
		t.Errorf("Unexpected size: len=%d bytes=%d", m.Len(), m.Bytes())
	}
}

func TestMemoryStore_LRUEviction(t *testing.T) {
	m := NewMemoryStore(2)
	now := time.Now()

	mustPut := func(key string) []*Entry {
		t.Helper()
		evicted, err := m.Put(testEntry(key, 4, time.Minute, now))
		if err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
		return evicted
	}

	mustPut("a")
	mustPut("b")

	// Touch "a" so "b" becomes least recently used.
	if _, ok := m.Get("a"); !ok {
		t.Fatal("Get(a) should hit")
	}

	evicted := mustPut("c")
	if len(evicted) != 1 || evicted[0].Key != "b" {
		t.Fatalf("Expected b to be evicted, got %v", evicted)
	}
	if !m.Contains("a") || !m.Contains("c") || m.Contains("b") {
		t.Error("Expected a and c resident, b gone")
	}
	if m.Len() != 2 {
		t.Errorf("Capacity invariant violated: len=%d", m.Len())
	}
}

func TestMemoryStore_ReplaceDoesNotEvict(t *testing.T) {
	m := NewMemoryStore(2)
	now := time.Now()

	if _, err := m.Put(testEntry("a", 4, time.Minute, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := m.Put(testEntry("b", 4, time.Minute, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	evicted, err := m.Put(testEntry("a", 16, time.Minute, now))
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("Replace should not evict, got %v", evicted)
	}
	if m.Bytes() != 20 {
		t.Errorf("Byte accounting after replace: got %d, want 20", m.Bytes())
	}
}

func TestMemoryStore_ExpiredEntryIsAbsent(t *testing.T) {
	m := NewMemoryStore(10)
	base := time.Now()
	m.now = func() time.Time { return base }

	if _, err := m.Put(testEntry("a", 4, time.Second, base)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	m.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, ok := m.Get("a"); ok {
		t.Error("Expired entry should be absent")
	}
	if m.Len() != 0 {
		t.Error("Expired entry should be removed on Get")
	}
}

func TestMemoryStore_PruneExpired(t *testing.T) {
	m := NewMemoryStore(10)
	base := time.Now()
	m.now = func() time.Time { return base }

	if _, err := m.Put(testEntry("short", 4, time.Second, base)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := m.Put(testEntry("long", 4, time.Hour, base)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	m.now = func() time.Time { return base.Add(time.Minute) }
	pruned := m.PruneExpired()
	if len(pruned) != 1 || pruned[0].Key != "short" {
		t.Fatalf("Expected only short pruned, got %v", pruned)
	}
	if !m.Contains("long") {
		t.Error("Unexpired entry should survive the prune")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	m := NewMemoryStore(10)
	now := time.Now()

	if _, err := m.Put(testEntry("a", 4, time.Minute, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !m.Delete("a") {
		t.Error("Delete of present key should return true")
	}
	if m.Delete("a") {
		t.Error("Second delete should return false")
	}
	if m.Bytes() != 0 {
		t.Errorf("Byte accounting after delete: got %d", m.Bytes())
	}
}

func TestMemoryStore_DirtyTracking(t *testing.T) {
	m := NewMemoryStore(10)
	now := time.Now()

	dirty := testEntry("wb", 4, time.Minute, now)
	dirty.Dirty = true
	if _, err := m.Put(dirty); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := m.Put(testEntry("clean", 4, time.Minute, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries := m.DirtyEntries()
	if len(entries) != 1 || entries[0].Key != "wb" {
		t.Fatalf("Expected one dirty entry, got %v", entries)
	}

	m.MarkClean("wb")
	if len(m.DirtyEntries()) != 0 {
		t.Error("MarkClean should clear the dirty flag")
	}
}

func TestMemoryStore_PeekDoesNotTouch(t *testing.T) {
	m := NewMemoryStore(10)
	now := time.Now()

	if _, err := m.Put(testEntry("a", 4, time.Minute, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, ok := m.Peek("a")
	if !ok {
		t.Fatal("Peek should find the entry")
	}
	if entry.AccessCount != 0 {
		t.Errorf("Peek must not touch the entry: access count %d", entry.AccessCount)
	}
}
