package cache

import (
	"testing"
	"time"
)

func TestPlacement_AdaptiveTTL(t *testing.T) {
	tr, clock := trackerAt(time.Now())
	p := NewPlacement(tr)

	// Untracked key gets the default TTL.
	if got := p.AdaptiveTTL("unknown"); got != TTLDefault {
		t.Errorf("Untracked key TTL: got %v, want %v", got, TTLDefault)
	}

	// A handful of accesses per hour earns the warm TTL.
	for i := 0; i < 3; i++ {
		*clock = clock.Add(time.Minute)
		tr.Record("warm")
	}
	if got := p.AdaptiveTTL("warm"); got != TTLWarm {
		t.Errorf("Warm key TTL: got %v, want %v", got, TTLWarm)
	}

	// Hot keys get the long TTL.
	for i := 0; i < 15; i++ {
		*clock = clock.Add(time.Minute)
		tr.Record("hot")
	}
	if got := p.AdaptiveTTL("hot"); got != TTLHot {
		t.Errorf("Hot key TTL: got %v, want %v", got, TTLHot)
	}
}

func TestPlacement_ShouldPromote(t *testing.T) {
	tr, clock := trackerAt(time.Now())
	p := NewPlacement(tr)

	for i := 0; i < 12; i++ {
		*clock = clock.Add(time.Minute)
		tr.Record("hot")
	}
	tr.Record("rare")

	if !p.ShouldPromote("hot", false) {
		t.Error("Hot key absent from L1 should be promoted")
	}
	if p.ShouldPromote("hot", true) {
		t.Error("Key already in L1 must not be promoted again")
	}
	if p.ShouldPromote("rare", false) {
		t.Error("Infrequent key should not be promoted")
	}
}

func TestPlacement_ShouldCacheInL2(t *testing.T) {
	tr, _ := trackerAt(time.Now())
	p := NewPlacement(tr)

	if p.ShouldCacheInL2("oneshot") {
		t.Error("Untracked key should not be backfilled into L2")
	}

	tr.Record("repeat")
	tr.Record("repeat")
	if !p.ShouldCacheInL2("repeat") {
		t.Error("Repeatedly read key should be backfilled into L2")
	}
}
