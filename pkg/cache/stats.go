package cache

import (
	"sync/atomic"
	"time"
)

// stats holds the hot-path counters. Lock-free atomics; every foreground
// operation increments, StatsSnapshot reads.
type stats struct {
	requests    atomic.Int64
	l1Hits      atomic.Int64
	l2Hits      atomic.Int64
	l3Hits      atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
	promotions  atomic.Int64
	demotions   atomic.Int64
	flushes     atomic.Int64

	compressionSaved atomic.Int64
	compressionCount atomic.Int64

	getLatencyNanos atomic.Int64
	getCount        atomic.Int64

	l2Degraded atomic.Bool
	l3Degraded atomic.Bool
}

// StatsSnapshot is the read-mostly view returned by Service.Stats.
type StatsSnapshot struct {
	Requests    int64 `json:"requests"`
	L1Hits      int64 `json:"l1_hits"`
	L2Hits      int64 `json:"l2_hits"`
	L3Hits      int64 `json:"l3_hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
	Promotions  int64 `json:"promotions"`
	Demotions   int64 `json:"demotions"`

	// WriteBackFlushes counts dirty entries flushed to lower tiers.
	WriteBackFlushes int64 `json:"write_back_flushes"`

	// HitRate is hits across all tiers over total requests.
	HitRate float64 `json:"hit_rate"`

	// L1Entries and L1Bytes describe current memory-tier usage.
	L1Entries int   `json:"l1_entries"`
	L1Bytes   int64 `json:"l1_bytes"`

	// CompressionSaved is bytes saved by compression; CompressionRatio
	// is saved bytes per compressed entry write.
	CompressionSaved int64   `json:"compression_saved"`
	CompressionCount int64   `json:"compression_count"`
	CompressionRatio float64 `json:"compression_ratio"`

	// AvgGetLatency is the mean foreground Get duration.
	AvgGetLatency time.Duration `json:"avg_get_latency"`

	// Degraded flags let operators detect tier outages; the cache
	// itself keeps serving from the remaining tiers.
	L2Degraded bool `json:"l2_degraded"`
	L3Degraded bool `json:"l3_degraded"`
}

// snapshot assembles a consistent-enough view of the counters.
func (s *stats) snapshot(l1Entries int, l1Bytes int64) StatsSnapshot {
	snap := StatsSnapshot{
		Requests:         s.requests.Load(),
		L1Hits:           s.l1Hits.Load(),
		L2Hits:           s.l2Hits.Load(),
		L3Hits:           s.l3Hits.Load(),
		Misses:           s.misses.Load(),
		Evictions:        s.evictions.Load(),
		Expirations:      s.expirations.Load(),
		Promotions:       s.promotions.Load(),
		Demotions:        s.demotions.Load(),
		WriteBackFlushes: s.flushes.Load(),
		L1Entries:        l1Entries,
		L1Bytes:          l1Bytes,
		CompressionSaved: s.compressionSaved.Load(),
		CompressionCount: s.compressionCount.Load(),
		L2Degraded:       s.l2Degraded.Load(),
		L3Degraded:       s.l3Degraded.Load(),
	}

	if snap.Requests > 0 {
		hits := snap.L1Hits + snap.L2Hits + snap.L3Hits
		snap.HitRate = float64(hits) / float64(snap.Requests)
	}
	if snap.CompressionCount > 0 {
		snap.CompressionRatio = float64(snap.CompressionSaved) / float64(snap.CompressionCount)
	}
	if count := s.getCount.Load(); count > 0 {
		snap.AvgGetLatency = time.Duration(s.getLatencyNanos.Load() / count)
	}
	return snap
}

// observeGet records one foreground Get duration.
func (s *stats) observeGet(d time.Duration) {
	s.getLatencyNanos.Add(int64(d))
	s.getCount.Add(1)
}
