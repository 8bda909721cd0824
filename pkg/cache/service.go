package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jobpilot/smartcache/pkg/logging"
	"github.com/jobpilot/smartcache/pkg/store"
)

// Config holds the cache service configuration.
type Config struct {
	// L1Capacity is the maximum number of entries in the memory tier.
	L1Capacity int

	// CompressionThreshold is the serialized size in bytes above which
	// values are compressed.
	CompressionThreshold int

	// DefaultStrategy is the write strategy used when the caller does
	// not choose one (and by warming and promotion).
	DefaultStrategy CacheStrategy

	// WarmConcurrency bounds parallel warm loads.
	WarmConcurrency int

	// MaintenanceInterval drives the eviction/expiry/flush sweep.
	MaintenanceInterval time.Duration

	// AnalyzeInterval drives access-pattern reclassification.
	AnalyzeInterval time.Duration

	// WarmInterval drives the registered warm set refresh.
	WarmInterval time.Duration

	// HotKeyStaleAfter is the idle period after which a hot key is
	// migrated to cold by the analyzer.
	HotKeyStaleAfter time.Duration

	// FlushRetry configures backoff for write-back flushes and
	// eviction demotions.
	FlushRetry store.RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		L1Capacity:           DefaultL1Capacity,
		CompressionThreshold: DefaultCompressionThreshold,
		DefaultStrategy:      WriteThrough,
		WarmConcurrency:      DefaultWarmConcurrency,
		MaintenanceInterval:  1 * time.Minute,
		AnalyzeInterval:      5 * time.Minute,
		WarmInterval:         10 * time.Minute,
		HotKeyStaleAfter:     1 * time.Hour,
		FlushRetry:           store.DefaultRetryConfig(),
	}
}

// OptimizeReport summarizes one Optimize pass.
type OptimizeReport struct {
	Expired  int `json:"expired"`
	Promoted int `json:"promoted"`
	Demoted  int `json:"demoted"`
}

// Service is the cache orchestrator: it owns the L1 tier, consults the
// access tracker and placement optimizer on every operation, fans out
// writes per strategy, and runs the background maintenance loops.
//
// Construct once at the composition root with New and stop with
// Shutdown; there is no process-wide instance.
type Service struct {
	cfg       Config
	codec     *Codec
	l1        *MemoryStore
	l2        store.TierStore
	l3        store.TierStore
	tracker   *Tracker
	placement *Placement
	inv       *Invalidator
	warmer    *Warmer
	stats     *stats
	logger    zerolog.Logger

	now func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	warmMu     sync.Mutex
	warmKeys   []string
	warmLoader WarmLoader
}

// New creates and starts a cache service. l2 and l3 may be nil to run
// with fewer tiers; the read and write paths skip absent tiers.
func New(cfg Config, l2, l3 store.TierStore) *Service {
	if cfg.L1Capacity <= 0 {
		cfg.L1Capacity = DefaultL1Capacity
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = 1 * time.Minute
	}
	if cfg.AnalyzeInterval <= 0 {
		cfg.AnalyzeInterval = 5 * time.Minute
	}
	if cfg.WarmInterval <= 0 {
		cfg.WarmInterval = 10 * time.Minute
	}
	if cfg.HotKeyStaleAfter <= 0 {
		cfg.HotKeyStaleAfter = 1 * time.Hour
	}
	if !cfg.DefaultStrategy.Valid() {
		cfg.DefaultStrategy = WriteThrough
	}
	if cfg.FlushRetry.MaxAttempts <= 0 {
		cfg.FlushRetry = store.DefaultRetryConfig()
	}

	logger := logging.NewLogger("cache")
	tracker := NewTracker()

	s := &Service{
		cfg:       cfg,
		codec:     NewCodec(cfg.CompressionThreshold),
		l1:        NewMemoryStore(cfg.L1Capacity),
		l2:        l2,
		l3:        l3,
		tracker:   tracker,
		placement: NewPlacement(tracker),
		stats:     &stats{},
		logger:    logger,
		now:       time.Now,
	}
	s.inv = NewInvalidator(s.l1, tracker, logger, l2, l3)
	s.warmer = NewWarmer(s, cfg.WarmConcurrency, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(3)
	go s.maintenanceLoop(ctx)
	go s.analyzeLoop(ctx)
	go s.warmLoop(ctx)

	return s
}

// Shutdown stops the background loops and drains pending write-back
// flushes. Returns the context error if the drain does not finish in
// time.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Drain: flush remaining dirty entries synchronously.
	for _, entry := range s.l1.DirtyEntries() {
		if s.flushEntry(ctx, entry) {
			s.l1.MarkClean(entry.Key)
			s.stats.flushes.Add(1)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	s.logger.Info().Msg("Cache service shut down")
	return nil
}

// Get returns the decoded serialized bytes for key, walking L1 -> L2 ->
// L3 and promoting on the way back up when the key is hot. A miss in
// every tier returns found=false; backing-store failures degrade, they
// never error.
func (s *Service) Get(ctx context.Context, key string) ([]byte, bool) {
	start := s.now()
	s.stats.requests.Add(1)
	s.tracker.Record(key)
	defer func() {
		if d := s.now().Sub(start); d >= 0 {
			s.stats.observeGet(d)
			cacheGetDuration.Observe(d.Seconds())
		}
	}()

	// L1
	if entry, ok := s.l1.Get(key); ok {
		plain, err := s.codec.Decompress(entry.Value, entry.Compressed)
		if err == nil {
			s.stats.l1Hits.Add(1)
			cacheHits.WithLabelValues("l1").Inc()
			return plain, true
		}
		s.dropCorrupted(ctx, LevelL1, key, err)
	}

	// L2
	if data, ok := s.tierGet(ctx, s.l2, &s.stats.l2Degraded, key); ok {
		plain, err := s.codec.Decompress(data, IsGzipped(data))
		if err == nil {
			s.stats.l2Hits.Add(1)
			cacheHits.WithLabelValues("l2").Inc()
			if s.placement.ShouldPromote(key, s.l1.Contains(key)) {
				s.promote(key, data)
			}
			return plain, true
		}
		s.dropCorrupted(ctx, LevelL2, key, err)
	}

	// L3
	if data, ok := s.tierGet(ctx, s.l3, &s.stats.l3Degraded, key); ok {
		plain, err := s.codec.Decompress(data, IsGzipped(data))
		if err == nil {
			s.stats.l3Hits.Add(1)
			cacheHits.WithLabelValues("l3").Inc()
			if s.placement.ShouldPromote(key, s.l1.Contains(key)) {
				s.promote(key, data)
			}
			if s.l2 != nil && s.placement.ShouldCacheInL2(key) {
				s.l2.Set(ctx, key, data, s.placement.AdaptiveTTL(key))
			}
			return plain, true
		}
		s.dropCorrupted(ctx, LevelL3, key, err)
	}

	s.stats.misses.Add(1)
	cacheMisses.Inc()
	return nil, false
}

// GetInto decodes the cached value for key into out. A decode failure
// against out's type is treated as a miss and logged.
func (s *Service) GetInto(ctx context.Context, key string, out any) bool {
	data, found := s.Get(ctx, key)
	if !found {
		return false
	}
	if err := s.codec.Decode(data, false, out); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cached value does not decode into target")
		return false
	}
	return true
}

// Set stores value under key with an explicit TTL and strategy.
// ttl <= 0 and unknown strategies are caller errors. An empty strategy
// selects the configured default.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration, strategy CacheStrategy) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}
	if strategy == "" {
		strategy = s.cfg.DefaultStrategy
	}
	if !strategy.Valid() {
		return false, ErrInvalidStrategy
	}

	data, compressed, plainSize, err := s.codec.Encode(value)
	if err != nil {
		cacheErrors.WithLabelValues("encode").Inc()
		return false, err
	}
	if compressed {
		saved := int64(plainSize - len(data))
		s.stats.compressionSaved.Add(saved)
		s.stats.compressionCount.Add(1)
		cacheCompressionSaved.Add(float64(saved))
	}

	s.tracker.Record(key)
	now := s.now()
	entry := &Entry{
		Key:          key,
		Value:        data,
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          ttl,
		SizeBytes:    len(data),
		Compressed:   compressed,
		Dirty:        strategy == WriteBack,
		Strategy:     strategy,
	}

	switch strategy {
	case WriteThrough:
		if err := s.putL1(entry); err != nil {
			return false, err
		}
		s.tierSet(ctx, s.l2, &s.stats.l2Degraded, key, data, ttl)
		s.tierSet(ctx, s.l3, &s.stats.l3Degraded, key, data, ttl)
		return true, nil

	case WriteBack:
		if err := s.putL1(entry); err != nil {
			return false, err
		}
		return true, nil

	default: // WriteAround
		ok2 := s.tierSet(ctx, s.l2, &s.stats.l2Degraded, key, data, ttl)
		ok3 := s.tierSet(ctx, s.l3, &s.stats.l3Degraded, key, data, ttl)
		return ok2 || ok3, nil
	}
}

// SetWithDefaults stores value with the adaptive TTL for key's current
// classification and the configured default strategy.
func (s *Service) SetWithDefaults(ctx context.Context, key string, value any) (bool, error) {
	return s.Set(ctx, key, value, s.placement.AdaptiveTTL(key), s.cfg.DefaultStrategy)
}

// Delete removes key from every tier, clears its access pattern and
// cascades through the dependency graph. Returns false if the key was
// absent everywhere.
func (s *Service) Delete(ctx context.Context, key string) bool {
	found := s.inv.Delete(ctx, key)
	cacheL1Bytes.Set(float64(s.l1.Bytes()))
	return found
}

// InvalidatePattern deletes every key matching the glob across all
// tiers and returns the summed count.
func (s *Service) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	count, err := s.inv.InvalidatePattern(ctx, pattern)
	if err != nil {
		return 0, err
	}
	cacheInvalidations.Add(float64(count))
	cacheL1Bytes.Set(float64(s.l1.Bytes()))
	return count, nil
}

// AddDependency registers a cascade edge: deleting a key matching
// source also invalidates every key matching dependent.
func (s *Service) AddDependency(source, dependent string) {
	s.inv.AddDependency(source, dependent)
}

// RemoveDependency unregisters a cascade edge.
func (s *Service) RemoveDependency(source, dependent string) {
	s.inv.RemoveDependency(source, dependent)
}

// WarmCache populates the given keys through the loader. Best-effort;
// returns the number of keys actually loaded and stored.
func (s *Service) WarmCache(ctx context.Context, keys []string, loader WarmLoader) (int, error) {
	return s.warmer.Warm(ctx, keys, loader)
}

// RegisterWarmup installs a warm set refreshed every WarmInterval by
// the background warming loop. Passing a nil loader clears it.
func (s *Service) RegisterWarmup(keys []string, loader WarmLoader) {
	s.warmMu.Lock()
	defer s.warmMu.Unlock()
	if loader == nil {
		s.warmKeys, s.warmLoader = nil, nil
		return
	}
	s.warmKeys = append([]string(nil), keys...)
	s.warmLoader = loader
}

// Optimize removes expired L1 entries, promotes currently-hot keys not
// yet resident in L1, and demotes currently-cold L1 keys to L2.
func (s *Service) Optimize(ctx context.Context) OptimizeReport {
	var report OptimizeReport

	expired := s.l1.PruneExpired()
	report.Expired = len(expired)
	s.stats.expirations.Add(int64(len(expired)))

	for _, key := range s.tracker.HotKeys() {
		if s.l1.Contains(key) {
			continue
		}
		data, ok := s.tierGet(ctx, s.l2, &s.stats.l2Degraded, key)
		if !ok {
			data, ok = s.tierGet(ctx, s.l3, &s.stats.l3Degraded, key)
		}
		if ok {
			s.promote(key, data)
			report.Promoted++
		}
	}

	for _, key := range s.l1.Keys() {
		if s.tracker.Classify(key) != Cold {
			continue
		}
		entry, ok := s.l1.Peek(key)
		if !ok {
			continue
		}
		s.l1.Delete(key)
		s.demote(ctx, entry)
		report.Demoted++
	}

	cacheL1Bytes.Set(float64(s.l1.Bytes()))
	s.logger.Debug().
		Int("expired", report.Expired).
		Int("promoted", report.Promoted).
		Int("demoted", report.Demoted).
		Msg("Optimize pass complete")
	return report
}

// Stats returns a snapshot of the running counters.
func (s *Service) Stats() StatsSnapshot {
	return s.stats.snapshot(s.l1.Len(), s.l1.Bytes())
}

// tierGet reads from a backing tier and refreshes its degraded flag.
func (s *Service) tierGet(ctx context.Context, tier store.TierStore, flag *atomic.Bool, key string) ([]byte, bool) {
	if tier == nil {
		return nil, false
	}
	data, ok := tier.Get(ctx, key)
	s.refreshDegraded(tier, flag)
	return data, ok
}

// tierSet writes to a backing tier best-effort and refreshes its
// degraded flag.
func (s *Service) tierSet(ctx context.Context, tier store.TierStore, flag *atomic.Bool, key string, data []byte, ttl time.Duration) bool {
	if tier == nil {
		return false
	}
	ok := tier.Set(ctx, key, data, ttl)
	s.refreshDegraded(tier, flag)
	return ok
}

func (s *Service) refreshDegraded(tier store.TierStore, flag *atomic.Bool) {
	degraded := !tier.Healthy()
	if flag.Swap(degraded) != degraded {
		level := "l2"
		if tier == s.l3 {
			level = "l3"
		}
		value := 0.0
		if degraded {
			value = 1.0
			s.logger.Warn().Str("tier", tier.Name()).Msg("Backing tier degraded")
		} else {
			s.logger.Info().Str("tier", tier.Name()).Msg("Backing tier recovered")
		}
		cacheTierDegraded.WithLabelValues(level).Set(value)
	}
}

// putL1 inserts into the memory tier and demotes whatever the insert
// evicted. Capacity errors are fatal to the triggering Set.
func (s *Service) putL1(entry *Entry) error {
	evicted, err := s.l1.Put(entry)
	for _, e := range evicted {
		s.stats.evictions.Add(1)
		cacheEvictions.Inc()
		s.evict(e)
	}
	cacheL1Bytes.Set(float64(s.l1.Bytes()))
	if err != nil {
		cacheErrors.WithLabelValues("capacity").Inc()
		s.logger.Error().Err(err).Str("key", entry.Key).Msg("L1 eviction freed no slot")
		return err
	}
	return nil
}

// evict handles an entry dropped from L1: dirty entries are flushed,
// re-accessed entries are demoted, one-shot entries are dropped.
// Both writes are fire-and-forget.
func (s *Service) evict(entry *Entry) {
	if entry.Dirty {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if s.flushEntry(ctx, entry) {
				s.stats.flushes.Add(1)
			}
		}()
		return
	}
	if entry.AccessCount > 1 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.demote(ctx, entry)
		}()
	}
}

// demote copies an entry out of L1 into L2 with its remaining TTL.
func (s *Service) demote(ctx context.Context, entry *Entry) {
	ttl := entry.RemainingTTL(s.now())
	if ttl <= 0 {
		return
	}
	if entry.Dirty {
		if s.flushEntry(ctx, entry) {
			s.stats.flushes.Add(1)
		}
		return
	}
	if s.l2 == nil {
		return
	}
	if store.RetrySet(ctx, s.cfg.FlushRetry, s.l2, entry.Key, entry.Value, ttl) {
		s.stats.demotions.Add(1)
		cacheDemotions.Inc()
	}
	s.refreshDegraded(s.l2, &s.stats.l2Degraded)
}

// flushEntry writes a dirty write-back entry to every available lower
// tier. Returns true only if all available tiers accepted it.
func (s *Service) flushEntry(ctx context.Context, entry *Entry) bool {
	ttl := entry.RemainingTTL(s.now())
	if ttl <= 0 {
		return true // expired before flush; nothing to persist
	}

	ok := true
	if s.l2 != nil {
		if !store.RetrySet(ctx, s.cfg.FlushRetry, s.l2, entry.Key, entry.Value, ttl) {
			ok = false
		}
		s.refreshDegraded(s.l2, &s.stats.l2Degraded)
	}
	if s.l3 != nil {
		if !store.RetrySet(ctx, s.cfg.FlushRetry, s.l3, entry.Key, entry.Value, ttl) {
			ok = false
		}
		s.refreshDegraded(s.l3, &s.stats.l3Degraded)
	}
	return ok
}

// promote copies a value found in a lower tier into L1 with a freshly
// computed adaptive TTL. The source copy stays where it is.
func (s *Service) promote(key string, data []byte) {
	now := s.now()
	entry := &Entry{
		Key:          key,
		Value:        data,
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          s.placement.AdaptiveTTL(key),
		SizeBytes:    len(data),
		Compressed:   IsGzipped(data),
		Strategy:     s.cfg.DefaultStrategy,
	}
	if err := s.putL1(entry); err != nil {
		return
	}
	s.stats.promotions.Add(1)
	cachePromotions.Inc()
	s.logger.Debug().Str("key", key).Msg("Promoted key to L1")
}

// dropCorrupted removes an undecodable entry from the tier it was read
// from and logs it; the read continues against the remaining tiers.
func (s *Service) dropCorrupted(ctx context.Context, level CacheLevel, key string, err error) {
	cacheErrors.WithLabelValues("decode").Inc()
	s.logger.Warn().Err(err).Str("key", key).Str("tier", string(level)).Msg("Dropping corrupted cache entry")

	switch level {
	case LevelL1:
		s.l1.Delete(key)
	case LevelL2:
		if s.l2 != nil {
			s.l2.Delete(ctx, key)
		}
	case LevelL3:
		if s.l3 != nil {
			s.l3.Delete(ctx, key)
		}
	}
}

// maintenanceLoop runs the eviction/expiry/flush sweep.
func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maintain(ctx)
		}
	}
}

// maintain prunes expired L1 entries, flushes dirty write-back entries
// and purges expired rows from the durable tier.
func (s *Service) maintain(ctx context.Context) {
	expired := s.l1.PruneExpired()
	s.stats.expirations.Add(int64(len(expired)))

	for _, entry := range s.l1.DirtyEntries() {
		if s.flushEntry(ctx, entry) {
			s.l1.MarkClean(entry.Key)
			s.stats.flushes.Add(1)
		}
	}

	if purger, ok := s.l3.(interface{ Purge(context.Context) int }); ok && s.l3 != nil {
		purger.Purge(ctx)
	}
	cacheL1Bytes.Set(float64(s.l1.Bytes()))
}

// analyzeLoop periodically re-sweeps access patterns so stale hot keys
// migrate to cold.
func (s *Service) analyzeLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.AnalyzeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed := s.tracker.Sweep(s.cfg.HotKeyStaleAfter)
			if changed > 0 {
				s.logger.Debug().Int("reclassified", changed).Msg("Access pattern sweep")
			}
		}
	}
}

// warmLoop refreshes the registered warm set.
func (s *Service) warmLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.WarmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.warmMu.Lock()
			keys, loader := s.warmKeys, s.warmLoader
			s.warmMu.Unlock()
			if loader == nil {
				continue
			}
			if _, err := s.warmer.Warm(ctx, keys, loader); err != nil {
				s.logger.Warn().Err(err).Msg("Periodic warming failed")
			}
		}
	}
}
