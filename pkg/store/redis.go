package store

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	// DefaultKeyPrefix namespaces cache keys in the shared Redis.
	DefaultKeyPrefix = "smartcache:"

	// scanBatchSize is the SCAN page size for pattern deletes.
	scanBatchSize = 100
)

// RedisStore is the shared remote tier (L2) backed by Redis.
//
// All operations run through a circuit breaker: after repeated
// consecutive transport failures the breaker opens and every call
// degrades immediately (found=false / ok=false) until the backend
// recovers. Cache misses do not count as failures.
type RedisStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	prefix  string
	logger  zerolog.Logger
}

// NewRedisStore creates the L2 tier over an existing Redis client.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}

	s := &RedisStore{
		client: client,
		prefix: DefaultKeyPrefix,
		logger: logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Redis circuit breaker state change")
		},
	})
	return s
}

// Name implements TierStore.
func (s *RedisStore) Name() string { return "redis" }

// Healthy reports whether the breaker currently admits traffic.
func (s *RedisStore) Healthy() bool {
	return s.breaker.State() != gobreaker.StateOpen
}

// Get implements TierStore.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	res, err := s.breaker.Execute(func() (any, error) {
		data, err := s.client.Get(ctx, s.prefix+key).Bytes()
		if err == redis.Nil {
			// A miss is a valid outcome, not a breaker failure.
			return []byte(nil), nil
		}
		return data, err
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Redis get degraded")
		return nil, false
	}
	data := res.([]byte)
	if data == nil {
		return nil, false
	}
	return data, true
}

// Set implements TierStore.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.Set(ctx, s.prefix+key, value, ttl).Err()
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Redis set degraded")
		return false
	}
	return true
}

// Delete implements TierStore.
func (s *RedisStore) Delete(ctx context.Context, key string) bool {
	res, err := s.breaker.Execute(func() (any, error) {
		return s.client.Del(ctx, s.prefix+key).Result()
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Redis delete degraded")
		return false
	}
	return res.(int64) > 0
}

// DeletePattern implements TierStore. The glob is translated to a Redis
// MATCH pattern ('*' and '?' carry over; Redis-specific specials are
// escaped) and matching keys are removed via SCAN.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) int {
	match := escapeRedisGlob(s.prefix) + translateRedisGlob(pattern)

	res, err := s.breaker.Execute(func() (any, error) {
		deleted := int64(0)
		iter := s.client.Scan(ctx, 0, match, scanBatchSize).Iterator()
		for iter.Next(ctx) {
			n, err := s.client.Del(ctx, iter.Val()).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		return deleted, iter.Err()
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("pattern", pattern).Msg("Redis pattern delete degraded")
		return 0
	}
	return int(res.(int64))
}

// translateRedisGlob maps the cache glob grammar onto Redis MATCH
// syntax. '*' and '?' are shared; Redis character classes and escapes
// have no counterpart in the cache grammar and are escaped to literals.
func translateRedisGlob(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '[', ']', '\\', '^':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// escapeRedisGlob escapes every MATCH metacharacter, including '*' and
// '?', for the literal key prefix.
func escapeRedisGlob(literal string) string {
	var b strings.Builder
	for i := 0; i < len(literal); i++ {
		switch c := literal[i]; c {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
