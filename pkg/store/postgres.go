package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	// Registers the postgres driver used by the durable tier.
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// PostgresStore is the durable backing tier (L3): a single key/value
// table with an expiry column. Expired rows are treated as absent,
// removed when a read trips over them, and purged in bulk by the
// orchestrator's maintenance sweep via Purge.
type PostgresStore struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// NewPostgresStore creates the L3 tier over an existing database handle.
func NewPostgresStore(db *sqlx.DB, logger zerolog.Logger) *PostgresStore {
	if db == nil {
		panic("database handle cannot be nil")
	}

	s := &PostgresStore{
		db:     db,
		logger: logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres",
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
				Msg("Postgres circuit breaker state change")
		},
	})
	return s
}

// EnsureSchema creates the cache table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createCacheTable)
	return err
}

// Name implements TierStore.
func (s *PostgresStore) Name() string { return "postgres" }

// Healthy reports whether the breaker currently admits traffic.
func (s *PostgresStore) Healthy() bool {
	return s.breaker.State() != gobreaker.StateOpen
}

// Get implements TierStore.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool) {
	res, err := s.breaker.Execute(func() (any, error) {
		var row struct {
			Value     []byte    `db:"value"`
			ExpiresAt time.Time `db:"expires_at"`
		}
		err := s.db.QueryRowContext(ctx,
			`SELECT value, expires_at FROM cache_entries WHERE key = $1`, key).
			Scan(&row.Value, &row.ExpiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return []byte(nil), nil
		}
		if err != nil {
			return nil, err
		}
		if !row.ExpiresAt.After(time.Now()) {
			// Expired row; drop it and report a miss.
			_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
			return []byte(nil), nil
		}
		return row.Value, nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Postgres get degraded")
		return nil, false
	}
	data := res.([]byte)
	if data == nil {
		return nil, false
	}
	return data, true
}

// Set implements TierStore.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	expiresAt := time.Now().Add(ttl)
	_, err := s.breaker.Execute(func() (any, error) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO cache_entries (key, value, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
			key, value, expiresAt)
		return nil, err
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Postgres set degraded")
		return false
	}
	return true
}

// Delete implements TierStore.
func (s *PostgresStore) Delete(ctx context.Context, key string) bool {
	res, err := s.breaker.Execute(func() (any, error) {
		result, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
		if err != nil {
			return int64(0), err
		}
		return result.RowsAffected()
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Postgres delete degraded")
		return false
	}
	return res.(int64) > 0
}

// DeletePattern implements TierStore. The glob is translated to a SQL
// LIKE pattern ('*' -> '%', '?' -> '_', LIKE metacharacters escaped).
func (s *PostgresStore) DeletePattern(ctx context.Context, pattern string) int {
	res, err := s.breaker.Execute(func() (any, error) {
		result, err := s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key LIKE $1`, globToLike(pattern))
		if err != nil {
			return int64(0), err
		}
		return result.RowsAffected()
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("pattern", pattern).Msg("Postgres pattern delete degraded")
		return 0
	}
	return int(res.(int64))
}

// Purge removes all expired rows. Called by the maintenance sweep.
func (s *PostgresStore) Purge(ctx context.Context) int {
	res, err := s.breaker.Execute(func() (any, error) {
		result, err := s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE expires_at <= now()`)
		if err != nil {
			return int64(0), err
		}
		return result.RowsAffected()
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("Postgres purge degraded")
		return 0
	}
	return int(res.(int64))
}

// globToLike translates the cache glob grammar into a LIKE pattern.
func globToLike(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
