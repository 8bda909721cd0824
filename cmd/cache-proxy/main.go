package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jobpilot/smartcache/pkg/cache"
	"github.com/jobpilot/smartcache/pkg/logging"
	"github.com/jobpilot/smartcache/pkg/store"
)

func main() {
	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	databaseURL := getEnv("DATABASE_URL", "")
	port := getEnv("PORT", "8080")
	l1Capacity := getEnvInt("L1_CAPACITY", cache.DefaultL1Capacity)

	ctx := context.Background()
	logger := logging.NewLogger("cache-proxy")

	// Setup Redis (L2)
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Printf("Connected to Redis at %s", redisURL)
	l2 := store.NewRedisStore(redisClient, logger)

	// Setup Postgres (L3), optional
	var db *sqlx.DB
	var l3 store.TierStore
	if databaseURL != "" {
		var err error
		db, err = sqlx.Connect("postgres", databaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		pg := store.NewPostgresStore(db, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to create cache schema: %v", err)
		}
		log.Printf("Connected to Postgres")
		l3 = pg
	}

	cfg := cache.DefaultConfig()
	cfg.L1Capacity = l1Capacity
	svc := cache.New(cfg, l2, l3)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown incomplete: %v", err)
		}
	}()

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient, db))
	http.HandleFunc("/cache/", cacheHandler(svc))
	http.HandleFunc("/invalidate", invalidateHandler(svc))
	http.HandleFunc("/stats", statsHandler(svc))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	log.Printf("Starting cache proxy server on %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client, db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, fmt.Sprintf("Redis not ready: %v", err), http.StatusServiceUnavailable)
			return
		}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, fmt.Sprintf("Postgres not ready: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// cacheHandler serves GET, PUT and DELETE on /cache/{key}. Values are
// JSON documents. PUT accepts optional ttl (seconds) and strategy query
// parameters; without a ttl the adaptive default is used.
func cacheHandler(svc *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/cache/")
		if key == "" {
			http.Error(w, "Missing cache key", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		switch r.Method {
		case http.MethodGet:
			data, found := svc.Get(ctx, key)
			if !found {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if _, err := w.Write(data); err != nil {
				log.Printf("Failed to write response: %v", err)
			}

		case http.MethodPut, http.MethodPost:
			var value any
			if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
				http.Error(w, fmt.Sprintf("Invalid JSON body: %v", err), http.StatusBadRequest)
				return
			}

			var err error
			if ttlParam := r.URL.Query().Get("ttl"); ttlParam != "" {
				seconds, convErr := strconv.Atoi(ttlParam)
				if convErr != nil {
					http.Error(w, "Invalid ttl parameter", http.StatusBadRequest)
					return
				}
				strategy := cache.CacheStrategy(r.URL.Query().Get("strategy"))
				_, err = svc.Set(ctx, key, value, time.Duration(seconds)*time.Second, strategy)
			} else {
				_, err = svc.SetWithDefaults(ctx, key, value)
			}
			if err != nil {
				http.Error(w, fmt.Sprintf("Store failed: %v", err), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			if !svc.Delete(ctx, key) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// invalidateHandler deletes every key matching the pattern query
// parameter across all tiers.
func invalidateHandler(svc *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		pattern := r.URL.Query().Get("pattern")

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		count, err := svc.InvalidatePattern(ctx, pattern)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid pattern: %v", err), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]int{"invalidated": count}); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	}
}

func statsHandler(svc *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Stats()); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Ignoring invalid %s value %q", key, value)
	}
	return defaultValue
}
