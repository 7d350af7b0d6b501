package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache metrics — atomic counters for thread-safe access.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// CacheStats returns cumulative run-cache hit/miss counts.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// RunCache is the per-run extraction cache: L1 in-memory guarded by a mutex,
// plus optional L2 Redis that survives restarts. L1 is the only mutable state
// shared between batch workers; every read-modify-write goes through mu.
type RunCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	rdb        *redis.Client // nil if Redis unavailable
	ttl        time.Duration
	maxEntries int
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewRunCache builds the per-run cache. redisURL can be empty to disable L2;
// an unreachable Redis downgrades to L1-only with a warning, never an error.
func NewRunCache(redisURL string, ttl time.Duration, maxEntries int) *RunCache {
	c := &RunCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}
	return c
}

// Get tries L1, then L2. On L2 hit, populates L1.
func (c *RunCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		cacheMisses.Add(1)
		return nil, false
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		cacheHits.Add(1)
		return entry.data, true
	}
	if ok {
		delete(c.entries, key) // expired
	}
	c.mu.Unlock()

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			cacheHits.Add(1)
			c.store(key, data)
			return data, true
		}
	}

	cacheMisses.Add(1)
	return nil, false
}

// Put writes to both tiers. L2 failures are ignored; the cache is best-effort.
func (c *RunCache) Put(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	c.store(key, data)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.String("key", key), slog.Any("error", err))
		}
	}
}

func (c *RunCache) store(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Bound L1 growth; a full cache simply stops accepting new keys for the run.
	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			return
		}
	}
	c.entries[key] = cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)}
}
