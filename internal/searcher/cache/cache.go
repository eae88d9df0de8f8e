// Package cache stores ranked search results in Redis keyed by canonical
// query and search mode. Concurrent misses for the same key are collapsed
// into one computation and a circuit breaker stops Redis calls while the
// server is failing; cache errors never fail a search.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client used by the cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

var _ Store = (*pkgredis.Client)(nil)

// Entry is a cached search: every ranked result for one canonical query.
type Entry struct {
	Query   string         `json:"query"`
	Exact   bool           `json:"exact"`
	Results []index.Result `json:"results"`
}

// QueryCache caches Entries.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over store with entries expiring after ttl.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			IsFailure: func(err error) bool {
				return err != nil && !pkgredis.IsNilError(err) && !errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, state resilience.State) {
				m.BreakerState(name, int(state))
			},
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached entry for query in the given mode.
func (c *QueryCache) Get(ctx context.Context, query string, exact bool) (*Entry, bool) {
	key := BuildKey(query, exact)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheLookup(true)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &entry, true
}

// Set stores entry under its query and mode.
func (c *QueryCache) Set(ctx context.Context, entry *Entry) {
	key := BuildKey(entry.Query, entry.Exact)
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry or computes, stores and returns it.
// The bool result reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	exact bool,
	computeFn func() (*Entry, error),
) (*Entry, bool, error) {
	if entry, ok := c.Get(ctx, query, exact); ok {
		return entry, true, nil
	}
	key := BuildKey(query, exact)
	val, err, _ := c.group.Do(key, func() (any, error) {
		entry, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate removes every cached search.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the state of the cache's circuit breaker.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheLookup(false)
}

// BuildKey hashes a canonical query and mode into a Redis key.
func BuildKey(query string, exact bool) string {
	mode := "partial"
	if exact {
		mode = "exact"
	}
	hash := sha256.Sum256([]byte(mode + "|" + query))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
