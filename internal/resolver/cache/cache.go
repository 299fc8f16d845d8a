// Package cache is the two-tier store from normalized organization name to
// previously resolved canonical URL: an in-process memo in front of a
// durable persisted map. Entries never expire by age; staleness is defined
// solely by blocklist membership, re-checked lazily on every read.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/grantscope/orgsite/internal/resolver/blocklist"
	"github.com/grantscope/orgsite/internal/store"
	"github.com/grantscope/orgsite/internal/urlutil"
	"github.com/grantscope/orgsite/pkg/metrics"
)

// Cache resolves names against the memo tier first, then the durable store.
type Cache struct {
	store   store.Store
	blocked *blocklist.Blocklist
	metrics *metrics.Metrics // nil disables eviction counting
	logger  *slog.Logger

	mu   sync.RWMutex
	memo map[string]string

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a Cache over the given durable store. m may be nil.
func New(st store.Store, blocked *blocklist.Blocklist, m *metrics.Metrics) *Cache {
	return &Cache{
		store:   st,
		blocked: blocked,
		metrics: m,
		memo:    make(map[string]string),
		logger:  slog.Default().With("component", "resolved-cache"),
	}
}

// Get returns the cached URL for the normalized key. A hit whose domain has
// since been blocklisted is treated as a miss and the entry is evicted in
// place.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.RLock()
	url, ok := c.memo[key]
	c.mu.RUnlock()

	if !ok {
		var err error
		url, ok, err = c.store.Get(ctx, key)
		if err != nil {
			c.logger.Error("store read failed", "key", key, "error", err)
			c.misses.Add(1)
			return "", false
		}
		if !ok {
			c.misses.Add(1)
			return "", false
		}
	}

	if c.blocked.Blocked(urlutil.Domain(url)) {
		c.logger.Info("evicting blocklisted cache entry", "key", key, "url", url)
		c.Evict(ctx, key)
		c.misses.Add(1)
		return "", false
	}

	c.mu.Lock()
	c.memo[key] = url
	c.mu.Unlock()

	c.hits.Add(1)
	return url, true
}

// Put writes through both tiers. A durable-store failure keeps the memo
// entry: the result is still correct for this process, and the next
// successful resolution rewrites it.
func (c *Cache) Put(ctx context.Context, key, url string) {
	c.mu.Lock()
	c.memo[key] = url
	c.mu.Unlock()

	if err := c.store.Put(ctx, key, url); err != nil {
		c.logger.Error("store write failed", "key", key, "error", err)
	}
}

// Evict removes the entry from both tiers.
func (c *Cache) Evict(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.memo, key)
	c.mu.Unlock()

	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Error("store delete failed", "key", key, "error", err)
		return
	}
	c.evictions.Add(1)
	if c.metrics != nil {
		c.metrics.CacheEvictionsTotal.Inc()
	}
}

// Stats returns hit, miss, and eviction counts since process start.
func (c *Cache) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}
