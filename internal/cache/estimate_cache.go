package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/karlseguin/ccache/v3"

	"renthub/internal/pricing"
)

const localMaxEntries = 1000

// EstimateCache keeps computed breakdowns in a local LRU, backed by an optional shared Remote.
// Breakdowns depend only on the property's pricing and the request, so a short TTL bounds staleness
// after a price change.
type EstimateCache struct {
	local  *ccache.Cache[*pricing.Breakdown]
	remote Remote
	ttl    time.Duration
}

// NewEstimateCache creates the cache. remote may be nil for a process-local cache.
func NewEstimateCache(remote Remote, ttl time.Duration) *EstimateCache {
	return &EstimateCache{
		local:  ccache.New(ccache.Configure[*pricing.Breakdown]().MaxSize(localMaxEntries)),
		remote: remote,
		ttl:    ttl,
	}
}

// Get looks in the local level first, then the remote one, promoting remote hits.
func (c *EstimateCache) Get(ctx context.Context, key string) (*pricing.Breakdown, bool) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		return item.Value(), true
	}
	if c.remote == nil {
		return nil, false
	}

	raw, err := c.remote.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			slog.Warn("estimate cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var b pricing.Breakdown
	if err := json.Unmarshal(raw, &b); err != nil {
		slog.Warn("estimate cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	c.local.Set(key, &b, c.ttl)
	return &b, true
}

// Set writes both levels. Remote failures are logged and otherwise ignored.
func (c *EstimateCache) Set(ctx context.Context, key string, b *pricing.Breakdown) {
	c.local.Set(key, b, c.ttl)
	if c.remote == nil {
		return
	}
	raw, err := json.Marshal(b)
	if err != nil {
		slog.Warn("estimate cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.remote.Set(ctx, key, raw, c.ttl); err != nil {
		slog.Warn("estimate cache write failed", "key", key, "error", err)
	}
}

// Delete drops key from both levels.
func (c *EstimateCache) Delete(ctx context.Context, key string) {
	c.local.Delete(key)
	if c.remote != nil {
		if err := c.remote.Delete(ctx, key); err != nil {
			slog.Warn("estimate cache delete failed", "key", key, "error", err)
		}
	}
}

// Stop halts the local cache's background worker.
func (c *EstimateCache) Stop() {
	c.local.Stop()
}
