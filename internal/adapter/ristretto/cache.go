// Package ristretto implements the content cache port using dgraph-io/ristretto.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/selfai-labs/selfai/internal/port/cache"
)

// Cache holds recent remote generation results so repeated identical prompts
// skip the content backend.
type Cache struct {
	c *ristretto.Cache[string, string]
}

var _ cache.ContentCache = (*Cache)(nil)

// New creates a ristretto-backed content cache. maxCostBytes is the maximum
// total size of cached content in bytes.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves cached content for the given generation key.
func (c *Cache) Get(_ context.Context, key string) (string, bool) {
	return c.c.Get(key)
}

// Set stores generated content with the given TTL.
func (c *Cache) Set(_ context.Context, key, content string, ttl time.Duration) {
	c.c.SetWithTTL(key, content, int64(len(content)), ttl)
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
