// Package cache defines the port for caching remote generation results.
package cache

import (
	"context"
	"time"
)

// ContentCache stores generated content keyed by agent and prompt context.
// Only remote results are cached; fallback content is never stored.
type ContentCache interface {
	Get(ctx context.Context, key string) (content string, ok bool)
	Set(ctx context.Context, key, content string, ttl time.Duration)
}
