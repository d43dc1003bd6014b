package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// signedURLKeyPrefix namespaces cached signed URLs by object path.
const signedURLKeyPrefix = "signed-url:"

// ttlMargin keeps cached URLs from being served right at their expiry
// moment; a URL within the margin of expiring is treated as absent.
const ttlMargin = 5 * time.Minute

// SignedURLCache caches presigned URLs keyed by storage-object path so
// list screens don't re-sign the same photo on every refresh.
type SignedURLCache struct {
	client *redis.Client
}

// NewSignedURLCache wraps a Redis client. A nil client yields a cache that
// misses on every lookup, keeping the signing path fully functional when
// Redis is not configured.
func NewSignedURLCache(client *redis.Client) *SignedURLCache {
	return &SignedURLCache{client: client}
}

// Get returns the cached URL for a path, or "" on miss or any Redis error.
func (c *SignedURLCache) Get(ctx context.Context, path string) string {
	if c == nil || c.client == nil {
		return ""
	}
	url, err := c.client.Get(ctx, signedURLKeyPrefix+path).Result()
	if err != nil {
		return ""
	}
	return url
}

// Put stores a URL for the lifetime of its signature minus the safety
// margin. URLs with a lifetime inside the margin are not cached at all.
func (c *SignedURLCache) Put(ctx context.Context, path, url string, expiry time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	ttl := expiry - ttlMargin
	if ttl <= 0 {
		return
	}
	c.client.Set(ctx, signedURLKeyPrefix+path, url, ttl)
}

// Invalidate drops a cached URL, used when the underlying object is
// replaced or deleted.
func (c *SignedURLCache) Invalidate(ctx context.Context, path string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, signedURLKeyPrefix+path)
}
