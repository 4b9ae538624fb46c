package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPostList = "posts:list"

// PostListCache keeps the marshaled GET /posts response in Redis for a short
// TTL. Writers invalidate it, so in-process reads after a write are fresh and
// cross-instance staleness is bounded by the TTL.
type PostListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPostListCache returns a new PostListCache.
func NewPostListCache(rdb *redis.Client, ttl time.Duration) *PostListCache {
	return &PostListCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached payload, or nil on a miss.
func (c *PostListCache) Get(ctx context.Context) ([]byte, error) {
	b, err := c.rdb.Get(ctx, keyPostList).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Set stores the payload with the configured TTL.
func (c *PostListCache) Set(ctx context.Context, payload []byte) error {
	return c.rdb.Set(ctx, keyPostList, payload, c.ttl).Err()
}

// Invalidate removes the cached payload (cache invalidation on write).
func (c *PostListCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, keyPostList).Err()
}
