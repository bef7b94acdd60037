package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	pkgcache "Duka/pkg/cache"
)

// RedisCache shares fetched .bi5 blobs across worker processes. It builds
// its connection through pkg/cache.NewRedisCache (the same Redis client
// construction the rest of the ops daemon uses) but talks to the
// underlying *redis.Client directly with raw GET/SET, since the fetcher's
// payloads are opaque byte blobs rather than JSON-able values.
type RedisCache struct {
	base *pkgcache.RedisCache
	ttl  time.Duration
}

// NewRedisCache wraps an already-constructed pkg/cache.RedisCache. ttl <= 0
// means entries never expire.
func NewRedisCache(base *pkgcache.RedisCache, ttl time.Duration) *RedisCache {
	return &RedisCache{base: base, ttl: ttl}
}

func (c *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.base.Client().Get(ctx, c.wrap(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) SetBytes(ctx context.Context, key string, value []byte) error {
	return c.base.Client().Set(ctx, c.wrap(key), value, c.ttl).Err()
}

func (c *RedisCache) wrap(key string) string {
	return "bytes:" + key
}
