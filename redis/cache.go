package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shieldkit/shieldkit/cache"
)

// Cache provides typed JSON-serialized caching on Redis, implementing
// cache.Store[V]. Expiry is delegated to Redis TTLs and eviction to the
// server's own maxmemory policy, so there is no LRU bookkeeping here.
//
// All keys are prefixed with keyPrefix followed by a colon separator.
type Cache[V any] struct {
	client    *Client
	keyPrefix string
}

// NewCache creates a Cache backed by the given Redis client.
func NewCache[V any](client *Client, keyPrefix string) *Cache[V] {
	return &Cache[V]{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *Cache[V]) fullKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return c.keyPrefix + ":" + key
}

// Get deserializes JSON from Redis. A missing or expired key is a miss,
// not an error.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	raw, err := c.client.Get(ctx, c.fullKey(key))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("redis cache get %q: %w", key, err)
	}

	var val V
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return zero, false, fmt.Errorf("redis cache unmarshal %q: %w", key, err)
	}
	return val, true, nil
}

// Set serializes to JSON and stores with TTL. ttl must be positive.
func (c *Cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis cache marshal %q: %w", key, err)
	}
	if err := c.client.Set(ctx, c.fullKey(key), string(data), ttl); err != nil {
		return fmt.Errorf("redis cache set %q: %w", key, err)
	}
	return nil
}

// Delete removes the key.
func (c *Cache[V]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.fullKey(key)); err != nil {
		return fmt.Errorf("redis cache delete %q: %w", key, err)
	}
	return nil
}

// Clear removes entries whose key matches the glob pattern ("" or "*"
// removes everything under the prefix) and returns the number removed.
// Redis MATCH glob semantics line up with the in-memory cache's patterns.
func (c *Cache[V]) Clear(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		pattern = "*"
	}
	match := c.fullKey(pattern)

	rdb := c.client.Unwrap()
	removed := 0
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("redis cache scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...); err != nil {
				return removed, fmt.Errorf("redis cache clear %q: %w", pattern, err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// compile-time interface check
var _ cache.Store[any] = (*Cache[any])(nil)
