package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares resolved tenants across processes. Entries are stored as
// JSON under a configurable key prefix so multiple environments can share
// one Redis instance.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed tenant cache.
// Panics on nil client to fail fast during initialization.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if client == nil {
		panic("tenant: redis client is required")
	}
	if prefix == "" {
		prefix = "tenant:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		// Cache misses and transport errors both fall through to the store.
		return nil, false
	}

	var t Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		_ = c.client.Del(ctx, c.prefix+key).Err()
		return nil, false
	}
	return &t, true
}

func (c *RedisCache) Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	_ = c.client.Del(ctx, c.prefix+key).Err()
}
