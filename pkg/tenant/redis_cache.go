package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opinia/opinia/pkg/redis"
)

// redisCache stores tenants in Redis as JSON so multiple application
// instances share one cache. Lookup or decode failures are treated as
// cache misses so a degraded Redis never blocks tenant resolution.
type redisCache struct {
	storage   *redis.Storage
	keyPrefix string
}

// DefaultRedisKeyPrefix prefixes all tenant cache keys in Redis.
const DefaultRedisKeyPrefix = "tenant:"

// NewRedisCache creates a Redis-backed tenant cache.
func NewRedisCache(storage *redis.Storage, keyPrefix string) Cache {
	if storage == nil {
		panic("tenant: redis storage is required")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &redisCache{storage: storage, keyPrefix: keyPrefix}
}

// Get retrieves a tenant from Redis.
func (c *redisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	raw, err := c.storage.Get(ctx, c.keyPrefix+key)
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	var tenant Tenant
	if err := json.Unmarshal(raw, &tenant); err != nil {
		// Stale or corrupt entry, drop it so the next lookup repopulates.
		_ = c.storage.Delete(ctx, c.keyPrefix+key)
		return nil, false
	}

	return &tenant, true
}

// Set stores a tenant in Redis with the given TTL.
func (c *redisCache) Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) {
	if tenant == nil {
		return
	}
	raw, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	_ = c.storage.Set(ctx, c.keyPrefix+key, raw, ttl)
}

// Delete removes a tenant from Redis.
func (c *redisCache) Delete(ctx context.Context, key string) {
	_ = c.storage.Delete(ctx, c.keyPrefix+key)
}

// Close is a no-op, the underlying Redis client is owned by the caller.
func (c *redisCache) Close() error {
	return nil
}
