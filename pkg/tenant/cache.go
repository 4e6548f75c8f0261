package tenant

import (
	"context"
	"sync"
	"time"
)

// Cache is the interface for resolver-level tenant caching. Keys are the
// lookup identifiers the resolver uses (host, subdomain), not tenant IDs.
type Cache interface {
	// Get retrieves a tenant from cache by key.
	Get(ctx context.Context, key string) (*Tenant, bool)

	// Set stores a tenant in cache with a TTL.
	Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration)

	// Delete removes a tenant from cache. Call on tenant mutation so
	// status changes are picked up before the TTL expires.
	Delete(ctx context.Context, key string)
}

// NoOpCache disables caching, useful for testing or when caching is unwanted.
type NoOpCache struct{}

func (NoOpCache) Get(ctx context.Context, key string) (*Tenant, bool)                  { return nil, false }
func (NoOpCache) Set(ctx context.Context, key string, tenant *Tenant, _ time.Duration) {}
func (NoOpCache) Delete(ctx context.Context, key string)                               {}

type cacheEntry struct {
	tenant    *Tenant
	expiresAt time.Time
}

// InMemoryCache is a TTL cache for single-process deployments.
// Safe for concurrent use.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: make(map[string]cacheEntry)}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.Delete(ctx, key)
		return nil, false
	}
	return entry.tenant, true
}

func (c *InMemoryCache) Set(_ context.Context, key string, tenant *Tenant, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{tenant: tenant, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
