package completeness

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedConfigStore decorates a ConfigStore with a TTL read cache so batch
// sweeps and hot validation paths do not refetch configuration per instance.
// Writes invalidate the cached entry.
type CachedConfigStore struct {
	store ConfigStore
	cache *gocache.Cache
}

// NewCachedConfigStore creates a caching decorator around a config store
func NewCachedConfigStore(store ConfigStore, ttl time.Duration) *CachedConfigStore {
	return &CachedConfigStore{
		store: store,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedConfigStore) Get(ctx context.Context, entityType string) (*Config, error) {
	if cached, exists := c.cache.Get(entityType); exists {
		return cached.(*Config), nil
	}

	cfg, err := c.store.Get(ctx, entityType)
	if err != nil {
		return nil, err
	}

	c.cache.Set(entityType, cfg, gocache.DefaultExpiration)
	return cfg, nil
}

// List is served from the backing store; listings are an admin operation and
// not worth caching.
func (c *CachedConfigStore) List(ctx context.Context) ([]*Config, error) {
	return c.store.List(ctx)
}

func (c *CachedConfigStore) Upsert(ctx context.Context, cfg *Config) error {
	if err := c.store.Upsert(ctx, cfg); err != nil {
		return err
	}

	c.cache.Delete(cfg.EntityType)
	return nil
}
