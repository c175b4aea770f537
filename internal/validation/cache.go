package validation

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedRuleSource decorates a RuleSource with a short TTL cache keyed by
// entity type. Rule edits become visible after the TTL; the admin API calls
// Invalidate to expose them immediately.
type CachedRuleSource struct {
	source RuleSource
	cache  *gocache.Cache
}

// NewCachedRuleSource creates a caching decorator around a rule source
func NewCachedRuleSource(source RuleSource, ttl time.Duration) *CachedRuleSource {
	return &CachedRuleSource{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedRuleSource) ListActive(ctx context.Context, entityType string) ([]*Rule, error) {
	if cached, exists := c.cache.Get(entityType); exists {
		return cached.([]*Rule), nil
	}

	rules, err := c.source.ListActive(ctx, entityType)
	if err != nil {
		return nil, err
	}

	c.cache.Set(entityType, rules, gocache.DefaultExpiration)
	return rules, nil
}

// Invalidate drops the cached rule set for an entity type
func (c *CachedRuleSource) Invalidate(entityType string) {
	c.cache.Delete(entityType)
}
