package completeness

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryConfigStore is a config store backed by process memory, used in
// tests and by embedding callers without a database.
type InMemoryConfigStore struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewInMemoryConfigStore creates a new in-memory config store
func NewInMemoryConfigStore() *InMemoryConfigStore {
	return &InMemoryConfigStore{
		configs: make(map[string]*Config),
	}
}

func (s *InMemoryConfigStore) Get(ctx context.Context, entityType string) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, exists := s.configs[entityType]; exists {
		return cfg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, entityType)
}

func (s *InMemoryConfigStore) List(ctx context.Context) ([]*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.configs))
	for entityType := range s.configs {
		types = append(types, entityType)
	}
	sort.Strings(types)

	configs := make([]*Config, 0, len(types))
	for _, entityType := range types {
		configs = append(configs, s.configs[entityType])
	}
	return configs, nil
}

func (s *InMemoryConfigStore) Upsert(ctx context.Context, cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cfg
	now := time.Now().UTC()
	if existing, exists := s.configs[cfg.EntityType]; exists {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.configs[cfg.EntityType] = &stored
	return nil
}
