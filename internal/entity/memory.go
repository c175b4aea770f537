package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// InMemoryStore is an entity store backed by process memory. It is used in
// tests and as an embedding-friendly store for callers without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*Stored
	scores  map[string]map[string]Completeness
	logger  *zap.Logger
}

// NewInMemoryStore creates a new in-memory entity store
func NewInMemoryStore(logger *zap.Logger) *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]map[string]*Stored),
		scores:  make(map[string]map[string]Completeness),
		logger:  logger,
	}
}

// Put inserts or replaces a record
func (s *InMemoryStore) Put(entityType, id string, attributes Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[entityType] == nil {
		s.records[entityType] = make(map[string]*Stored)
	}
	s.records[entityType][id] = &Stored{
		ID:         id,
		EntityType: entityType,
		Attributes: attributes,
	}
}

func (s *InMemoryStore) Get(ctx context.Context, entityType, id string) (*Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, exists := s.records[entityType][id]; exists {
		return record, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, entityType, id)
}

// List returns records ordered by ID, starting after afterID. Paging by ID
// keeps iteration deterministic and memory-bounded.
func (s *InMemoryStore) List(ctx context.Context, entityType, afterID string, limit int) ([]*Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records[entityType]))
	for id := range s.records[entityType] {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	results := make([]*Stored, 0, len(ids))
	for _, id := range ids {
		results = append(results, s.records[entityType][id])
	}

	return results, nil
}

func (s *InMemoryStore) UpdateCompleteness(ctx context.Context, entityType, id string, result Completeness) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[entityType][id]; !exists {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, entityType, id)
	}

	if s.scores[entityType] == nil {
		s.scores[entityType] = make(map[string]Completeness)
	}
	s.scores[entityType][id] = result

	s.logger.Debug("Updated completeness",
		zap.String("entity_type", entityType),
		zap.String("entity_id", id),
		zap.Int("score", result.Score))

	return nil
}

// GetCompleteness returns the last persisted completeness for an entity
func (s *InMemoryStore) GetCompleteness(entityType, id string) (Completeness, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, exists := s.scores[entityType][id]
	return result, exists
}
