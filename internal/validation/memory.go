package validation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryRuleStore is a rule store backed by process memory, used in tests
// and by embedding callers without a database.
type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*Rule),
	}
}

func (s *InMemoryRuleStore) Create(ctx context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule already exists: %s", rule.ID)
	}

	stored := *rule
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.rules[rule.ID] = &stored
	return nil
}

func (s *InMemoryRuleStore) GetByID(ctx context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rule, exists := s.rules[id]; exists {
		return rule, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

func (s *InMemoryRuleStore) GetByName(ctx context.Context, name string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest *Rule
	for _, rule := range s.rules {
		if rule.Name != name {
			continue
		}
		if oldest == nil || rule.CreatedAt.Before(oldest.CreatedAt) {
			oldest = rule
		}
	}
	if oldest == nil {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, name)
	}
	return oldest, nil
}

func (s *InMemoryRuleStore) Update(ctx context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, rule.ID)
	}

	stored := *rule
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	s.rules[rule.ID] = &stored
	return nil
}

func (s *InMemoryRuleStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	delete(s.rules, id)
	return nil
}

func (s *InMemoryRuleStore) ListActive(ctx context.Context, entityType string) ([]*Rule, error) {
	return s.list(entityType, true), nil
}

func (s *InMemoryRuleStore) ListForEntity(ctx context.Context, entityType string) ([]*Rule, error) {
	return s.list(entityType, false), nil
}

func (s *InMemoryRuleStore) list(entityType string, activeOnly bool) []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*Rule{}
	for _, rule := range s.rules {
		if rule.EntityType != entityType {
			continue
		}
		if activeOnly && !rule.Active {
			continue
		}
		results = append(results, rule)
	}

	// Evaluation order: priority descending, name ascending as tie-break.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority > results[j].Priority
		}
		return results[i].Name < results[j].Name
	})

	return results
}

// Count returns the number of stored rules
func (s *InMemoryRuleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}
