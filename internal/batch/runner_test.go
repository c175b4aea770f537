package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/completeness"
	"github.com/gaguero/attendant-sub000/internal/entity"
	"github.com/gaguero/attendant-sub000/internal/metrics"
)

func newTestRunner(store entity.Store, entityTypes []string, pageSize, workers int) *Runner {
	logger := zap.NewNop()
	scorer := completeness.NewService(completeness.NewInMemoryConfigStore(), logger)
	collector := metrics.NewCollector(prometheus.NewRegistry())

	return NewRunner(store, scorer, collector, entityTypes, pageSize, workers, logger)
}

func TestRecomputeAll(t *testing.T) {
	ctx := context.Background()

	t.Run("ScoresEveryInstance", func(t *testing.T) {
		store := entity.NewInMemoryStore(zap.NewNop())
		store.Put("User", "u1", entity.Record{
			"email": "a@b.com", "firstName": "Ana", "lastName": "Lopez", "role": "admin",
			"phone": "555", "department": "ops", "avatarUrl": "https://x.com/a.png",
		})
		store.Put("User", "u2", entity.Record{"email": "b@c.com"})

		runner := newTestRunner(store, []string{"User"}, 100, 2)
		require.NoError(t, runner.RecomputeAll(ctx))

		full, exists := store.GetCompleteness("User", "u1")
		require.True(t, exists)
		assert.Equal(t, 100, full.Score)
		assert.Empty(t, full.Gaps)

		partial, exists := store.GetCompleteness("User", "u2")
		require.True(t, exists)
		assert.Less(t, partial.Score, 100)
		assert.Contains(t, partial.Gaps, "firstName")
	})

	t.Run("InstanceFailureDoesNotAbortType", func(t *testing.T) {
		inner := entity.NewInMemoryStore(zap.NewNop())
		inner.Put("User", "u1", entity.Record{"email": "a@b.com"})
		inner.Put("User", "u2", entity.Record{"email": "b@c.com"})
		inner.Put("User", "u3", entity.Record{"email": "c@d.com"})
		store := &faultyStore{InMemoryStore: inner, failID: "u2"}

		runner := newTestRunner(store, []string{"User"}, 100, 1)
		require.NoError(t, runner.RecomputeAll(ctx))

		_, exists := inner.GetCompleteness("User", "u1")
		assert.True(t, exists)
		_, exists = inner.GetCompleteness("User", "u2")
		assert.False(t, exists)
		_, exists = inner.GetCompleteness("User", "u3")
		assert.True(t, exists)
	})

	t.Run("TypeFailureDoesNotAbortSweep", func(t *testing.T) {
		store := entity.NewInMemoryStore(zap.NewNop())
		store.Put("User", "u1", entity.Record{"email": "a@b.com"})

		// Shipment has no configuration and no built-in default; its sweep
		// fails but the User sweep still runs.
		runner := newTestRunner(store, []string{"Shipment", "User"}, 100, 1)
		require.NoError(t, runner.RecomputeAll(ctx))

		_, exists := store.GetCompleteness("User", "u1")
		assert.True(t, exists)
	})

	t.Run("EveryInstanceTouchedOnceAcrossPages", func(t *testing.T) {
		inner := entity.NewInMemoryStore(zap.NewNop())
		for i := 0; i < 25; i++ {
			inner.Put("User", fmt.Sprintf("u%02d", i), entity.Record{"email": "a@b.com"})
		}
		store := &countingStore{InMemoryStore: inner, updates: map[string]int{}}

		runner := newTestRunner(store, []string{"User"}, 10, 4)
		require.NoError(t, runner.RecomputeAll(ctx))

		store.mu.Lock()
		defer store.mu.Unlock()
		assert.Len(t, store.updates, 25)
		for id, count := range store.updates {
			assert.Equal(t, 1, count, id)
		}
	})

	t.Run("HonorsCancellation", func(t *testing.T) {
		store := entity.NewInMemoryStore(zap.NewNop())
		store.Put("User", "u1", entity.Record{"email": "a@b.com"})

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		runner := newTestRunner(store, []string{"User"}, 100, 1)
		err := runner.RecomputeAll(cancelled)
		assert.ErrorIs(t, err, context.Canceled)

		_, exists := store.GetCompleteness("User", "u1")
		assert.False(t, exists)
	})
}

// faultyStore fails UpdateCompleteness for one entity ID.
type faultyStore struct {
	*entity.InMemoryStore
	failID string
}

func (s *faultyStore) UpdateCompleteness(ctx context.Context, entityType, id string, result entity.Completeness) error {
	if id == s.failID {
		return fmt.Errorf("write failed for %s", id)
	}
	return s.InMemoryStore.UpdateCompleteness(ctx, entityType, id, result)
}

// countingStore counts UpdateCompleteness calls per entity ID.
type countingStore struct {
	*entity.InMemoryStore
	mu      sync.Mutex
	updates map[string]int
}

func (s *countingStore) UpdateCompleteness(ctx context.Context, entityType, id string, result entity.Completeness) error {
	s.mu.Lock()
	s.updates[id]++
	s.mu.Unlock()
	return s.InMemoryStore.UpdateCompleteness(ctx, entityType, id, result)
}
