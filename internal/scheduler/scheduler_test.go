package scheduler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/batch"
	"github.com/gaguero/attendant-sub000/internal/completeness"
	"github.com/gaguero/attendant-sub000/internal/config"
	"github.com/gaguero/attendant-sub000/internal/entity"
	"github.com/gaguero/attendant-sub000/internal/metrics"
)

func newTestScheduler(cfg config.SchedulerConfig, store *entity.InMemoryStore) *Scheduler {
	logger := zap.NewNop()
	scorer := completeness.NewService(completeness.NewInMemoryConfigStore(), logger)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	runner := batch.NewRunner(store, scorer, collector, []string{"User"}, 100, 1, logger)

	return NewScheduler(cfg, runner, logger)
}

func TestSchedulerStart(t *testing.T) {
	store := entity.NewInMemoryStore(zap.NewNop())

	t.Run("ValidSchedule", func(t *testing.T) {
		sched := newTestScheduler(config.SchedulerConfig{
			RecomputeEnabled:  true,
			RecomputeSchedule: "0 3 * * *",
		}, store)

		require.NoError(t, sched.Start())
		defer sched.Stop()

		stats := sched.Stats()
		assert.Equal(t, true, stats["enabled"])
		assert.Contains(t, stats, "next_run")
	})

	t.Run("InvalidSchedule", func(t *testing.T) {
		sched := newTestScheduler(config.SchedulerConfig{
			RecomputeEnabled:  true,
			RecomputeSchedule: "not a cron expression",
		}, store)

		assert.Error(t, sched.Start())
	})

	t.Run("Disabled", func(t *testing.T) {
		sched := newTestScheduler(config.SchedulerConfig{RecomputeEnabled: false}, store)

		require.NoError(t, sched.Start())
		defer sched.Stop()

		stats := sched.Stats()
		assert.Equal(t, false, stats["enabled"])
		assert.NotContains(t, stats, "next_run")
	})
}

func TestTriggerNow(t *testing.T) {
	store := entity.NewInMemoryStore(zap.NewNop())
	store.Put("User", "u1", entity.Record{"email": "a@b.com"})

	sched := newTestScheduler(config.SchedulerConfig{RecomputeEnabled: false}, store)
	require.NoError(t, sched.Start())
	defer sched.Stop()

	sched.TriggerNow()

	require.Eventually(t, func() bool {
		_, exists := store.GetCompleteness("User", "u1")
		return exists
	}, 5*time.Second, 10*time.Millisecond)

	stats := sched.Stats()
	assert.EqualValues(t, 1, stats["run_count"])
}
