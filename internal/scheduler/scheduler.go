package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/batch"
	"github.com/gaguero/attendant-sub000/internal/config"
)

// Scheduler runs the periodic completeness sweep and supports manual
// out-of-schedule triggers.
type Scheduler struct {
	config config.SchedulerConfig
	logger *zap.Logger
	cron   *cron.Cron
	runner *batch.Runner

	mu         sync.RWMutex
	entryID    cron.EntryID
	lastRun    time.Time
	runCount   int64
	errorCount int64
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg config.SchedulerConfig, runner *batch.Runner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config: cfg,
		logger: logger,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		runner: runner,
	}
}

// Start schedules the recompute sweep and starts the cron loop
func (s *Scheduler) Start() error {
	if s.config.RecomputeEnabled {
		entryID, err := s.cron.AddFunc(s.config.RecomputeSchedule, func() {
			s.runSweep()
		})
		if err != nil {
			return fmt.Errorf("failed to schedule recompute sweep: %w", err)
		}
		s.entryID = entryID

		s.logger.Info("Recompute sweep scheduled",
			zap.String("schedule", s.config.RecomputeSchedule))
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// TriggerNow runs the sweep immediately, outside of its schedule
func (s *Scheduler) TriggerNow() {
	go s.runSweep()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	s.mu.Lock()
	s.lastRun = start
	s.runCount++
	s.mu.Unlock()

	if err := s.runner.RecomputeAll(ctx); err != nil {
		s.mu.Lock()
		s.errorCount++
		s.mu.Unlock()
		s.logger.Error("Scheduled recompute sweep failed",
			zap.Error(err),
			zap.Duration("execution_time", time.Since(start)))
		return
	}

	s.logger.Debug("Scheduled recompute sweep completed",
		zap.Duration("execution_time", time.Since(start)))
}

// Stats returns scheduler run statistics
func (s *Scheduler) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"enabled":     s.config.RecomputeEnabled,
		"schedule":    s.config.RecomputeSchedule,
		"last_run":    s.lastRun,
		"run_count":   s.runCount,
		"error_count": s.errorCount,
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			stats["next_run"] = entry.Next
			break
		}
	}

	return stats
}
