package batch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gaguero/attendant-sub000/internal/completeness"
	"github.com/gaguero/attendant-sub000/internal/entity"
	"github.com/gaguero/attendant-sub000/internal/metrics"
)

// Runner recomputes and persists completeness for every entity of every
// supported type. Used by the periodic sweep and by manual admin triggers.
type Runner struct {
	entities    entity.Store
	scorer      *completeness.Service
	collector   *metrics.Collector
	logger      *zap.Logger
	entityTypes []string
	pageSize    int
	workers     int
}

// NewRunner creates a new batch runner
func NewRunner(
	entities entity.Store,
	scorer *completeness.Service,
	collector *metrics.Collector,
	entityTypes []string,
	pageSize int,
	workers int,
	logger *zap.Logger,
) *Runner {
	if pageSize <= 0 {
		pageSize = 500
	}
	if workers <= 0 {
		workers = 1
	}

	return &Runner{
		entities:    entities,
		scorer:      scorer,
		collector:   collector,
		logger:      logger,
		entityTypes: entityTypes,
		pageSize:    pageSize,
		workers:     workers,
	}
}

// RecomputeAll sweeps every supported entity type. A failure in one type
// must not abort the others; a failure on one instance must not abort the
// rest of its type. Cancellation is honored between types and between pages.
func (r *Runner) RecomputeAll(ctx context.Context) error {
	start := time.Now()
	r.logger.Info("Starting completeness sweep",
		zap.Strings("entity_types", r.entityTypes))

	for _, entityType := range r.entityTypes {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Completeness sweep cancelled",
				zap.String("next_entity_type", entityType))
			return err
		}

		if err := r.recomputeType(ctx, entityType); err != nil {
			r.logger.Error("Failed to sweep entity type",
				zap.String("entity_type", entityType),
				zap.Error(err))
		}
	}

	r.collector.RecordSweep(time.Since(start))
	r.logger.Info("Completeness sweep finished",
		zap.Duration("duration", time.Since(start)))

	return nil
}

// recomputeType scores every instance of one entity type. Configuration is
// fetched once and reused across the whole type.
func (r *Runner) recomputeType(ctx context.Context, entityType string) error {
	cfg, err := r.scorer.GetConfig(ctx, entityType)
	if err != nil {
		return err
	}

	var scored, failed int64
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := r.entities.List(ctx, entityType, afterID, r.pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(r.workers)

		for _, stored := range page {
			stored := stored
			group.Go(func() error {
				if err := r.recomputeInstance(groupCtx, cfg, stored); err != nil {
					atomic.AddInt64(&failed, 1)
					r.collector.RecordSweepInstance(entityType, err)
					r.logger.Warn("Failed to recompute entity",
						zap.String("entity_type", entityType),
						zap.String("entity_id", stored.ID),
						zap.Error(err))
					return nil
				}
				atomic.AddInt64(&scored, 1)
				r.collector.RecordSweepInstance(entityType, nil)
				return nil
			})
		}
		group.Wait()

		afterID = page[len(page)-1].ID
		if len(page) < r.pageSize {
			break
		}
	}

	r.logger.Info("Entity type swept",
		zap.String("entity_type", entityType),
		zap.Int64("scored", scored),
		zap.Int64("failed", failed))

	return nil
}

func (r *Runner) recomputeInstance(ctx context.Context, cfg *completeness.Config, stored *entity.Stored) error {
	result := completeness.Calculate(cfg, stored.Attributes)
	r.collector.RecordCalculation(stored.EntityType, result.Score)

	return r.entities.UpdateCompleteness(ctx, stored.EntityType, stored.ID, entity.Completeness{
		Score:     result.Score,
		Gaps:      result.Gaps,
		CheckedAt: result.LastCheck,
	})
}
