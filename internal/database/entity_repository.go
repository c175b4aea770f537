package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/entity"
)

// EntityRepository is the Postgres-backed entity store. Entity attributes
// are opaque JSONB; the completeness columns live alongside them.
type EntityRepository struct {
	BaseRepository
	logger *zap.Logger
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *sqlx.DB, logger *zap.Logger) *EntityRepository {
	return &EntityRepository{
		BaseRepository: BaseRepository{db: db},
		logger:         logger,
	}
}

type entityRow struct {
	ID         string `db:"id"`
	EntityType string `db:"entity_type"`
	Attributes []byte `db:"attributes"`
}

func (row *entityRow) toStored() (*entity.Stored, error) {
	attributes := entity.Record{}
	if len(row.Attributes) > 0 {
		if err := json.Unmarshal(row.Attributes, &attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes for %s: %w", row.ID, err)
		}
	}

	return &entity.Stored{
		ID:         row.ID,
		EntityType: row.EntityType,
		Attributes: attributes,
	}, nil
}

// Get retrieves one entity record
func (r *EntityRepository) Get(ctx context.Context, entityType, id string) (*entity.Stored, error) {
	query := `
		SELECT id, entity_type, attributes
		FROM entities
		WHERE entity_type = $1 AND id = $2`

	var row entityRow
	err := r.db.GetContext(ctx, &row, query, entityType, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", entity.ErrNotFound, entityType, id)
	}
	if err != nil {
		r.logger.Error("Failed to get entity",
			zap.String("entity_type", entityType),
			zap.String("entity_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return row.toStored()
}

// List pages through entities of a type by ID. Keyset pagination keeps
// memory use independent of total entity count.
func (r *EntityRepository) List(ctx context.Context, entityType, afterID string, limit int) ([]*entity.Stored, error) {
	query := `
		SELECT id, entity_type, attributes
		FROM entities
		WHERE entity_type = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`

	var rows []entityRow
	if err := r.db.SelectContext(ctx, &rows, query, entityType, afterID, limit); err != nil {
		r.logger.Error("Failed to list entities",
			zap.String("entity_type", entityType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	results := make([]*entity.Stored, 0, len(rows))
	for i := range rows {
		stored, err := rows[i].toStored()
		if err != nil {
			return nil, err
		}
		results = append(results, stored)
	}

	return results, nil
}

// UpdateCompleteness writes score, gaps, and check time back onto an entity
func (r *EntityRepository) UpdateCompleteness(ctx context.Context, entityType, id string, result entity.Completeness) error {
	query := `
		UPDATE entities SET
			completeness_score = $3,
			completeness_gaps = $4,
			last_completeness_check = $5,
			updated_at = NOW()
		WHERE entity_type = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query,
		entityType, id, result.Score, pq.Array(result.Gaps), result.CheckedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update completeness",
			zap.String("entity_type", entityType),
			zap.String("entity_id", id),
			zap.Error(err))
		return fmt.Errorf("failed to update completeness: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", entity.ErrNotFound, entityType, id)
	}

	return nil
}

// Upsert inserts or replaces an entity record. Used by embedding callers and
// integration tests; the hospitality application writes entities through its
// own persistence layer.
func (r *EntityRepository) Upsert(ctx context.Context, stored *entity.Stored) error {
	attributes, err := json.Marshal(stored.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	query := `
		INSERT INTO entities (id, entity_type, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (entity_type, id) DO UPDATE SET
			attributes = EXCLUDED.attributes,
			updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, stored.ID, stored.EntityType, attributes); err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}

	return nil
}

// CompletenessSnapshot is a read model of the persisted score columns
type CompletenessSnapshot struct {
	ID        string         `db:"id"`
	Score     sql.NullInt64  `db:"completeness_score"`
	Gaps      pq.StringArray `db:"completeness_gaps"`
	LastCheck sql.NullTime   `db:"last_completeness_check"`
}

// GetCompleteness reads back the persisted completeness columns
func (r *EntityRepository) GetCompleteness(ctx context.Context, entityType, id string) (*CompletenessSnapshot, error) {
	query := `
		SELECT id, completeness_score, completeness_gaps, last_completeness_check
		FROM entities
		WHERE entity_type = $1 AND id = $2`

	var snapshot CompletenessSnapshot
	err := r.db.GetContext(ctx, &snapshot, query, entityType, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", entity.ErrNotFound, entityType, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get completeness snapshot: %w", err)
	}

	return &snapshot, nil
}
