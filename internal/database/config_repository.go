package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/completeness"
)

// ConfigRepository persists completeness configurations
type ConfigRepository struct {
	BaseRepository
	logger *zap.Logger
}

// NewConfigRepository creates a new completeness config repository
func NewConfigRepository(db *sqlx.DB, logger *zap.Logger) *ConfigRepository {
	return &ConfigRepository{
		BaseRepository: BaseRepository{db: db},
		logger:         logger,
	}
}

type configRow struct {
	EntityType     string         `db:"entity_type"`
	FieldWeights   []byte         `db:"field_weights"`
	RequiredFields pq.StringArray `db:"required_fields"`
	OptionalFields pq.StringArray `db:"optional_fields"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (row *configRow) toConfig() (*completeness.Config, error) {
	weights := make(map[string]int)
	if len(row.FieldWeights) > 0 {
		if err := json.Unmarshal(row.FieldWeights, &weights); err != nil {
			return nil, fmt.Errorf("failed to decode field weights: %w", err)
		}
	}

	return &completeness.Config{
		EntityType:     row.EntityType,
		FieldWeights:   weights,
		RequiredFields: []string(row.RequiredFields),
		OptionalFields: []string(row.OptionalFields),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// Get retrieves the configuration for an entity type
func (r *ConfigRepository) Get(ctx context.Context, entityType string) (*completeness.Config, error) {
	query := `
		SELECT entity_type, field_weights, required_fields, optional_fields, created_at, updated_at
		FROM completeness_configs
		WHERE entity_type = $1`

	var row configRow
	err := r.db.GetContext(ctx, &row, query, entityType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", completeness.ErrConfigNotFound, entityType)
	}
	if err != nil {
		r.logger.Error("Failed to get completeness config",
			zap.String("entity_type", entityType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get completeness config: %w", err)
	}

	return row.toConfig()
}

// Upsert creates or fully replaces the configuration for an entity type
func (r *ConfigRepository) Upsert(ctx context.Context, cfg *completeness.Config) error {
	weights, err := json.Marshal(cfg.FieldWeights)
	if err != nil {
		return fmt.Errorf("failed to encode field weights: %w", err)
	}

	query := `
		INSERT INTO completeness_configs (
			entity_type, field_weights, required_fields, optional_fields, created_at, updated_at
		) VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (entity_type) DO UPDATE SET
			field_weights = EXCLUDED.field_weights,
			required_fields = EXCLUDED.required_fields,
			optional_fields = EXCLUDED.optional_fields,
			updated_at = NOW()`

	_, err = r.db.ExecContext(ctx, query,
		cfg.EntityType,
		weights,
		pq.Array(cfg.RequiredFields),
		pq.Array(cfg.OptionalFields),
	)
	if err != nil {
		r.logger.Error("Failed to upsert completeness config",
			zap.String("entity_type", cfg.EntityType),
			zap.Error(err))
		return fmt.Errorf("failed to upsert completeness config: %w", err)
	}

	r.logger.Info("Completeness config stored", zap.String("entity_type", cfg.EntityType))
	return nil
}

// List retrieves all stored configurations
func (r *ConfigRepository) List(ctx context.Context) ([]*completeness.Config, error) {
	query := `
		SELECT entity_type, field_weights, required_fields, optional_fields, created_at, updated_at
		FROM completeness_configs
		ORDER BY entity_type ASC`

	var rows []configRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		r.logger.Error("Failed to list completeness configs", zap.Error(err))
		return nil, fmt.Errorf("failed to list completeness configs: %w", err)
	}

	configs := make([]*completeness.Config, 0, len(rows))
	for i := range rows {
		cfg, err := rows[i].toConfig()
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}
