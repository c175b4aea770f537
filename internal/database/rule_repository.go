package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/validation"
)

// RuleRepository handles business rule data operations
type RuleRepository struct {
	BaseRepository
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sqlx.DB, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{
		BaseRepository: BaseRepository{db: db},
		logger:         logger,
	}
}

type ruleRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	EntityType  string    `db:"entity_type"`
	Field       string    `db:"field"`
	RuleType    string    `db:"rule_type"`
	RuleConfig  []byte    `db:"rule_config"`
	IsActive    bool      `db:"is_active"`
	Priority    int       `db:"priority"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row *ruleRow) toRule() (*validation.Rule, error) {
	var cfg validation.RuleConfig
	if len(row.RuleConfig) > 0 {
		if err := json.Unmarshal(row.RuleConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode rule config for %s: %w", row.ID, err)
		}
	}

	return &validation.Rule{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		EntityType:  row.EntityType,
		Field:       row.Field,
		Type:        validation.RuleType(row.RuleType),
		Config:      cfg,
		Active:      row.IsActive,
		Priority:    row.Priority,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// Create creates a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *validation.Rule) error {
	cfg, err := json.Marshal(rule.Config)
	if err != nil {
		return fmt.Errorf("failed to encode rule config: %w", err)
	}

	query := `
		INSERT INTO business_rules (
			id, name, description, entity_type, field, rule_type,
			rule_config, is_active, priority, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, rule.EntityType, rule.Field,
		string(rule.Type), cfg, rule.Active, rule.Priority,
	)
	if err != nil {
		r.logger.Error("Failed to create rule",
			zap.String("rule_id", rule.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}

	r.logger.Info("Rule created",
		zap.String("rule_id", rule.ID),
		zap.String("name", rule.Name))
	return nil
}

// GetByID retrieves a rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*validation.Rule, error) {
	query := `SELECT * FROM business_rules WHERE id = $1`

	var row ruleRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", validation.ErrRuleNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get rule by ID", zap.String("rule_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get rule by ID: %w", err)
	}

	return row.toRule()
}

// GetByName retrieves a rule by name. Duplicate names are permitted; the
// oldest match is returned, which is what the seeder's existence check needs.
func (r *RuleRepository) GetByName(ctx context.Context, name string) (*validation.Rule, error) {
	query := `SELECT * FROM business_rules WHERE name = $1 ORDER BY created_at ASC LIMIT 1`

	var row ruleRow
	err := r.db.GetContext(ctx, &row, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", validation.ErrRuleNotFound, name)
	}
	if err != nil {
		r.logger.Error("Failed to get rule by name", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get rule by name: %w", err)
	}

	return row.toRule()
}

// Update updates an existing rule
func (r *RuleRepository) Update(ctx context.Context, rule *validation.Rule) error {
	cfg, err := json.Marshal(rule.Config)
	if err != nil {
		return fmt.Errorf("failed to encode rule config: %w", err)
	}

	query := `
		UPDATE business_rules SET
			name = $2,
			description = $3,
			entity_type = $4,
			field = $5,
			rule_type = $6,
			rule_config = $7,
			is_active = $8,
			priority = $9,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, rule.EntityType, rule.Field,
		string(rule.Type), cfg, rule.Active, rule.Priority,
	)
	if err != nil {
		r.logger.Error("Failed to update rule", zap.String("rule_id", rule.ID), zap.Error(err))
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", validation.ErrRuleNotFound, rule.ID)
	}

	r.logger.Info("Rule updated", zap.String("rule_id", rule.ID))
	return nil
}

// Delete removes a rule
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM business_rules WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete rule", zap.String("rule_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", validation.ErrRuleNotFound, id)
	}

	r.logger.Info("Rule deleted", zap.String("rule_id", id))
	return nil
}

// ListActive retrieves the active rules for an entity type in evaluation
// order: priority descending, name ascending as the tie-break.
func (r *RuleRepository) ListActive(ctx context.Context, entityType string) ([]*validation.Rule, error) {
	query := `
		SELECT * FROM business_rules
		WHERE entity_type = $1 AND is_active = true
		ORDER BY priority DESC, name ASC`

	return r.selectRules(ctx, query, entityType)
}

// ListForEntity retrieves all rules for an entity type, active or not
func (r *RuleRepository) ListForEntity(ctx context.Context, entityType string) ([]*validation.Rule, error) {
	query := `
		SELECT * FROM business_rules
		WHERE entity_type = $1
		ORDER BY priority DESC, name ASC`

	return r.selectRules(ctx, query, entityType)
}

func (r *RuleRepository) selectRules(ctx context.Context, query string, args ...interface{}) ([]*validation.Rule, error) {
	var rows []ruleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("Failed to list rules", zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]*validation.Rule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].toRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, nil
}
