package completeness

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/entity"
)

// ConfigStore abstracts persistence of completeness configurations.
type ConfigStore interface {
	Get(ctx context.Context, entityType string) (*Config, error)
	Upsert(ctx context.Context, cfg *Config) error
	List(ctx context.Context) ([]*Config, error)
}

// Service scores entity instances against stored configuration, seeding
// built-in defaults on first use of a known entity type.
type Service struct {
	store  ConfigStore
	logger *zap.Logger
}

// NewService creates a new completeness service
func NewService(store ConfigStore, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// GetConfig returns the stored configuration for an entity type. When none
// exists and the type has a built-in default, the default is persisted and
// returned. Unknown types without stored configuration yield
// ErrConfigNotFound.
func (s *Service) GetConfig(ctx context.Context, entityType string) (*Config, error) {
	cfg, err := s.store.Get(ctx, entityType)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load completeness config: %w", err)
	}

	def, exists := DefaultConfig(entityType)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, entityType)
	}

	if err := s.store.Upsert(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to seed default completeness config: %w", err)
	}

	s.logger.Info("Seeded default completeness config",
		zap.String("entity_type", entityType))

	return def, nil
}

// UpsertConfig replaces the configuration for an entity type. Full-replace
// semantics, not a merge.
func (s *Service) UpsertConfig(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid completeness config: %w", err)
	}

	if err := s.store.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("failed to upsert completeness config: %w", err)
	}

	s.logger.Info("Completeness config updated",
		zap.String("entity_type", cfg.EntityType),
		zap.Int("required_fields", len(cfg.RequiredFields)),
		zap.Int("optional_fields", len(cfg.OptionalFields)))

	return nil
}

// ListConfigs returns every stored configuration. Only entity types that
// have been written or lazily seeded appear.
func (s *Service) ListConfigs(ctx context.Context) ([]*Config, error) {
	configs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list completeness configs: %w", err)
	}
	return configs, nil
}

// Calculate scores one entity instance. No side effects beyond the lazy
// default-config seed.
func (s *Service) Calculate(ctx context.Context, entityType string, record entity.Record) (Result, error) {
	cfg, err := s.GetConfig(ctx, entityType)
	if err != nil {
		return Result{}, err
	}

	return Calculate(cfg, record), nil
}
