package validation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRuleNotFound is returned when a rule does not exist in the store.
var ErrRuleNotFound = errors.New("business rule not found")

// RuleType discriminates the rule config variant.
type RuleType string

const (
	RuleTypeRequired RuleType = "REQUIRED"
	RuleTypeFormat   RuleType = "FORMAT"
	RuleTypeRange    RuleType = "RANGE"
	RuleTypeCustom   RuleType = "CUSTOM"
)

// RequiredConfig configures a REQUIRED rule. Required false is a no-op pass.
type RequiredConfig struct {
	Required bool `json:"required"`
}

// FormatConfig configures a FORMAT rule. Checks run in order: min length,
// max length, pattern; the first failing check is reported.
type FormatConfig struct {
	MinLength *int   `json:"min_length,omitempty"`
	MaxLength *int   `json:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// RangeConfig configures a RANGE rule over numeric values.
type RangeConfig struct {
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`
}

// CustomConfig configures a CUSTOM rule by named validator.
type CustomConfig struct {
	Validator string `json:"validator"`
}

// RuleConfig is the variant payload of a rule, keyed by the rule's type.
// Exactly one member is set for a well-formed rule.
type RuleConfig struct {
	Required *RequiredConfig `json:"required,omitempty"`
	Format   *FormatConfig   `json:"format,omitempty"`
	Range    *RangeConfig    `json:"range,omitempty"`
	Custom   *CustomConfig   `json:"custom,omitempty"`
}

// Rule is a single declarative check bound to one field of one entity type.
type Rule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	EntityType  string     `json:"entity_type"`
	Field       string     `json:"field"`
	Type        RuleType   `json:"rule_type"`
	Config      RuleConfig `json:"rule_config"`
	Active      bool       `json:"is_active"`
	Priority    int        `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks that a rule carries the config variant matching its type.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.EntityType == "" {
		return fmt.Errorf("rule entity type is required")
	}
	if r.Field == "" {
		return fmt.Errorf("rule field is required")
	}

	switch r.Type {
	case RuleTypeRequired:
		if r.Config.Required == nil {
			return fmt.Errorf("REQUIRED rule missing required config")
		}
	case RuleTypeFormat:
		if r.Config.Format == nil {
			return fmt.Errorf("FORMAT rule missing format config")
		}
	case RuleTypeRange:
		if r.Config.Range == nil {
			return fmt.Errorf("RANGE rule missing range config")
		}
	case RuleTypeCustom:
		if r.Config.Custom == nil || r.Config.Custom.Validator == "" {
			return fmt.Errorf("CUSTOM rule missing validator name")
		}
	default:
		return fmt.Errorf("unknown rule type: %s", r.Type)
	}

	return nil
}

// RuleSource supplies the active rule set for validation, ordered by
// priority descending with name ascending as the tie-break.
type RuleSource interface {
	ListActive(ctx context.Context, entityType string) ([]*Rule, error)
}

// RuleStore is the full CRUD surface over persisted rules. Duplicate names
// are permitted at the store level; only the seeder deduplicates by name.
type RuleStore interface {
	RuleSource
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id string) (*Rule, error)
	GetByName(ctx context.Context, name string) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error
	ListForEntity(ctx context.Context, entityType string) ([]*Rule, error)
}
