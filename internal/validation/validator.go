package validation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/entity"
)

// Result is the outcome of validating one payload. Validation failure is
// structured data, never an error return. The warnings channel is a reserved
// extension point; rule evaluation does not populate it.
type Result struct {
	Valid    bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// RuleFailureRecorder counts failing rule evaluations by entity and rule type.
type RuleFailureRecorder interface {
	RecordRuleFailure(entityType, ruleType string)
}

// Validator evaluates entity payloads against their active rule set.
type Validator struct {
	source           RuleSource
	customValidators map[string]CustomValidator
	recorder         RuleFailureRecorder
	logger           *zap.Logger
}

// NewValidator creates a new validator with the built-in custom validators.
// The recorder may be nil.
func NewValidator(source RuleSource, recorder RuleFailureRecorder, logger *zap.Logger) *Validator {
	validators := make(map[string]CustomValidator, len(defaultCustomValidators))
	for name, fn := range defaultCustomValidators {
		validators[name] = fn
	}

	return &Validator{
		source:           source,
		customValidators: validators,
		recorder:         recorder,
		logger:           logger,
	}
}

// RegisterValidator adds or replaces a named custom validator
func (v *Validator) RegisterValidator(name string, fn CustomValidator) {
	v.customValidators[name] = fn
	v.logger.Info("Registered custom validator", zap.String("name", name))
}

// Validate evaluates every active rule for the entity type against the
// payload, highest priority first. Each failing rule contributes exactly one
// error entry, in evaluation order. Pure function of the payload and the
// current rule set.
func (v *Validator) Validate(ctx context.Context, entityType string, payload entity.Record) (Result, error) {
	rules, err := v.source.ListActive(ctx, entityType)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load rules for %s: %w", entityType, err)
	}

	result := Result{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	for _, rule := range rules {
		value := payload[rule.Field]

		message, failed := v.evaluateRule(rule, value)
		if failed {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", rule.Field, message))
			if v.recorder != nil {
				v.recorder.RecordRuleFailure(rule.EntityType, string(rule.Type))
			}
		}
	}

	return result, nil
}

// evaluateRule dispatches on the rule type. A rule whose evaluator panics is
// recorded as a failing rule with a generic message; one malformed rule must
// never abort validation of the rest of the entity.
func (v *Validator) evaluateRule(rule *Rule, value interface{}) (message string, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Rule evaluation panicked",
				zap.String("rule_id", rule.ID),
				zap.String("rule_name", rule.Name),
				zap.Any("panic", r))
			message = "Rule evaluation failed"
			failed = true
		}
	}()

	switch rule.Type {
	case RuleTypeRequired:
		return v.evaluateRequired(rule.Config.Required, value)
	case RuleTypeFormat:
		return v.evaluateFormat(rule.Config.Format, value)
	case RuleTypeRange:
		return v.evaluateRange(rule.Config.Range, value)
	case RuleTypeCustom:
		return v.evaluateCustom(rule.Config.Custom, value)
	default:
		// Fail closed on rule types this build does not know.
		v.logger.Warn("Unknown rule type",
			zap.String("rule_name", rule.Name),
			zap.String("rule_type", string(rule.Type)))
		return fmt.Sprintf("Unknown rule type: %s", rule.Type), true
	}
}

func (v *Validator) evaluateRequired(cfg *RequiredConfig, value interface{}) (string, bool) {
	if cfg == nil || !cfg.Required {
		return "", false
	}
	if !entity.HasValue(value) {
		return "This field is required", true
	}
	return "", false
}

// evaluateFormat is skipped entirely for absent values; absence is the
// REQUIRED rule's concern. Only the first failing check is reported.
func (v *Validator) evaluateFormat(cfg *FormatConfig, value interface{}) (string, bool) {
	if cfg == nil || !entity.HasValue(value) {
		return "", false
	}

	str := asString(value)

	if cfg.MinLength != nil && len(str) < *cfg.MinLength {
		return fmt.Sprintf("Must be at least %d characters", *cfg.MinLength), true
	}
	if cfg.MaxLength != nil && len(str) > *cfg.MaxLength {
		return fmt.Sprintf("Must be at most %d characters", *cfg.MaxLength), true
	}
	if cfg.Pattern != "" {
		pattern, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			v.logger.Error("Malformed rule pattern",
				zap.String("pattern", cfg.Pattern),
				zap.Error(err))
			return "Rule evaluation failed", true
		}
		if !pattern.MatchString(str) {
			return "Invalid format", true
		}
	}

	return "", false
}

func (v *Validator) evaluateRange(cfg *RangeConfig, value interface{}) (string, bool) {
	if cfg == nil || !entity.HasValue(value) {
		return "", false
	}

	num, err := toFloat64(value)
	if err != nil {
		return "Value must be a number", true
	}

	if cfg.MinValue != nil && num < *cfg.MinValue {
		return fmt.Sprintf("Must be at least %v", *cfg.MinValue), true
	}
	if cfg.MaxValue != nil && num > *cfg.MaxValue {
		return fmt.Sprintf("Must be at most %v", *cfg.MaxValue), true
	}

	return "", false
}

// evaluateCustom fails closed on unrecognized validator names rather than
// silently passing.
func (v *Validator) evaluateCustom(cfg *CustomConfig, value interface{}) (string, bool) {
	if cfg == nil || !entity.HasValue(value) {
		return "", false
	}

	fn, exists := v.customValidators[cfg.Validator]
	if !exists {
		v.logger.Warn("Unknown custom validator", zap.String("validator", cfg.Validator))
		return fmt.Sprintf("Unknown validator: %s", cfg.Validator), true
	}

	if !fn(value) {
		return fmt.Sprintf("Invalid %s", cfg.Validator), true
	}

	return "", false
}

// asString renders a value for string checks. Non-string scalars are
// formatted with their default representation.
func asString(value interface{}) string {
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", value)
}

// toFloat64 converts numeric types and numeric strings to float64
func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}
