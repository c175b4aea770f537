package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/entity"
)

func floatPtr(v float64) *float64 { return &v }

func newTestValidator(t *testing.T, rules ...*Rule) *Validator {
	t.Helper()

	store := NewInMemoryRuleStore()
	for _, rule := range rules {
		require.NoError(t, store.Create(context.Background(), rule))
	}

	return NewValidator(store, nil, zap.NewNop())
}

func TestValidateRequired(t *testing.T) {
	ctx := context.Background()

	rule := &Rule{
		ID:         "r1",
		Name:       "user-email-required",
		EntityType: "User",
		Field:      "email",
		Type:       RuleTypeRequired,
		Config:     RuleConfig{Required: &RequiredConfig{Required: true}},
		Active:     true,
		Priority:   100,
	}

	t.Run("FailsOnAbsent", func(t *testing.T) {
		validator := newTestValidator(t, rule)

		result, err := validator.Validate(ctx, "User", entity.Record{"email": "   "})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"email: This field is required"}, result.Errors)
	})

	t.Run("PassesOnPresent", func(t *testing.T) {
		validator := newTestValidator(t, rule)

		result, err := validator.Validate(ctx, "User", entity.Record{"email": "a@b.com"})
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("RequiredFalseIsNoOp", func(t *testing.T) {
		validator := newTestValidator(t, &Rule{
			ID:         "r2",
			Name:       "user-email-optional",
			EntityType: "User",
			Field:      "email",
			Type:       RuleTypeRequired,
			Config:     RuleConfig{Required: &RequiredConfig{Required: false}},
			Active:     true,
		})

		result, err := validator.Validate(ctx, "User", entity.Record{})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})
}

func TestValidateFormat(t *testing.T) {
	ctx := context.Background()

	t.Run("SkippedWhenAbsent", func(t *testing.T) {
		validator := newTestValidator(t, &Rule{
			ID: "r1", Name: "len", EntityType: "User", Field: "code",
			Type:   RuleTypeFormat,
			Config: RuleConfig{Format: &FormatConfig{MinLength: intPtr(5)}},
			Active: true,
		})

		result, err := validator.Validate(ctx, "User", entity.Record{})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("MinLength", func(t *testing.T) {
		validator := newTestValidator(t, &Rule{
			ID: "r1", Name: "len", EntityType: "User", Field: "code",
			Type:   RuleTypeFormat,
			Config: RuleConfig{Format: &FormatConfig{MinLength: intPtr(5)}},
			Active: true,
		})

		result, err := validator.Validate(ctx, "User", entity.Record{"code": "abc"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"code: Must be at least 5 characters"}, result.Errors)
	})

	t.Run("MaxLength", func(t *testing.T) {
		validator := newTestValidator(t, &Rule{
			ID: "r1", Name: "len", EntityType: "User", Field: "code",
			Type:   RuleTypeFormat,
			Config: RuleConfig{Format: &FormatConfig{MaxLength: intPtr(3)}},
			Active: true,
		})

		result, err := validator.Validate(ctx, "User", entity.Record{"code": "abcdef"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"code: Must be at most 3 characters"}, result.Errors)
	})

	t.Run("Pattern", func(t *testing.T) {
		validator := newTestValidator(t, &Rule{
			ID: "r1", Name: "digits", EntityType: "User", Field: "code",
			Type:   RuleTypeFormat,
			Config: RuleConfig{Format: &FormatConfig{Pattern: `^[0-9]+$`}},
			Active: true,
		})

		result, err := validator.Validate(ctx, "User", entity.Record{"code": "12a"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"code: Invalid format"}, result.Errors)

		result, err = validator.Validate(ctx, "User", entity.Record{"code": "123"})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("MalformedPatternFailsTheRuleOnly", func(t *testing.T) {
		validator := newTestValidator(t,
			&Rule{
				ID: "r1", Name: "broken", EntityType: "User", Field: "code",
				Type:     RuleTypeFormat,
				Config:   RuleConfig{Format: &FormatConfig{Pattern: `[unclosed`}},
				Active:   true,
				Priority: 100,
			},
			&Rule{
				ID: "r2", Name: "healthy", EntityType: "User", Field: "email",
				Type:     RuleTypeRequired,
				Config:   RuleConfig{Required: &RequiredConfig{Required: true}},
				Active:   true,
				Priority: 50,
			},
		)

		result, err := validator.Validate(ctx, "User", entity.Record{"code": "x", "email": "a@b.com"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"code: Rule evaluation failed"}, result.Errors)
	})
}

func TestValidateRange(t *testing.T) {
	ctx := context.Background()

	rangeRule := &Rule{
		ID: "r1", Name: "qty", EntityType: "Vendor", Field: "quantity",
		Type:   RuleTypeRange,
		Config: RuleConfig{Range: &RangeConfig{MinValue: floatPtr(1), MaxValue: floatPtr(10)}},
		Active: true,
	}

	t.Run("WithinBounds", func(t *testing.T) {
		validator := newTestValidator(t, rangeRule)

		for _, value := range []interface{}{1, 10, 5.5, "7"} {
			result, err := validator.Validate(ctx, "Vendor", entity.Record{"quantity": value})
			require.NoError(t, err)
			assert.True(t, result.Valid, "value %v", value)
		}
	})

	t.Run("BelowMin", func(t *testing.T) {
		validator := newTestValidator(t, rangeRule)

		result, err := validator.Validate(ctx, "Vendor", entity.Record{"quantity": 0})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"quantity: Must be at least 1"}, result.Errors)
	})

	t.Run("AboveMax", func(t *testing.T) {
		validator := newTestValidator(t, rangeRule)

		result, err := validator.Validate(ctx, "Vendor", entity.Record{"quantity": 11})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"quantity: Must be at most 10"}, result.Errors)
	})

	t.Run("NonNumericValue", func(t *testing.T) {
		validator := newTestValidator(t, rangeRule)

		result, err := validator.Validate(ctx, "Vendor", entity.Record{"quantity": "lots"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"quantity: Value must be a number"}, result.Errors)
	})

	t.Run("SkippedWhenAbsent", func(t *testing.T) {
		validator := newTestValidator(t, rangeRule)

		result, err := validator.Validate(ctx, "Vendor", entity.Record{})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})
}

func TestValidateCustom(t *testing.T) {
	ctx := context.Background()

	customRule := func(field, validator string) *Rule {
		return &Rule{
			ID: "r1", Name: field + "-" + validator, EntityType: "User", Field: field,
			Type:   RuleTypeCustom,
			Config: RuleConfig{Custom: &CustomConfig{Validator: validator}},
			Active: true,
		}
	}

	t.Run("Email", func(t *testing.T) {
		validator := newTestValidator(t, customRule("email", "email"))

		for _, value := range []string{"a@b.com", "user.name@example.co"} {
			result, err := validator.Validate(ctx, "User", entity.Record{"email": value})
			require.NoError(t, err)
			assert.True(t, result.Valid, value)
		}

		for _, value := range []string{"not-an-email", "a@b", "a b@c.com", "@c.com"} {
			result, err := validator.Validate(ctx, "User", entity.Record{"email": value})
			require.NoError(t, err)
			assert.False(t, result.Valid, value)
			assert.Equal(t, []string{"email: Invalid email"}, result.Errors)
		}
	})

	t.Run("Phone", func(t *testing.T) {
		validator := newTestValidator(t, customRule("phone", "phone"))

		for _, value := range []string{"+14155551234", "+1 415 555 1234", "5551234"} {
			result, err := validator.Validate(ctx, "User", entity.Record{"phone": value})
			require.NoError(t, err)
			assert.True(t, result.Valid, value)
		}

		for _, value := range []string{"0123", "phone", "+"} {
			result, err := validator.Validate(ctx, "User", entity.Record{"phone": value})
			require.NoError(t, err)
			assert.False(t, result.Valid, value)
		}
	})

	t.Run("URL", func(t *testing.T) {
		validator := newTestValidator(t, customRule("website", "url"))

		result, err := validator.Validate(ctx, "User", entity.Record{"website": "https://example.com/path"})
		require.NoError(t, err)
		assert.True(t, result.Valid)

		for _, value := range []string{"example.com", "/relative/path", "not a url"} {
			result, err := validator.Validate(ctx, "User", entity.Record{"website": value})
			require.NoError(t, err)
			assert.False(t, result.Valid, value)
		}
	})

	t.Run("UnknownValidatorFailsClosed", func(t *testing.T) {
		validator := newTestValidator(t, customRule("email", "dns-check"))

		result, err := validator.Validate(ctx, "User", entity.Record{"email": "a@b.com"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"email: Unknown validator: dns-check"}, result.Errors)
	})

	t.Run("RegisteredValidator", func(t *testing.T) {
		validator := newTestValidator(t, customRule("code", "even-length"))
		validator.RegisterValidator("even-length", func(value interface{}) bool {
			return len(asString(value))%2 == 0
		})

		result, err := validator.Validate(ctx, "User", entity.Record{"code": "abcd"})
		require.NoError(t, err)
		assert.True(t, result.Valid)

		result, err = validator.Validate(ctx, "User", entity.Record{"code": "abc"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})

	t.Run("PanickingValidatorIsIsolated", func(t *testing.T) {
		validator := newTestValidator(t,
			customRule("email", "explode"),
			&Rule{
				ID: "r2", Name: "email-required", EntityType: "User", Field: "email",
				Type:   RuleTypeRequired,
				Config: RuleConfig{Required: &RequiredConfig{Required: true}},
				Active: true,
			},
		)
		validator.RegisterValidator("explode", func(value interface{}) bool {
			panic("boom")
		})

		result, err := validator.Validate(ctx, "User", entity.Record{"email": "a@b.com"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors, "email: Rule evaluation failed")
	})
}

func TestValidateOrderingAndScoping(t *testing.T) {
	ctx := context.Background()

	t.Run("ErrorsFollowPriorityOrder", func(t *testing.T) {
		validator := newTestValidator(t,
			&Rule{
				ID: "r1", Name: "phone-format", EntityType: "User", Field: "phone",
				Type:     RuleTypeCustom,
				Config:   RuleConfig{Custom: &CustomConfig{Validator: "phone"}},
				Active:   true,
				Priority: 50,
			},
			&Rule{
				ID: "r2", Name: "email-required", EntityType: "User", Field: "email",
				Type:     RuleTypeRequired,
				Config:   RuleConfig{Required: &RequiredConfig{Required: true}},
				Active:   true,
				Priority: 100,
			},
		)

		result, err := validator.Validate(ctx, "User", entity.Record{"phone": "bad"})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"email: This field is required",
			"phone: Invalid phone",
		}, result.Errors)
	})

	t.Run("NameBreaksPriorityTies", func(t *testing.T) {
		validator := newTestValidator(t,
			&Rule{
				ID: "r1", Name: "b-rule", EntityType: "User", Field: "b",
				Type:     RuleTypeRequired,
				Config:   RuleConfig{Required: &RequiredConfig{Required: true}},
				Active:   true,
				Priority: 10,
			},
			&Rule{
				ID: "r2", Name: "a-rule", EntityType: "User", Field: "a",
				Type:     RuleTypeRequired,
				Config:   RuleConfig{Required: &RequiredConfig{Required: true}},
				Active:   true,
				Priority: 10,
			},
		)

		result, err := validator.Validate(ctx, "User", entity.Record{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"a: This field is required",
			"b: This field is required",
		}, result.Errors)
	})

	t.Run("InactiveRulesSkipped", func(t *testing.T) {
		validator := newTestValidator(t, &Rule{
			ID: "r1", Name: "email-required", EntityType: "User", Field: "email",
			Type:   RuleTypeRequired,
			Config: RuleConfig{Required: &RequiredConfig{Required: true}},
			Active: false,
		})

		result, err := validator.Validate(ctx, "User", entity.Record{})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("RulesScopedToEntityType", func(t *testing.T) {
		validator := newTestValidator(t, &Rule{
			ID: "r1", Name: "vendor-name-required", EntityType: "Vendor", Field: "name",
			Type:   RuleTypeRequired,
			Config: RuleConfig{Required: &RequiredConfig{Required: true}},
			Active: true,
		})

		result, err := validator.Validate(ctx, "User", entity.Record{})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("UnknownRuleTypeFailsClosed", func(t *testing.T) {
		store := NewInMemoryRuleStore()
		store.rules["r1"] = &Rule{
			ID: "r1", Name: "future-rule", EntityType: "User", Field: "email",
			Type:   RuleType("REGEX_DSL"),
			Active: true,
		}
		validator := NewValidator(store, nil, zap.NewNop())

		result, err := validator.Validate(ctx, "User", entity.Record{"email": "a@b.com"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, []string{"email: Unknown rule type: REGEX_DSL"}, result.Errors)
	})

	t.Run("NoRulesMeansValid", func(t *testing.T) {
		validator := newTestValidator(t)

		result, err := validator.Validate(ctx, "User", entity.Record{"anything": "goes"})
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
	})
}
