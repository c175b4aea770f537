package validation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

// defaultRules is the catalog installed on a fresh deployment.
var defaultRules = []Rule{
	{
		Name:        "user-email-required",
		Description: "Users must have an email address",
		EntityType:  "User",
		Field:       "email",
		Type:        RuleTypeRequired,
		Config:      RuleConfig{Required: &RequiredConfig{Required: true}},
		Priority:    100,
	},
	{
		Name:        "user-email-format",
		Description: "User email must be a valid address",
		EntityType:  "User",
		Field:       "email",
		Type:        RuleTypeCustom,
		Config:      RuleConfig{Custom: &CustomConfig{Validator: "email"}},
		Priority:    90,
	},
	{
		Name:        "user-first-name-required",
		Description: "Users must have a first name",
		EntityType:  "User",
		Field:       "firstName",
		Type:        RuleTypeRequired,
		Config:      RuleConfig{Required: &RequiredConfig{Required: true}},
		Priority:    80,
	},
	{
		Name:        "user-phone-format",
		Description: "User phone must be a valid number",
		EntityType:  "User",
		Field:       "phone",
		Type:        RuleTypeCustom,
		Config:      RuleConfig{Custom: &CustomConfig{Validator: "phone"}},
		Priority:    50,
	},
	{
		Name:        "guest-email-required",
		Description: "Guests must have an email address",
		EntityType:  "Guest",
		Field:       "email",
		Type:        RuleTypeRequired,
		Config:      RuleConfig{Required: &RequiredConfig{Required: true}},
		Priority:    100,
	},
	{
		Name:        "guest-email-format",
		Description: "Guest email must be a valid address",
		EntityType:  "Guest",
		Field:       "email",
		Type:        RuleTypeCustom,
		Config:      RuleConfig{Custom: &CustomConfig{Validator: "email"}},
		Priority:    90,
	},
	{
		Name:        "guest-first-name-required",
		Description: "Guests must have a first name",
		EntityType:  "Guest",
		Field:       "firstName",
		Type:        RuleTypeRequired,
		Config:      RuleConfig{Required: &RequiredConfig{Required: true}},
		Priority:    80,
	},
	{
		Name:        "guest-phone-format",
		Description: "Guest phone must be a valid number",
		EntityType:  "Guest",
		Field:       "phone",
		Type:        RuleTypeCustom,
		Config:      RuleConfig{Custom: &CustomConfig{Validator: "phone"}},
		Priority:    50,
	},
	{
		Name:        "guest-document-length",
		Description: "Guest document numbers are 5 to 20 characters",
		EntityType:  "Guest",
		Field:       "documentNumber",
		Type:        RuleTypeFormat,
		Config:      RuleConfig{Format: &FormatConfig{MinLength: intPtr(5), MaxLength: intPtr(20)}},
		Priority:    40,
	},
	{
		Name:        "vendor-name-required",
		Description: "Vendors must have a name",
		EntityType:  "Vendor",
		Field:       "name",
		Type:        RuleTypeRequired,
		Config:      RuleConfig{Required: &RequiredConfig{Required: true}},
		Priority:    100,
	},
	{
		Name:        "vendor-email-format",
		Description: "Vendor email must be a valid address",
		EntityType:  "Vendor",
		Field:       "email",
		Type:        RuleTypeCustom,
		Config:      RuleConfig{Custom: &CustomConfig{Validator: "email"}},
		Priority:    90,
	},
	{
		Name:        "vendor-website-format",
		Description: "Vendor website must be a well-formed URL",
		EntityType:  "Vendor",
		Field:       "website",
		Type:        RuleTypeCustom,
		Config:      RuleConfig{Custom: &CustomConfig{Validator: "url"}},
		Priority:    60,
	},
	{
		Name:        "vendor-phone-format",
		Description: "Vendor phone must be a valid number",
		EntityType:  "Vendor",
		Field:       "phone",
		Type:        RuleTypeCustom,
		Config:      RuleConfig{Custom: &CustomConfig{Validator: "phone"}},
		Priority:    50,
	},
}

// SeedDefaults installs the default rule catalog. Safe to call repeatedly:
// rules already present by name are skipped, and individual create failures
// are logged and swallowed rather than propagated.
func SeedDefaults(ctx context.Context, store RuleStore, logger *zap.Logger) {
	seeded := 0
	skipped := 0

	for i := range defaultRules {
		rule := defaultRules[i]

		_, err := store.GetByName(ctx, rule.Name)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, ErrRuleNotFound) {
			logger.Warn("Failed to check existing rule",
				zap.String("rule_name", rule.Name),
				zap.Error(err))
			continue
		}

		rule.ID = uuid.New().String()
		rule.Active = true

		if err := store.Create(ctx, &rule); err != nil {
			logger.Warn("Failed to seed default rule",
				zap.String("rule_name", rule.Name),
				zap.Error(err))
			continue
		}
		seeded++
	}

	logger.Info("Default rules seeded",
		zap.Int("created", seeded),
		zap.Int("skipped", skipped))
}
