package completeness

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfigNotFound is returned when no completeness configuration exists
// and no built-in default applies for the requested entity type.
var ErrConfigNotFound = errors.New("completeness config not found")

// Config holds the field weight table for one entity type. Weights have no
// sum-to-100 invariant; the score is normalized by the sum of weights
// actually touched.
type Config struct {
	EntityType     string         `json:"entity_type"`
	FieldWeights   map[string]int `json:"field_weights"`
	RequiredFields []string       `json:"required_fields"`
	OptionalFields []string       `json:"optional_fields"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Validate rejects configs where a field appears as both required and
// optional, which would double-count its weight.
func (c *Config) Validate() error {
	if c.EntityType == "" {
		return fmt.Errorf("entity type is required")
	}

	required := make(map[string]bool, len(c.RequiredFields))
	for _, field := range c.RequiredFields {
		required[field] = true
	}
	for _, field := range c.OptionalFields {
		if required[field] {
			return fmt.Errorf("field %q is both required and optional", field)
		}
	}

	for field, weight := range c.FieldWeights {
		if weight < 0 || weight > 100 {
			return fmt.Errorf("weight for field %q out of range: %d", field, weight)
		}
	}

	return nil
}

// defaultConfigs seeds configuration for the built-in entity types on first
// use. Expressed as data so the calculator stays free of type-specific code.
var defaultConfigs = map[string]Config{
	"User": {
		EntityType:     "User",
		RequiredFields: []string{"email", "firstName", "lastName", "role"},
		OptionalFields: []string{"phone", "department", "avatarUrl"},
		FieldWeights: map[string]int{
			"email":      20,
			"firstName":  15,
			"lastName":   15,
			"role":       10,
			"phone":      10,
			"department": 5,
			"avatarUrl":  5,
		},
	},
	"Guest": {
		EntityType:     "Guest",
		RequiredFields: []string{"email", "firstName", "lastName"},
		OptionalFields: []string{"phone", "nationality", "documentNumber", "dateOfBirth", "preferences"},
		FieldWeights: map[string]int{
			"email":          20,
			"firstName":      15,
			"lastName":       15,
			"phone":          10,
			"nationality":    5,
			"documentNumber": 10,
			"dateOfBirth":    5,
			"preferences":    5,
		},
	},
	"Vendor": {
		EntityType:     "Vendor",
		RequiredFields: []string{"name", "email", "category"},
		OptionalFields: []string{"phone", "address", "website", "contactPerson"},
		FieldWeights: map[string]int{
			"name":          20,
			"email":         15,
			"category":      10,
			"phone":         10,
			"address":       10,
			"website":       5,
			"contactPerson": 5,
		},
	},
}

// DefaultConfig returns the built-in configuration for a known entity type.
func DefaultConfig(entityType string) (*Config, bool) {
	def, exists := defaultConfigs[entityType]
	if !exists {
		return nil, false
	}

	// Deep-copy so callers cannot mutate the defaults.
	cfg := Config{
		EntityType:     def.EntityType,
		RequiredFields: append([]string(nil), def.RequiredFields...),
		OptionalFields: append([]string(nil), def.OptionalFields...),
		FieldWeights:   make(map[string]int, len(def.FieldWeights)),
	}
	for field, weight := range def.FieldWeights {
		cfg.FieldWeights[field] = weight
	}

	return &cfg, true
}
