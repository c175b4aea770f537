package entity

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"
)

// ErrNotFound is returned when an entity does not exist in the store.
var ErrNotFound = errors.New("entity not found")

// Record is an opaque entity payload: a mapping from field name to value.
// The scoring and validation engines never depend on the full shape of an
// entity, only on field lookup by name.
type Record map[string]interface{}

// Stored is a record together with its store identity.
type Stored struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	Attributes Record `json:"attributes"`
}

// Completeness holds the score data written back onto a stored entity.
type Completeness struct {
	Score     int       `json:"score"`
	Gaps      []string  `json:"gaps"`
	CheckedAt time.Time `json:"checked_at"`
}

// Store abstracts the persistence layer for entity records. List pages by
// ID so callers never hold all instances of a type in memory at once.
type Store interface {
	Get(ctx context.Context, entityType, id string) (*Stored, error)
	List(ctx context.Context, entityType, afterID string, limit int) ([]*Stored, error)
	UpdateCompleteness(ctx context.Context, entityType, id string, result Completeness) error
}

// HasValue reports whether a field value counts as filled in. A value is
// absent when it is nil, a string of only whitespace, or an empty slice,
// array, or map. Numeric zero, false, and non-empty aggregates are present.
// The same predicate is applied for every entity type.
func HasValue(value interface{}) bool {
	if value == nil {
		return false
	}

	if str, ok := value.(string); ok {
		return strings.TrimSpace(str) != ""
	}

	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() > 0
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return false
		}
		return HasValue(v.Elem().Interface())
	}

	return true
}
