package completeness

import (
	"math"
	"time"

	"github.com/gaguero/attendant-sub000/internal/entity"
)

// Result is the outcome of scoring one entity instance. It is transient;
// persisting it onto the stored entity is the caller's responsibility.
type Result struct {
	Score     int       `json:"score"`
	Gaps      []string  `json:"gaps"`
	LastCheck time.Time `json:"last_check"`
}

// Calculate computes the weighted completeness of one record against a
// configuration. Pure function of its inputs.
//
// Each configured field contributes its weight (default 1 when the weight
// table has no entry) to the total; filled fields contribute the same weight
// to the earned sum. Absent required fields are reported as gaps; absent
// optional fields only lower the score. The score is the earned fraction
// scaled to 0-100 and rounded half away from zero.
func Calculate(cfg *Config, record entity.Record) Result {
	totalWeight := 0
	earnedWeight := 0
	gaps := []string{}

	for _, field := range cfg.RequiredFields {
		weight := fieldWeight(cfg, field)
		totalWeight += weight

		if entity.HasValue(record[field]) {
			earnedWeight += weight
		} else {
			gaps = append(gaps, field)
		}
	}

	for _, field := range cfg.OptionalFields {
		weight := fieldWeight(cfg, field)
		totalWeight += weight

		if entity.HasValue(record[field]) {
			earnedWeight += weight
		}
	}

	score := 0
	if totalWeight > 0 {
		score = int(math.Round(float64(earnedWeight) / float64(totalWeight) * 100))
	}

	return Result{
		Score:     score,
		Gaps:      gaps,
		LastCheck: time.Now().UTC(),
	}
}

// fieldWeight looks up a field's weight, defaulting to 1 so a missing weight
// entry never zeroes out a configured field's contribution.
func fieldWeight(cfg *Config, field string) int {
	if weight, exists := cfg.FieldWeights[field]; exists {
		return weight
	}
	return 1
}
