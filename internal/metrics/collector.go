package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector manages Prometheus metrics for the completeness engine
type Collector struct {
	validationsTotal    *prometheus.CounterVec
	ruleFailuresTotal   *prometheus.CounterVec
	calculationsTotal   *prometheus.CounterVec
	completenessScore   *prometheus.HistogramVec
	sweepDuration       prometheus.Histogram
	sweepInstancesTotal *prometheus.CounterVec
	sweepsTotal         prometheus.Counter
}

// NewCollector creates and registers the collectors on the given registerer
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		validationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completeness_engine_validations_total",
				Help: "Total number of entity validations performed",
			},
			[]string{"entity_type", "result"},
		),
		ruleFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completeness_engine_rule_failures_total",
				Help: "Total number of individual rule failures",
			},
			[]string{"entity_type", "rule_type"},
		),
		calculationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completeness_engine_calculations_total",
				Help: "Total number of completeness calculations",
			},
			[]string{"entity_type"},
		),
		completenessScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "completeness_engine_score",
				Help:    "Distribution of computed completeness scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"entity_type"},
		),
		sweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "completeness_engine_sweep_duration_seconds",
				Help:    "Duration of full recompute sweeps",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		sweepInstancesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completeness_engine_sweep_instances_total",
				Help: "Entities touched by recompute sweeps",
			},
			[]string{"entity_type", "result"},
		),
		sweepsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "completeness_engine_sweeps_total",
				Help: "Total number of recompute sweeps started",
			},
		),
	}
}

// RecordValidation records one validation outcome
func (c *Collector) RecordValidation(entityType string, valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	c.validationsTotal.WithLabelValues(entityType, result).Inc()
}

// RecordRuleFailure records one failing rule evaluation
func (c *Collector) RecordRuleFailure(entityType, ruleType string) {
	c.ruleFailuresTotal.WithLabelValues(entityType, ruleType).Inc()
}

// RecordCalculation records one completeness calculation and its score
func (c *Collector) RecordCalculation(entityType string, score int) {
	c.calculationsTotal.WithLabelValues(entityType).Inc()
	c.completenessScore.WithLabelValues(entityType).Observe(float64(score))
}

// RecordSweepInstance records one entity touched by a sweep
func (c *Collector) RecordSweepInstance(entityType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.sweepInstancesTotal.WithLabelValues(entityType, result).Inc()
}

// RecordSweep records a completed sweep and its duration
func (c *Collector) RecordSweep(duration time.Duration) {
	c.sweepsTotal.Inc()
	c.sweepDuration.Observe(duration.Seconds())
}
