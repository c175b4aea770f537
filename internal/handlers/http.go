package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/completeness"
	"github.com/gaguero/attendant-sub000/internal/database"
	"github.com/gaguero/attendant-sub000/internal/entity"
	"github.com/gaguero/attendant-sub000/internal/metrics"
	"github.com/gaguero/attendant-sub000/internal/scheduler"
	"github.com/gaguero/attendant-sub000/internal/validation"
)

// CompletenessReader reads back persisted completeness for stored entities.
type CompletenessReader interface {
	GetCompleteness(ctx context.Context, entityType, id string) (*database.CompletenessSnapshot, error)
}

// Handler contains the admin and trigger HTTP handlers
type Handler struct {
	scorer    *completeness.Service
	validator *validation.Validator
	rules     validation.RuleStore
	ruleCache *validation.CachedRuleSource
	snapshots CompletenessReader
	scheduler *scheduler.Scheduler
	collector *metrics.Collector
	logger    *zap.Logger
	validate  *validator.Validate
}

// NewHandler creates a new HTTP handler
func NewHandler(
	scorer *completeness.Service,
	ruleValidator *validation.Validator,
	rules validation.RuleStore,
	ruleCache *validation.CachedRuleSource,
	snapshots CompletenessReader,
	sched *scheduler.Scheduler,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		scorer:    scorer,
		validator: ruleValidator,
		rules:     rules,
		ruleCache: ruleCache,
		snapshots: snapshots,
		scheduler: sched,
		collector: collector,
		logger:    logger,
		validate:  validator.New(),
	}
}

// SetupRoutes configures HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/ready", h.ReadinessCheck).Methods("GET")

	// Completeness endpoints
	comp := router.PathPrefix("/api/v1/completeness").Subrouter()
	comp.HandleFunc("/calculate", h.CalculateCompleteness).Methods("POST")
	comp.HandleFunc("/recompute", h.TriggerRecompute).Methods("POST")
	comp.HandleFunc("/configs", h.ListConfigs).Methods("GET")
	comp.HandleFunc("/configs/{entityType}", h.GetConfig).Methods("GET")
	comp.HandleFunc("/configs/{entityType}", h.UpsertConfig).Methods("PUT")
	comp.HandleFunc("/entities/{entityType}/{entityId}", h.GetEntityCompleteness).Methods("GET")

	// Validation endpoints
	val := router.PathPrefix("/api/v1/validation").Subrouter()
	val.HandleFunc("/validate", h.ValidateEntity).Methods("POST")
	val.HandleFunc("/rules", h.ListRules).Methods("GET")
	val.HandleFunc("/rules", h.CreateRule).Methods("POST")
	val.HandleFunc("/rules/seed", h.SeedRules).Methods("POST")
	val.HandleFunc("/rules/{ruleId}", h.GetRule).Methods("GET")
	val.HandleFunc("/rules/{ruleId}", h.UpdateRule).Methods("PUT")
	val.HandleFunc("/rules/{ruleId}", h.DeleteRule).Methods("DELETE")

	return router
}

// Health check endpoints

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "completeness-engine",
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"ready":     true,
		"timestamp": time.Now().UTC(),
		"scheduler": h.scheduler.Stats(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// Completeness handlers

// CalculateRequest is the payload for ad-hoc completeness calculation
type CalculateRequest struct {
	EntityType string        `json:"entity_type" validate:"required"`
	Record     entity.Record `json:"record"`
}

func (h *Handler) CalculateCompleteness(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	result, err := h.scorer.Calculate(r.Context(), req.EntityType, req.Record)
	if err != nil {
		if errors.Is(err, completeness.ErrConfigNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "No completeness configuration for entity type", err)
			return
		}
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to calculate completeness", err)
		return
	}

	h.collector.RecordCalculation(req.EntityType, result.Score)
	h.writeJSONResponse(w, http.StatusOK, result)
}

func (h *Handler) TriggerRecompute(w http.ResponseWriter, r *http.Request) {
	h.scheduler.TriggerNow()

	h.logger.Info("Recompute sweep triggered manually")
	h.writeJSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"status":       "accepted",
		"triggered_at": time.Now().UTC(),
	})
}

func (h *Handler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.scorer.ListConfigs(r.Context())
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list configurations", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"configs": configs,
		"total":   len(configs),
	})
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	entityType := mux.Vars(r)["entityType"]

	cfg, err := h.scorer.GetConfig(r.Context(), entityType)
	if err != nil {
		if errors.Is(err, completeness.ErrConfigNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "No completeness configuration for entity type", err)
			return
		}
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load configuration", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, cfg)
}

// UpsertConfigRequest replaces the full configuration for an entity type
type UpsertConfigRequest struct {
	FieldWeights   map[string]int `json:"field_weights"`
	RequiredFields []string       `json:"required_fields"`
	OptionalFields []string       `json:"optional_fields"`
}

func (h *Handler) UpsertConfig(w http.ResponseWriter, r *http.Request) {
	entityType := mux.Vars(r)["entityType"]

	var req UpsertConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	cfg := &completeness.Config{
		EntityType:     entityType,
		FieldWeights:   req.FieldWeights,
		RequiredFields: req.RequiredFields,
		OptionalFields: req.OptionalFields,
	}

	if err := h.scorer.UpsertConfig(r.Context(), cfg); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Failed to store configuration", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, cfg)
}

// GetEntityCompleteness returns the persisted score for one stored entity.
// Entities that exist but have never been swept report checked: false.
func (h *Handler) GetEntityCompleteness(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	snapshot, err := h.snapshots.GetCompleteness(r.Context(), vars["entityType"], vars["entityId"])
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Entity not found", err)
			return
		}
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to read completeness", err)
		return
	}

	response := map[string]interface{}{
		"entity_id":   snapshot.ID,
		"entity_type": vars["entityType"],
		"checked":     snapshot.Score.Valid,
	}
	if snapshot.Score.Valid {
		response["score"] = snapshot.Score.Int64
		response["gaps"] = []string(snapshot.Gaps)
		response["checked_at"] = snapshot.LastCheck.Time
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// Validation handlers

// ValidateRequest is the payload for entity validation
type ValidateRequest struct {
	EntityType string        `json:"entity_type" validate:"required"`
	Payload    entity.Record `json:"payload"`
}

func (h *Handler) ValidateEntity(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	result, err := h.validator.Validate(r.Context(), req.EntityType, req.Payload)
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to validate entity", err)
		return
	}

	h.collector.RecordValidation(req.EntityType, result.Valid)
	h.writeJSONResponse(w, http.StatusOK, result)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	if entityType == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "entity_type query parameter is required", nil)
		return
	}

	rules, err := h.rules.ListForEntity(r.Context(), entityType)
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"total": len(rules),
	})
}

// RuleRequest creates or replaces a business rule
type RuleRequest struct {
	Name        string                `json:"name" validate:"required"`
	Description string                `json:"description"`
	EntityType  string                `json:"entity_type" validate:"required"`
	Field       string                `json:"field" validate:"required"`
	RuleType    string                `json:"rule_type" validate:"required,oneof=REQUIRED FORMAT RANGE CUSTOM"`
	RuleConfig  validation.RuleConfig `json:"rule_config"`
	IsActive    *bool                 `json:"is_active"`
	Priority    int                   `json:"priority"`
}

func (req *RuleRequest) toRule(id string) *validation.Rule {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &validation.Rule{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		EntityType:  req.EntityType,
		Field:       req.Field,
		Type:        validation.RuleType(req.RuleType),
		Config:      req.RuleConfig,
		Active:      active,
		Priority:    req.Priority,
	}
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	rule := req.toRule(uuid.New().String())
	if err := rule.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	if err := h.rules.Create(r.Context(), rule); err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create rule", err)
		return
	}

	h.ruleCache.Invalidate(rule.EntityType)
	h.writeJSONResponse(w, http.StatusCreated, rule)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["ruleId"]

	rule, err := h.rules.GetByID(r.Context(), ruleID)
	if err != nil {
		if errors.Is(err, validation.ErrRuleNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Rule not found", err)
			return
		}
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, rule)
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["ruleId"]

	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	rule := req.toRule(ruleID)
	if err := rule.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	if err := h.rules.Update(r.Context(), rule); err != nil {
		if errors.Is(err, validation.ErrRuleNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Rule not found", err)
			return
		}
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update rule", err)
		return
	}

	h.ruleCache.Invalidate(rule.EntityType)
	h.writeJSONResponse(w, http.StatusOK, rule)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["ruleId"]

	rule, err := h.rules.GetByID(r.Context(), ruleID)
	if err != nil {
		if errors.Is(err, validation.ErrRuleNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Rule not found", err)
			return
		}
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	if err := h.rules.Delete(r.Context(), ruleID); err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete rule", err)
		return
	}

	h.ruleCache.Invalidate(rule.EntityType)
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"rule_id":    ruleID,
		"deleted_at": time.Now().UTC(),
	})
}

func (h *Handler) SeedRules(w http.ResponseWriter, r *http.Request) {
	validation.SeedDefaults(r.Context(), h.rules, h.logger)

	for _, entityType := range []string{"User", "Guest", "Vendor"} {
		h.ruleCache.Invalidate(entityType)
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "seeded",
		"seeded_at": time.Now().UTC(),
	})
}

// Helper methods

func (h *Handler) writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, status int, message string, err error) {
	h.logger.Error(message, zap.Error(err))

	response := map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC(),
	}

	if err != nil {
		response["details"] = err.Error()
	}

	h.writeJSONResponse(w, status, response)
}
