package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"grchub/internal/domain/models"
	"grchub/internal/domain/services"
	"grchub/internal/infrastructure/database/repository"
	"grchub/internal/streaming"
	"grchub/pkg/logger"
)

// RisksHandler handles risk register endpoints
type RisksHandler struct {
	repos     *repository.Repositories
	scorer    *services.Scorer
	publisher *streaming.Publisher
	logger    *logger.Logger
}

// NewRisksHandler creates a new RisksHandler
func NewRisksHandler(repos *repository.Repositories, scorer *services.Scorer, pub *streaming.Publisher, log *logger.Logger) *RisksHandler {
	return &RisksHandler{
		repos:     repos,
		scorer:    scorer,
		publisher: pub,
		logger:    log.WithComponent("risks"),
	}
}

// riskRequest is the write payload for risks. Score, level and ALE are
// always recomputed server-side; values sent by the client are ignored.
type riskRequest struct {
	Framework   string `json:"framework"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`

	Likelihood int `json:"likelihood"`
	Impact     int `json:"impact"`

	LossEventFrequency models.Estimate `json:"loss_event_frequency"`
	PrimaryLoss        models.Estimate `json:"primary_loss"`
	SecondaryLoss      models.Estimate `json:"secondary_loss"`

	ResidualLikelihood int `json:"residual_likelihood"`
	ResidualImpact     int `json:"residual_impact"`

	TreatmentStrategy string `json:"treatment_strategy"`
	TreatmentPlan     string `json:"treatment_plan"`
	TreatmentStatus   string `json:"treatment_status"`
	TreatmentDueDate  string `json:"treatment_due_date"`

	Owner      string `json:"owner"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

func (req *riskRequest) validate() string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	if !models.Framework(req.Framework).Valid() {
		return "framework must be one of iso27001, nist_csf, fair, tech"
	}
	if req.Likelihood < 1 || req.Likelihood > 5 {
		return "likelihood must be between 1 and 5"
	}
	if req.Impact < 1 || req.Impact > 5 {
		return "impact must be between 1 and 5"
	}
	if (req.ResidualLikelihood == 0) != (req.ResidualImpact == 0) {
		return "residual likelihood and impact must be provided together"
	}
	if req.ResidualLikelihood != 0 && (req.ResidualLikelihood < 1 || req.ResidualLikelihood > 5) {
		return "residual_likelihood must be between 1 and 5"
	}
	if req.ResidualImpact != 0 && (req.ResidualImpact < 1 || req.ResidualImpact > 5) {
		return "residual_impact must be between 1 and 5"
	}
	if req.TreatmentDueDate != "" {
		if _, err := time.Parse("2006-01-02", req.TreatmentDueDate); err != nil {
			return "treatment_due_date must be YYYY-MM-DD"
		}
	}
	return ""
}

// toModel applies the request onto a risk record and recomputes all derived
// fields: score, level, residual score/level and the FAIR ALE.
func (h *RisksHandler) toModel(req *riskRequest, risk *models.Risk) {
	risk.Framework = models.Framework(req.Framework)
	risk.Title = strings.TrimSpace(req.Title)
	risk.Description = req.Description
	risk.Category = req.Category
	risk.Likelihood = req.Likelihood
	risk.Impact = req.Impact
	risk.Score, risk.Level = h.scorer.Assess(risk.Framework, req.Likelihood, req.Impact)

	risk.LossEventFrequency = req.LossEventFrequency
	risk.PrimaryLoss = req.PrimaryLoss
	risk.SecondaryLoss = req.SecondaryLoss
	risk.ALE = 0
	if risk.Framework == models.FrameworkFAIR {
		risk.ALE = h.scorer.AnnualLossExpectancy(req.LossEventFrequency, req.PrimaryLoss, req.SecondaryLoss)
	}

	risk.ResidualLikelihood = req.ResidualLikelihood
	risk.ResidualImpact = req.ResidualImpact
	risk.ResidualScore = 0
	risk.ResidualLevel = ""
	if risk.HasResidual() {
		risk.ResidualScore = h.scorer.Score(req.ResidualLikelihood, req.ResidualImpact)
		risk.ResidualLevel = h.scorer.ResidualLevel(risk.Framework, req.ResidualLikelihood, req.ResidualImpact)
	}

	risk.TreatmentStrategy = models.TreatmentStrategy(req.TreatmentStrategy)
	risk.TreatmentPlan = req.TreatmentPlan
	risk.TreatmentStatus = req.TreatmentStatus
	risk.TreatmentDueDate = nil
	if req.TreatmentDueDate != "" {
		due, _ := time.Parse("2006-01-02", req.TreatmentDueDate)
		risk.TreatmentDueDate = &due
	}

	risk.Owner = req.Owner
	risk.Department = req.Department
	if req.Status != "" {
		risk.Status = models.RiskStatus(req.Status)
	}
}

// Create handles POST /api/v1/risks
func (h *RisksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}

	risk := &models.Risk{}
	h.toModel(&req, risk)

	created, err := h.repos.Risks.Create(r.Context(), risk)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create risk")
		respondInternal(w, err)
		return
	}

	h.publisher.PublishRiskCreated(r.Context(), created)
	h.logger.Info().Str("ref", created.Ref).Str("level", string(created.Level)).Msg("risk created")
	respondData(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/risks/{id}. The id may be a UUID or a reference
// code like FAIR-0001.
func (h *RisksHandler) Get(w http.ResponseWriter, r *http.Request) {
	risk, err := h.lookup(r)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if risk == nil {
		respondNotFound(w, "risk not found")
		return
	}
	respondData(w, http.StatusOK, risk)
}

// List handles GET /api/v1/risks
func (h *RisksHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.RiskFilter{
		Owner:    r.URL.Query().Get("owner"),
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}
	for _, f := range queryList(r, "framework") {
		filter.Frameworks = append(filter.Frameworks, models.Framework(f))
	}
	for _, l := range queryList(r, "level") {
		filter.Levels = append(filter.Levels, models.RiskLevel(l))
	}
	for _, s := range queryList(r, "status") {
		filter.Statuses = append(filter.Statuses, models.RiskStatus(s))
	}

	risks, total, err := h.repos.Risks.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list risks")
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, listResponse{
		Items:  risks,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Update handles PUT /api/v1/risks/{id}
func (h *RisksHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.lookup(r)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if existing == nil {
		respondNotFound(w, "risk not found")
		return
	}

	var req riskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Framework == "" {
		req.Framework = string(existing.Framework)
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}
	if models.Framework(req.Framework) != existing.Framework {
		respondValidation(w, "framework cannot be changed after creation")
		return
	}

	h.toModel(&req, existing)

	updated, err := h.repos.Risks.Update(r.Context(), existing)
	if err != nil {
		h.logger.Error().Err(err).Str("ref", existing.Ref).Msg("failed to update risk")
		respondInternal(w, err)
		return
	}
	if updated == nil {
		respondNotFound(w, "risk not found")
		return
	}

	h.publisher.PublishRiskUpdated(r.Context(), updated)
	respondData(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/risks/{id}
func (h *RisksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	deleted, err := h.repos.Risks.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("id", id.String()).Msg("failed to delete risk")
		respondInternal(w, err)
		return
	}
	if !deleted {
		respondNotFound(w, "risk not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// lookup resolves the {id} path parameter as a UUID first, then as a
// reference code.
func (h *RisksHandler) lookup(r *http.Request) (*models.Risk, error) {
	param := chi.URLParam(r, "id")
	if id, err := uuid.Parse(param); err == nil {
		return h.repos.Risks.GetByID(r.Context(), id)
	}
	return h.repos.Risks.GetByRef(r.Context(), param)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func queryList(r *http.Request, key string) []string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
