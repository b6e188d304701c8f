package handlers

import (
	"net/http"
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

// TreatmentsHandler handles treatment plan and control endpoints
type TreatmentsHandler struct {
	repos     *repository.Repositories
	aging     *services.AgingClassifier
	publisher *streaming.Publisher
	logger    *logger.Logger
}

// NewTreatmentsHandler creates a new TreatmentsHandler
func NewTreatmentsHandler(repos *repository.Repositories, aging *services.AgingClassifier, pub *streaming.Publisher, log *logger.Logger) *TreatmentsHandler {
	return &TreatmentsHandler{
		repos:     repos,
		aging:     aging,
		publisher: pub,
		logger:    log.WithComponent("treatments"),
	}
}

type planRequest struct {
	RiskID      string  `json:"risk_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Cost        float64 `json:"cost"`
	StartDate   string  `json:"start_date"`
	TargetDate  string  `json:"target_date"`
}

// CreatePlan handles POST /api/v1/treatments. The risk snapshot is captured
// from the risk as it stands right now; later edits to the risk leave it
// untouched.
func (h *TreatmentsHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondValidation(w, "name is required")
		return
	}
	riskID, err := uuid.Parse(req.RiskID)
	if err != nil {
		respondValidation(w, "risk_id must be a UUID")
		return
	}

	risk, err := h.repos.Risks.GetByID(r.Context(), riskID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if risk == nil {
		respondNotFound(w, "risk not found")
		return
	}

	plan := &models.TreatmentPlan{
		RiskID:      riskID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      req.Status,
		Cost:        req.Cost,
		StartDate:   parseDate(req.StartDate),
		TargetDate:  parseDate(req.TargetDate),
		Snapshot:    models.SnapshotOf(risk),
	}

	created, err := h.repos.Treatments.CreatePlan(r.Context(), plan)
	if err != nil {
		h.logger.Error().Err(err).Str("risk", risk.Ref).Msg("failed to create treatment plan")
		respondInternal(w, err)
		return
	}

	h.publisher.PublishTreatmentUpdated(r.Context(), created)
	h.logger.Info().Str("plan", created.ID.String()).Str("risk", risk.Ref).Msg("treatment plan created")
	respondData(w, http.StatusCreated, created)
}

// GetPlan handles GET /api/v1/treatments/{id}
func (h *TreatmentsHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	plan, err := h.repos.Treatments.GetPlan(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if plan == nil {
		respondNotFound(w, "treatment plan not found")
		return
	}

	h.decorateControls(plan.Controls)
	respondData(w, http.StatusOK, plan)
}

// ListPlans handles GET /api/v1/risks/{id}/treatments
func (h *TreatmentsHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	riskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	plans, err := h.repos.Treatments.ListPlansByRisk(r.Context(), riskID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list treatment plans")
		respondInternal(w, err)
		return
	}
	respondData(w, http.StatusOK, plans)
}

// UpdatePlan handles PUT /api/v1/treatments/{id}
func (h *TreatmentsHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	existing, err := h.repos.Treatments.GetPlan(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if existing == nil {
		respondNotFound(w, "treatment plan not found")
		return
	}

	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondValidation(w, "name is required")
		return
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Description = req.Description
	if req.Status != "" {
		existing.Status = req.Status
	}
	existing.Cost = req.Cost
	existing.StartDate = parseDate(req.StartDate)
	existing.TargetDate = parseDate(req.TargetDate)

	updated, err := h.repos.Treatments.UpdatePlan(r.Context(), existing)
	if err != nil {
		h.logger.Error().Err(err).Str("plan", id.String()).Msg("failed to update treatment plan")
		respondInternal(w, err)
		return
	}
	if updated == nil {
		respondNotFound(w, "treatment plan not found")
		return
	}

	h.publisher.PublishTreatmentUpdated(r.Context(), updated)
	respondData(w, http.StatusOK, updated)
}

// DeletePlan handles DELETE /api/v1/treatments/{id}
func (h *TreatmentsHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	deleted, err := h.repos.Treatments.DeletePlan(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if !deleted {
		respondNotFound(w, "treatment plan not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

type controlRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	Cost          float64 `json:"cost"`
	Effectiveness int     `json:"effectiveness"`
	DueDate       string  `json:"due_date"`
}

func (req *controlRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.Effectiveness < 0 || req.Effectiveness > 100 {
		return "effectiveness must be between 0 and 100"
	}
	if req.DueDate != "" {
		if _, err := time.Parse("2006-01-02", req.DueDate); err != nil {
			return "due_date must be YYYY-MM-DD"
		}
	}
	return ""
}

// CreateControl handles POST /api/v1/treatments/{id}/controls
func (h *TreatmentsHandler) CreateControl(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	plan, err := h.repos.Treatments.GetPlan(r.Context(), planID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if plan == nil {
		respondNotFound(w, "treatment plan not found")
		return
	}

	var req controlRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}

	control := &models.TreatmentControl{
		PlanID:        planID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Status:        models.ControlStatus(req.Status),
		Cost:          req.Cost,
		Effectiveness: req.Effectiveness,
		DueDate:       parseDate(req.DueDate),
	}

	created, err := h.repos.Treatments.CreateControl(r.Context(), control)
	if err != nil {
		h.logger.Error().Err(err).Str("plan", planID.String()).Msg("failed to create control")
		respondInternal(w, err)
		return
	}

	created.AgingStatus = string(h.aging.ClassifyControl(created.DueDate, string(created.Status), time.Now()))
	respondData(w, http.StatusCreated, created)
}

// ListControls handles GET /api/v1/treatments/{id}/controls
func (h *TreatmentsHandler) ListControls(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	controls, err := h.repos.Treatments.ListControls(r.Context(), planID)
	if err != nil {
		respondInternal(w, err)
		return
	}

	h.decorateControls(controls)
	respondData(w, http.StatusOK, controls)
}

// UpdateControl handles PUT /api/v1/treatments/controls/{control_id}
func (h *TreatmentsHandler) UpdateControl(w http.ResponseWriter, r *http.Request) {
	controlID, err := uuid.Parse(chi.URLParam(r, "control_id"))
	if err != nil {
		respondValidation(w, "control_id must be a UUID")
		return
	}

	var req controlRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}

	control := &models.TreatmentControl{
		ID:            controlID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Status:        models.ControlStatus(req.Status),
		Cost:          req.Cost,
		Effectiveness: req.Effectiveness,
		DueDate:       parseDate(req.DueDate),
	}

	updated, err := h.repos.Treatments.UpdateControl(r.Context(), control)
	if err != nil {
		h.logger.Error().Err(err).Str("control", controlID.String()).Msg("failed to update control")
		respondInternal(w, err)
		return
	}
	if updated == nil {
		respondNotFound(w, "control not found")
		return
	}

	updated.AgingStatus = string(h.aging.ClassifyControl(updated.DueDate, string(updated.Status), time.Now()))
	respondData(w, http.StatusOK, updated)
}

// DeleteControl handles DELETE /api/v1/treatments/controls/{control_id}
func (h *TreatmentsHandler) DeleteControl(w http.ResponseWriter, r *http.Request) {
	controlID, err := uuid.Parse(chi.URLParam(r, "control_id"))
	if err != nil {
		respondValidation(w, "control_id must be a UUID")
		return
	}

	deleted, err := h.repos.Treatments.DeleteControl(r.Context(), controlID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if !deleted {
		respondNotFound(w, "control not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": controlID.String()})
}

// decorateControls stamps the derived aging status onto each control
func (h *TreatmentsHandler) decorateControls(controls []models.TreatmentControl) {
	now := time.Now()
	for i := range controls {
		controls[i].AgingStatus = string(h.aging.ClassifyControl(controls[i].DueDate, string(controls[i].Status), now))
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
