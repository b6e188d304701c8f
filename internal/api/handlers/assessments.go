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
	"grchub/pkg/logger"
)

// AssessmentsHandler handles control assessment endpoints
type AssessmentsHandler struct {
	repos  *repository.Repositories
	scorer *services.Scorer
	logger *logger.Logger
}

// NewAssessmentsHandler creates a new AssessmentsHandler
func NewAssessmentsHandler(repos *repository.Repositories, scorer *services.Scorer, log *logger.Logger) *AssessmentsHandler {
	return &AssessmentsHandler{
		repos:  repos,
		scorer: scorer,
		logger: log.WithComponent("assessments"),
	}
}

type assessmentRequest struct {
	ControlRef string `json:"control_ref"`
	Framework  string `json:"framework"`
	Response   string `json:"response"`
	Assessor   string `json:"assessor"`
	AssessedAt string `json:"assessed_at"`
}

func (req *assessmentRequest) validate() string {
	if strings.TrimSpace(req.ControlRef) == "" {
		return "control_ref is required"
	}
	if !models.Framework(req.Framework).Valid() {
		return "framework must be one of iso27001, nist_csf, fair, tech"
	}
	if strings.TrimSpace(req.Response) == "" {
		return "response is required"
	}
	return ""
}

// Create handles POST /api/v1/assessments. The result is always classified
// from the response text, never taken from the client.
func (h *AssessmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}

	assessment := &models.Assessment{
		ControlRef: strings.TrimSpace(req.ControlRef),
		Framework:  models.Framework(req.Framework),
		Response:   req.Response,
		Result:     h.scorer.AssessmentResult(req.Response),
		Assessor:   req.Assessor,
	}
	if t, err := time.Parse("2006-01-02", req.AssessedAt); err == nil {
		assessment.AssessedAt = t
	}

	created, err := h.repos.Assessments.Create(r.Context(), assessment)
	if err != nil {
		h.logger.Error().Err(err).Str("control", assessment.ControlRef).Msg("failed to create assessment")
		respondInternal(w, err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/assessments/{id}
func (h *AssessmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	assessment, err := h.repos.Assessments.GetByID(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if assessment == nil {
		respondNotFound(w, "assessment not found")
		return
	}
	respondData(w, http.StatusOK, assessment)
}

// List handles GET /api/v1/assessments
func (h *AssessmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	framework := models.Framework(r.URL.Query().Get("framework"))
	if framework != "" && !framework.Valid() {
		respondValidation(w, "framework must be one of iso27001, nist_csf, fair, tech")
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	assessments, total, err := h.repos.Assessments.List(r.Context(), framework, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list assessments")
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, listResponse{
		Items:  assessments,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Update handles PUT /api/v1/assessments/{id}
func (h *AssessmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	existing, err := h.repos.Assessments.GetByID(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if existing == nil {
		respondNotFound(w, "assessment not found")
		return
	}

	var req assessmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}

	existing.ControlRef = strings.TrimSpace(req.ControlRef)
	existing.Framework = models.Framework(req.Framework)
	existing.Response = req.Response
	existing.Result = h.scorer.AssessmentResult(req.Response)
	existing.Assessor = req.Assessor
	if t, err := time.Parse("2006-01-02", req.AssessedAt); err == nil {
		existing.AssessedAt = t
	}

	updated, err := h.repos.Assessments.Update(r.Context(), existing)
	if err != nil {
		h.logger.Error().Err(err).Str("assessment", id.String()).Msg("failed to update assessment")
		respondInternal(w, err)
		return
	}
	if updated == nil {
		respondNotFound(w, "assessment not found")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/assessments/{id}
func (h *AssessmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	deleted, err := h.repos.Assessments.Delete(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if !deleted {
		respondNotFound(w, "assessment not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": id.String()})
}
