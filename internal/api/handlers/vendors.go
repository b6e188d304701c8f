package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"grchub/internal/domain/models"
	"grchub/internal/domain/services"
	"grchub/internal/infrastructure/database/repository"
	"grchub/pkg/logger"
)

// VendorsHandler handles vendor endpoints
type VendorsHandler struct {
	repos  *repository.Repositories
	scorer *services.Scorer
	logger *logger.Logger
}

// NewVendorsHandler creates a new VendorsHandler
func NewVendorsHandler(repos *repository.Repositories, scorer *services.Scorer, log *logger.Logger) *VendorsHandler {
	return &VendorsHandler{
		repos:  repos,
		scorer: scorer,
		logger: log.WithComponent("vendors"),
	}
}

type vendorRequest struct {
	Name         string   `json:"name"`
	Tier         string   `json:"tier"`
	RawScore     *float64 `json:"raw_score"`
	ContactName  string   `json:"contact_name"`
	ContactEmail string   `json:"contact_email"`
	Status       string   `json:"status"`
}

func (req *vendorRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.RawScore != nil && (*req.RawScore < 0 || *req.RawScore > 9) {
		return "raw_score must be between 0 and 9"
	}
	return ""
}

// Create handles POST /api/v1/vendors. Criticality is always derived from
// the raw questionnaire score, never taken from the client.
func (h *VendorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}

	vendor := &models.Vendor{
		Name:         strings.TrimSpace(req.Name),
		Tier:         models.VendorTier(req.Tier),
		RawScore:     req.RawScore,
		Criticality:  h.scorer.NormalizeVendorScore(req.RawScore),
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Status:       models.VendorStatus(req.Status),
	}

	created, err := h.repos.Vendors.Create(r.Context(), vendor)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create vendor")
		respondInternal(w, err)
		return
	}

	h.logger.Info().Str("vendor", created.Name).Int("criticality", created.Criticality).Msg("vendor created")
	respondData(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/vendors/{id}
func (h *VendorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	vendor, err := h.repos.Vendors.GetByID(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if vendor == nil {
		respondNotFound(w, "vendor not found")
		return
	}
	respondData(w, http.StatusOK, vendor)
}

// List handles GET /api/v1/vendors
func (h *VendorsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.VendorFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	for _, t := range queryList(r, "tier") {
		filter.Tiers = append(filter.Tiers, models.VendorTier(t))
	}
	for _, s := range queryList(r, "status") {
		filter.Statuses = append(filter.Statuses, models.VendorStatus(s))
	}

	vendors, total, err := h.repos.Vendors.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list vendors")
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, listResponse{
		Items:  vendors,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Update handles PUT /api/v1/vendors/{id}
func (h *VendorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	existing, err := h.repos.Vendors.GetByID(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if existing == nil {
		respondNotFound(w, "vendor not found")
		return
	}

	var req vendorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondValidation(w, msg)
		return
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Tier = models.VendorTier(req.Tier)
	existing.RawScore = req.RawScore
	existing.Criticality = h.scorer.NormalizeVendorScore(req.RawScore)
	existing.ContactName = req.ContactName
	existing.ContactEmail = req.ContactEmail
	if req.Status != "" {
		existing.Status = models.VendorStatus(req.Status)
	}

	updated, err := h.repos.Vendors.Update(r.Context(), existing)
	if err != nil {
		h.logger.Error().Err(err).Str("vendor", id.String()).Msg("failed to update vendor")
		respondInternal(w, err)
		return
	}
	if updated == nil {
		respondNotFound(w, "vendor not found")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/vendors/{id}
func (h *VendorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	deleted, err := h.repos.Vendors.Delete(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if !deleted {
		respondNotFound(w, "vendor not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": id.String()})
}
