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

// ContractsHandler handles vendor contract endpoints
type ContractsHandler struct {
	repos  *repository.Repositories
	aging  *services.AgingClassifier
	logger *logger.Logger
}

// NewContractsHandler creates a new ContractsHandler
func NewContractsHandler(repos *repository.Repositories, aging *services.AgingClassifier, log *logger.Logger) *ContractsHandler {
	return &ContractsHandler{
		repos:  repos,
		aging:  aging,
		logger: log.WithComponent("contracts"),
	}
}

type contractRequest struct {
	VendorID  string  `json:"vendor_id"`
	Title     string  `json:"title"`
	Value     float64 `json:"value"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Status    string  `json:"status"`
}

// Create handles POST /api/v1/contracts
func (h *ContractsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondValidation(w, "title is required")
		return
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		respondValidation(w, "vendor_id must be a UUID")
		return
	}

	vendor, err := h.repos.Vendors.GetByID(r.Context(), vendorID)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if vendor == nil {
		respondNotFound(w, "vendor not found")
		return
	}

	contract := &models.Contract{
		VendorID:  vendorID,
		Title:     strings.TrimSpace(req.Title),
		Value:     req.Value,
		StartDate: parseDate(req.StartDate),
		EndDate:   parseDate(req.EndDate),
		Status:    req.Status,
	}

	created, err := h.repos.Contracts.Create(r.Context(), contract)
	if err != nil {
		h.logger.Error().Err(err).Str("vendor", vendor.Name).Msg("failed to create contract")
		respondInternal(w, err)
		return
	}

	created.RenewalStatus = string(h.aging.ClassifyRenewal(created.EndDate, time.Now()))
	respondData(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/contracts/{id}
func (h *ContractsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	contract, err := h.repos.Contracts.GetByID(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if contract == nil {
		respondNotFound(w, "contract not found")
		return
	}

	contract.RenewalStatus = string(h.aging.ClassifyRenewal(contract.EndDate, time.Now()))
	respondData(w, http.StatusOK, contract)
}

// List handles GET /api/v1/contracts
func (h *ContractsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	contracts, total, err := h.repos.Contracts.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list contracts")
		respondInternal(w, err)
		return
	}

	h.decorate(contracts)
	respondData(w, http.StatusOK, listResponse{
		Items:  contracts,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// ListByVendor handles GET /api/v1/vendors/{id}/contracts
func (h *ContractsHandler) ListByVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	contracts, err := h.repos.Contracts.ListByVendor(r.Context(), vendorID)
	if err != nil {
		respondInternal(w, err)
		return
	}

	h.decorate(contracts)
	respondData(w, http.StatusOK, contracts)
}

// Update handles PUT /api/v1/contracts/{id}
func (h *ContractsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	existing, err := h.repos.Contracts.GetByID(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if existing == nil {
		respondNotFound(w, "contract not found")
		return
	}

	var req contractRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondValidation(w, "title is required")
		return
	}

	existing.Title = strings.TrimSpace(req.Title)
	existing.Value = req.Value
	existing.StartDate = parseDate(req.StartDate)
	existing.EndDate = parseDate(req.EndDate)
	if req.Status != "" {
		existing.Status = req.Status
	}

	updated, err := h.repos.Contracts.Update(r.Context(), existing)
	if err != nil {
		h.logger.Error().Err(err).Str("contract", id.String()).Msg("failed to update contract")
		respondInternal(w, err)
		return
	}
	if updated == nil {
		respondNotFound(w, "contract not found")
		return
	}

	updated.RenewalStatus = string(h.aging.ClassifyRenewal(updated.EndDate, time.Now()))
	respondData(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/contracts/{id}
func (h *ContractsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	deleted, err := h.repos.Contracts.Delete(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if !deleted {
		respondNotFound(w, "contract not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// decorate stamps the derived renewal status onto each contract
func (h *ContractsHandler) decorate(contracts []*models.Contract) {
	now := time.Now()
	for _, c := range contracts {
		c.RenewalStatus = string(h.aging.ClassifyRenewal(c.EndDate, now))
	}
}
