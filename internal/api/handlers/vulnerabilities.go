package handlers

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"grchub/internal/domain/models"
	"grchub/internal/domain/services"
	"grchub/internal/infrastructure/database/repository"
	"grchub/pkg/logger"
)

var cvePattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// VulnerabilitiesHandler handles tracked vulnerability endpoints
type VulnerabilitiesHandler struct {
	repos     *repository.Repositories
	refresher *services.EPSSRefresher
	logger    *logger.Logger
}

// NewVulnerabilitiesHandler creates a new VulnerabilitiesHandler
func NewVulnerabilitiesHandler(repos *repository.Repositories, refresher *services.EPSSRefresher, log *logger.Logger) *VulnerabilitiesHandler {
	return &VulnerabilitiesHandler{
		repos:     repos,
		refresher: refresher,
		logger:    log.WithComponent("vulnerabilities"),
	}
}

type vulnerabilityRequest struct {
	CVEID    string `json:"cve_id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
}

// Create handles POST /api/v1/vulnerabilities
func (h *VulnerabilitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vulnerabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	cveID := strings.ToUpper(strings.TrimSpace(req.CVEID))
	if !cvePattern.MatchString(cveID) {
		respondValidation(w, "cve_id must look like CVE-2024-12345")
		return
	}

	vuln := &models.Vulnerability{
		CVEID:    cveID,
		Title:    req.Title,
		Severity: req.Severity,
		Status:   models.VulnStatus(req.Status),
	}

	created, err := h.repos.Vulnerabilities.Create(r.Context(), vuln)
	if err != nil {
		h.logger.Error().Err(err).Str("cve", cveID).Msg("failed to create vulnerability")
		respondInternal(w, err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/vulnerabilities/{id}. The response carries a
// derived stale flag so clients know the EPSS data needs refreshing.
func (h *VulnerabilitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	vuln, err := h.repos.Vulnerabilities.GetByID(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if vuln == nil {
		respondNotFound(w, "vulnerability not found")
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"vulnerability": vuln,
		"epss_stale":    h.refresher.IsStale(vuln.EPSSUpdatedAt, time.Now()),
	})
}

// List handles GET /api/v1/vulnerabilities
func (h *VulnerabilitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	vulns, total, err := h.repos.Vulnerabilities.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list vulnerabilities")
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, listResponse{
		Items:  vulns,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Delete handles DELETE /api/v1/vulnerabilities/{id}
func (h *VulnerabilitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondValidation(w, "id must be a UUID")
		return
	}

	deleted, err := h.repos.Vulnerabilities.Delete(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}
	if !deleted {
		respondNotFound(w, "vulnerability not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

type refreshRequest struct {
	CVEIDs []string `json:"cve_ids"`
	All    bool     `json:"all"`
}

// RefreshEPSS handles POST /api/v1/vulnerabilities/refresh-epss. With no
// body (or an empty one) it refreshes only the stale records; "all": true
// forces every tracked CVE; an explicit cve_ids list refreshes exactly
// those.
func (h *VulnerabilitiesHandler) RefreshEPSS(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	var report models.RefreshReport
	var err error
	switch {
	case len(req.CVEIDs) > 0:
		report = h.refresher.Refresh(r.Context(), req.CVEIDs)
	case req.All:
		report, err = h.refresher.RefreshAll(r.Context())
	default:
		report, err = h.refresher.RefreshStale(r.Context())
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("EPSS refresh failed")
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, report)
}

// EPSSStatus handles GET /api/v1/vulnerabilities/epss-status
func (h *VulnerabilitiesHandler) EPSSStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	stale, err := h.repos.Vulnerabilities.CountStale(r.Context(), h.refresher.StaleCutoff(now))
	if err != nil {
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"stale_count": stale,
		"checked_at":  now.UTC().Format(time.RFC3339),
	})
}
