package handlers

import (
	"net/http"
	"time"

	"grchub/internal/domain/services"
	"grchub/internal/infrastructure/cache"
	"grchub/internal/infrastructure/database/repository"
	"grchub/pkg/logger"
)

const statsCacheKey = "stats:dashboard"
const statsCacheTTL = 60 * time.Second

// StatsHandler handles dashboard aggregate endpoints
type StatsHandler struct {
	repos     *repository.Repositories
	cache     *cache.RedisCache
	refresher *services.EPSSRefresher
	logger    *logger.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(repos *repository.Repositories, c *cache.RedisCache, refresher *services.EPSSRefresher, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		repos:     repos,
		cache:     c,
		refresher: refresher,
		logger:    log.WithComponent("stats"),
	}
}

// DashboardStats is the aggregate payload for the dashboard
type DashboardStats struct {
	Risks           *repository.RiskStats `json:"risks"`
	OverdueControls int64                 `json:"overdue_controls"`
	StaleEPSSCount  int64                 `json:"stale_epss_count"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Get handles GET /api/v1/stats. Aggregates are cached briefly; a cache
// problem falls through to the database.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var cached DashboardStats
		if found, err := h.cache.GetJSON(r.Context(), statsCacheKey, &cached); err == nil && found {
			respondData(w, http.StatusOK, cached)
			return
		}
	}

	now := time.Now()

	riskStats, err := h.repos.Risks.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute risk stats")
		respondInternal(w, err)
		return
	}

	overdue, err := h.repos.Treatments.OverdueControlCount(r.Context(), now)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count overdue controls")
		respondInternal(w, err)
		return
	}

	stale, err := h.repos.Vulnerabilities.CountStale(r.Context(), h.refresher.StaleCutoff(now))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count stale EPSS scores")
		respondInternal(w, err)
		return
	}

	stats := DashboardStats{
		Risks:           riskStats,
		OverdueControls: overdue,
		StaleEPSSCount:  stale,
		GeneratedAt:     now.UTC(),
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(r.Context(), statsCacheKey, stats, statsCacheTTL); err != nil {
			h.logger.Warn().Err(err).Msg("failed to cache dashboard stats")
		}
	}

	respondData(w, http.StatusOK, stats)
}
