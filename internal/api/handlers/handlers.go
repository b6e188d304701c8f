package handlers

import (
	"grchub/internal/domain/services"
	"grchub/internal/infrastructure/cache"
	"grchub/internal/infrastructure/database/repository"
	"grchub/internal/streaming"
	"grchub/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health          *HealthHandler
	Risks           *RisksHandler
	Treatments      *TreatmentsHandler
	Vendors         *VendorsHandler
	Contracts       *ContractsHandler
	Assessments     *AssessmentsHandler
	Vulnerabilities *VulnerabilitiesHandler
	Chatbot         *ChatbotHandler
	Stats           *StatsHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Scorer    *services.Scorer
	Aging     *services.AgingClassifier
	Refresher *services.EPSSRefresher
	Intake    *services.Intake
	Assistant *services.Assistant
	Cache     *cache.RedisCache
	Publisher *streaming.Publisher
	Repos     *repository.Repositories
	Logger    *logger.Logger
	Version   string
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:          NewHealthHandler(deps.Cache, deps.Repos, deps.Version, deps.Logger),
		Risks:           NewRisksHandler(deps.Repos, deps.Scorer, deps.Publisher, deps.Logger),
		Treatments:      NewTreatmentsHandler(deps.Repos, deps.Aging, deps.Publisher, deps.Logger),
		Vendors:         NewVendorsHandler(deps.Repos, deps.Scorer, deps.Logger),
		Contracts:       NewContractsHandler(deps.Repos, deps.Aging, deps.Logger),
		Assessments:     NewAssessmentsHandler(deps.Repos, deps.Scorer, deps.Logger),
		Vulnerabilities: NewVulnerabilitiesHandler(deps.Repos, deps.Refresher, deps.Logger),
		Chatbot:         NewChatbotHandler(deps.Intake, deps.Assistant, deps.Logger),
		Stats:           NewStatsHandler(deps.Repos, deps.Cache, deps.Refresher, deps.Logger),
	}
}
