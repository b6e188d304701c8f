package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"grchub/internal/api/handlers"
	apimiddleware "grchub/internal/api/middleware"
	"grchub/internal/config"
	"grchub/internal/infrastructure/cache"
	"grchub/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	cache    *cache.RedisCache
	logger   *logger.Logger
}

// NewRouter creates a new Router instance
func NewRouter(cfg config.Config, h *handlers.Handlers, c *cache.RedisCache, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		cache:    c,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Rate limiting
	if r.config.RateLimit.Enabled && r.cache != nil {
		router.Use(apimiddleware.RateLimiter(r.cache, r.config.RateLimit))
	}

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
	})

	// API v1 routes (authenticated)
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKey))

		// Dashboard aggregates
		api.Get("/stats", r.handlers.Stats.Get)

		// Risk register endpoints
		api.Route("/risks", func(risks chi.Router) {
			risks.Get("/", r.handlers.Risks.List)
			risks.Post("/", r.handlers.Risks.Create)
			risks.Get("/{id}", r.handlers.Risks.Get)
			risks.Put("/{id}", r.handlers.Risks.Update)
			risks.Delete("/{id}", r.handlers.Risks.Delete)

			// Treatment plans scoped to one risk
			risks.Get("/{id}/treatments", r.handlers.Treatments.ListPlans)
		})

		// Treatment plan endpoints
		api.Route("/treatments", func(treatments chi.Router) {
			treatments.Post("/", r.handlers.Treatments.CreatePlan)
			treatments.Get("/{id}", r.handlers.Treatments.GetPlan)
			treatments.Put("/{id}", r.handlers.Treatments.UpdatePlan)
			treatments.Delete("/{id}", r.handlers.Treatments.DeletePlan)

			// Controls under a plan
			treatments.Get("/{id}/controls", r.handlers.Treatments.ListControls)
			treatments.Post("/{id}/controls", r.handlers.Treatments.CreateControl)
			treatments.Put("/controls/{control_id}", r.handlers.Treatments.UpdateControl)
			treatments.Delete("/controls/{control_id}", r.handlers.Treatments.DeleteControl)
		})

		// Vendor endpoints
		api.Route("/vendors", func(vendors chi.Router) {
			vendors.Get("/", r.handlers.Vendors.List)
			vendors.Post("/", r.handlers.Vendors.Create)
			vendors.Get("/{id}", r.handlers.Vendors.Get)
			vendors.Put("/{id}", r.handlers.Vendors.Update)
			vendors.Delete("/{id}", r.handlers.Vendors.Delete)
			vendors.Get("/{id}/contracts", r.handlers.Contracts.ListByVendor)
		})

		// Contract endpoints
		api.Route("/contracts", func(contracts chi.Router) {
			contracts.Get("/", r.handlers.Contracts.List)
			contracts.Post("/", r.handlers.Contracts.Create)
			contracts.Get("/{id}", r.handlers.Contracts.Get)
			contracts.Put("/{id}", r.handlers.Contracts.Update)
			contracts.Delete("/{id}", r.handlers.Contracts.Delete)
		})

		// Control assessment endpoints
		api.Route("/assessments", func(assessments chi.Router) {
			assessments.Get("/", r.handlers.Assessments.List)
			assessments.Post("/", r.handlers.Assessments.Create)
			assessments.Get("/{id}", r.handlers.Assessments.Get)
			assessments.Put("/{id}", r.handlers.Assessments.Update)
			assessments.Delete("/{id}", r.handlers.Assessments.Delete)
		})

		// Vulnerability / EPSS endpoints
		api.Route("/vulnerabilities", func(vulns chi.Router) {
			// Fixed paths before the parameterized one
			vulns.Post("/refresh-epss", r.handlers.Vulnerabilities.RefreshEPSS)
			vulns.Get("/epss-status", r.handlers.Vulnerabilities.EPSSStatus)

			vulns.Get("/", r.handlers.Vulnerabilities.List)
			vulns.Post("/", r.handlers.Vulnerabilities.Create)
			vulns.Get("/{id}", r.handlers.Vulnerabilities.Get)
			vulns.Delete("/{id}", r.handlers.Vulnerabilities.Delete)
		})

		// Chatbot endpoints
		api.Route("/chatbot", func(chat chi.Router) {
			chat.Post("/message", r.handlers.Chatbot.Message)
			chat.Post("/ask", r.handlers.Chatbot.Ask)
		})
	})

	return router
}
