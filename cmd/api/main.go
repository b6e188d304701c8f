package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"grchub/internal/api"
	"grchub/internal/api/handlers"
	"grchub/internal/config"
	"grchub/internal/domain/services"
	"grchub/internal/feeds"
	"grchub/internal/infrastructure/cache"
	"grchub/internal/infrastructure/database"
	"grchub/internal/infrastructure/database/repository"
	"grchub/internal/streaming"
	"grchub/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting grchub")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()

	repos := repository.NewRepositories(db.Pool())
	log.Info().Msg("repositories initialized")

	// Connect to Redis; without it intake sessions fall back to in-process
	// storage and response caching is disabled
	redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		redisCache = nil
	}
	defer func() {
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	// Connect to NATS (optional)
	var publisher *streaming.Publisher
	if cfg.NATS.Enabled {
		publisher, err = streaming.NewPublisher(cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without events")
		} else {
			defer publisher.Close()
		}
	}

	// Initialize services
	scorer := services.NewScorer(cfg.Scoring, log)
	aging := services.NewAgingClassifier(cfg.Aging)

	epssFeed := feeds.NewEPSSClient(cfg.EPSS, log)
	refresher := services.NewEPSSRefresher(cfg.EPSS, epssFeed, repos.Vulnerabilities, log)
	refresher.SetPublisher(publisher)

	var sessions services.SessionStore
	if redisCache != nil {
		sessions = cache.NewRedisSessionStore(redisCache, cfg.Intake.SessionTTL)
	} else {
		sessions = cache.NewMemorySessionStore(cfg.Intake.SessionTTL)
	}
	intake := services.NewIntake(sessions, repos.Risks, scorer, log)

	assistant := services.NewAssistant(cfg.Assistant, log)

	// Initialize handlers
	deps := handlers.Dependencies{
		Scorer:    scorer,
		Aging:     aging,
		Refresher: refresher,
		Intake:    intake,
		Assistant: assistant,
		Cache:     redisCache,
		Publisher: publisher,
		Repos:     repos,
		Logger:    log,
		Version:   cfg.App.Version,
	}
	h := handlers.NewHandlers(deps)

	// Create router
	router := api.NewRouter(*cfg, h, redisCache, log)
	httpHandler := router.Setup()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}
