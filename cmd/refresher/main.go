package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grchub/internal/config"
	"grchub/internal/domain/models"
	"grchub/internal/domain/services"
	"grchub/internal/feeds"
	"grchub/internal/infrastructure/cache"
	"grchub/internal/infrastructure/database"
	"grchub/internal/infrastructure/database/repository"
	"grchub/internal/streaming"
	"grchub/pkg/logger"
)

const (
	lockKey     = "refresher:worker"
	lockTTL     = 5 * time.Minute
	lockRefresh = 1 * time.Minute

	maxRetries     = 3
	baseRetryDelay = 30 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

func main() {
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	log = log.WithComponent("refresher-worker")
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting EPSS refresher worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()

	// Redis is required for the distributed lock that keeps concurrent
	// worker replicas from refreshing the same records.
	redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisCache.Close()

	repos := repository.NewRepositories(db.Pool())

	refresher := services.NewEPSSRefresher(cfg.EPSS, feeds.NewEPSSClient(cfg.EPSS, log), repos.Vulnerabilities, log)
	if cfg.NATS.Enabled {
		publisher, err := streaming.NewPublisher(cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without events")
		} else {
			defer publisher.Close()
			refresher.SetPublisher(publisher)
		}
	}

	worker := &RefreshWorker{
		interval:  cfg.EPSS.RefreshInterval,
		cache:     redisCache,
		refresher: refresher,
		logger:    log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("worker stopped with error")
			cancel()
		}
	}()

	<-quit
	log.Info().Msg("shutting down refresher worker...")
	cancel()

	time.Sleep(2 * time.Second)
	log.Info().Msg("shutdown complete")
}

// RefreshWorker periodically refreshes stale EPSS probabilities. A Redis
// lock ensures only one replica runs a cycle at a time.
type RefreshWorker struct {
	interval  time.Duration
	cache     *cache.RedisCache
	refresher *services.EPSSRefresher
	logger    *logger.Logger
}

// Run starts the worker main loop
func (w *RefreshWorker) Run(ctx context.Context) error {
	interval := w.interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	w.logger.Info().
		Dur("interval", interval).
		Int("max_retries", maxRetries).
		Msg("starting refresh worker loop")

	// Run immediately on start
	w.runWithLockAndRetry(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("refresh worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.runWithLockAndRetry(ctx)
		}
	}
}

func (w *RefreshWorker) runWithLockAndRetry(ctx context.Context) {
	acquired, err := w.cache.AcquireLock(ctx, lockKey, lockTTL)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to acquire lock")
		return
	}
	if !acquired {
		w.logger.Debug().Msg("another worker is running, skipping")
		return
	}

	defer func() {
		if err := w.cache.ReleaseLock(ctx, lockKey); err != nil {
			w.logger.Warn().Err(err).Msg("failed to release lock")
		}
	}()

	lockCtx, lockCancel := context.WithCancel(ctx)
	defer lockCancel()
	go w.keepLockAlive(lockCtx)

	w.runWithRetry(ctx)
}

func (w *RefreshWorker) keepLockAlive(ctx context.Context) {
	ticker := time.NewTicker(lockRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cache.RefreshLock(ctx, lockKey, lockTTL); err != nil {
				w.logger.Warn().Err(err).Msg("failed to refresh lock")
			}
		}
	}
}

func (w *RefreshWorker) runWithRetry(ctx context.Context) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			w.logger.Info().
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("retrying refresh after delay")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		err := w.runRefresh(ctx)
		if err == nil {
			return
		}

		lastErr = err
		w.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("refresh failed")
	}

	w.logger.Error().
		Err(lastErr).
		Int("attempts", maxRetries+1).
		Msg("refresh failed after all retries")
}

func (w *RefreshWorker) runRefresh(ctx context.Context) error {
	start := time.Now()
	w.logger.Info().Msg("starting refresh cycle")

	report, err := w.refresher.RefreshStale(ctx)
	if err != nil {
		w.logger.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("refresh cycle failed")
		w.recordLastRun(ctx, start, report, err)
		return err
	}

	w.logger.Info().
		Int("requested", report.Requested).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Int("batches", report.Batches).
		Dur("duration", time.Since(start)).
		Msg("refresh cycle completed")

	w.recordLastRun(ctx, start, report, nil)
	return nil
}

// recordLastRun caches the outcome of the latest cycle for the dashboard
func (w *RefreshWorker) recordLastRun(ctx context.Context, start time.Time, report models.RefreshReport, runErr error) {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	summary := map[string]any{
		"started_at":   start.Format(time.RFC3339),
		"completed_at": time.Now().Format(time.RFC3339),
		"report":       report,
		"success":      runErr == nil,
		"error":        errMsg,
	}
	if err := w.cache.SetJSON(ctx, "refresher:last_run", summary, 24*time.Hour); err != nil {
		w.logger.Warn().Err(err).Msg("failed to cache last run")
	}
}

func calculateBackoff(attempt int) time.Duration {
	delay := baseRetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
