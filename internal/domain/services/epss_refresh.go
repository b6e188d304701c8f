package services

import (
	"context"
	"time"

	"grchub/internal/config"
	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

// EPSSFeed is the external scoring feed collaborator
type EPSSFeed interface {
	// FetchScores retrieves scores for one batch of CVE ids
	FetchScores(ctx context.Context, cveIDs []string) ([]models.EPSSRecord, error)
}

// VulnerabilityStore is the persistence surface the refresher needs
type VulnerabilityStore interface {
	// ListCVEIDs returns the CVE ids of all tracked vulnerabilities
	ListCVEIDs(ctx context.Context) ([]string, error)

	// ListStaleCVEIDs returns CVE ids whose score was never fetched or is
	// older than the cutoff
	ListStaleCVEIDs(ctx context.Context, cutoff time.Time) ([]string, error)

	// UpdateEPSS applies one score record to the matching vulnerability
	UpdateEPSS(ctx context.Context, rec models.EPSSRecord, fetchedAt time.Time) error
}

// RefreshPublisher publishes refresh completion events, best-effort
type RefreshPublisher interface {
	PublishEPSSRefreshed(ctx context.Context, report models.RefreshReport)
}

// EPSSRefresher decides which cached exploit scores are stale and refreshes
// them in bounded batches from the external feed.
type EPSSRefresher struct {
	config    config.EPSSConfig
	feed      EPSSFeed
	store     VulnerabilityStore
	publisher RefreshPublisher
	logger    *logger.Logger
}

// NewEPSSRefresher creates a new EPSSRefresher
func NewEPSSRefresher(cfg config.EPSSConfig, feed EPSSFeed, store VulnerabilityStore, log *logger.Logger) *EPSSRefresher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = 24 * time.Hour
	}
	return &EPSSRefresher{
		config: cfg,
		feed:   feed,
		store:  store,
		logger: log.WithComponent("epss_refresher"),
	}
}

// SetPublisher sets the optional event publisher
func (r *EPSSRefresher) SetPublisher(p RefreshPublisher) {
	r.publisher = p
}

// IsStale reports whether a cached score needs refreshing. A score that was
// never fetched is always stale. A score updated exactly at the freshness
// window boundary is still fresh (staleness means strictly older).
func (r *EPSSRefresher) IsStale(lastUpdated *time.Time, now time.Time) bool {
	if lastUpdated == nil {
		return true
	}
	return now.Sub(*lastUpdated) > r.config.FreshnessWindow
}

// Refresh fetches scores for the given CVE ids in batches and applies each
// record independently: a failure updating one record does not abort its
// siblings, and a failed batch does not abort the remaining batches. No
// retry happens within one invocation.
func (r *EPSSRefresher) Refresh(ctx context.Context, cveIDs []string) models.RefreshReport {
	start := time.Now()
	report := models.RefreshReport{Requested: len(cveIDs)}

	for _, batch := range chunk(cveIDs, r.config.BatchSize) {
		report.Batches++

		records, err := r.feed.FetchScores(ctx, batch)
		if err != nil {
			r.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("EPSS batch fetch failed")
			report.Failed += len(batch)
			continue
		}

		fetchedAt := time.Now()
		for _, rec := range records {
			if err := r.store.UpdateEPSS(ctx, rec, fetchedAt); err != nil {
				r.logger.Error().Err(err).Str("cve", rec.CVEID).Msg("failed to apply EPSS update")
				report.Failed++
				continue
			}
			report.Updated++
		}
	}

	report.Duration = time.Since(start)

	r.logger.Info().
		Int("requested", report.Requested).
		Int("batches", report.Batches).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("EPSS refresh completed")

	if r.publisher != nil {
		r.publisher.PublishEPSSRefreshed(ctx, report)
	}

	return report
}

// RefreshAll refreshes every tracked vulnerability
func (r *EPSSRefresher) RefreshAll(ctx context.Context) (models.RefreshReport, error) {
	ids, err := r.store.ListCVEIDs(ctx)
	if err != nil {
		return models.RefreshReport{}, err
	}
	return r.Refresh(ctx, ids), nil
}

// RefreshStale refreshes only the vulnerabilities whose cached score is
// missing or older than the freshness window.
func (r *EPSSRefresher) RefreshStale(ctx context.Context) (models.RefreshReport, error) {
	ids, err := r.store.ListStaleCVEIDs(ctx, time.Now().Add(-r.config.FreshnessWindow))
	if err != nil {
		return models.RefreshReport{}, err
	}
	return r.Refresh(ctx, ids), nil
}

// StaleCutoff returns the moment before which a cached score counts as stale
func (r *EPSSRefresher) StaleCutoff(now time.Time) time.Time {
	return now.Add(-r.config.FreshnessWindow)
}

// chunk partitions ids into slices of at most size elements
func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
