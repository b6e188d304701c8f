package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"grchub/internal/domain/models"
)

// VulnerabilityRepository handles tracked vulnerability persistence
type VulnerabilityRepository struct {
	pool *pgxpool.Pool
}

// NewVulnerabilityRepository creates a new vulnerability repository
func NewVulnerabilityRepository(pool *pgxpool.Pool) *VulnerabilityRepository {
	return &VulnerabilityRepository{pool: pool}
}

const vulnColumns = `
	id, cve_id, title, severity, status,
	epss_score, epss_percentile, epss_model, epss_updated_at,
	created_at, updated_at`

// Create inserts a new tracked vulnerability
func (r *VulnerabilityRepository) Create(ctx context.Context, v *models.Vulnerability) (*models.Vulnerability, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = models.VulnStatusOpen
	}
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now

	query := `
		INSERT INTO vulnerabilities (` + vulnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.CVEID, nullIfEmpty(v.Title), nullIfEmpty(v.Severity), v.Status,
		v.EPSSScore, v.EPSSPercentile, nullIfEmpty(v.EPSSModel), v.EPSSUpdatedAt,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create vulnerability: %w", err)
	}
	return v, nil
}

// GetByID retrieves a vulnerability by ID. Returns nil when absent.
func (r *VulnerabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Vulnerability, error) {
	query := `SELECT ` + vulnColumns + ` FROM vulnerabilities WHERE id = $1`
	v, err := scanVulnFrom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vulnerability: %w", err)
	}
	return v, nil
}

// List retrieves vulnerabilities ordered by EPSS score descending
func (r *VulnerabilityRepository) List(ctx context.Context, limit, offset int) ([]*models.Vulnerability, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vulnerabilities`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count vulnerabilities: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + vulnColumns + ` FROM vulnerabilities ORDER BY epss_score DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vulnerabilities: %w", err)
	}
	defer rows.Close()

	var vulns []*models.Vulnerability
	for rows.Next() {
		v, err := scanVulnFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan vulnerability: %w", err)
		}
		vulns = append(vulns, v)
	}
	return vulns, total, rows.Err()
}

// ListCVEIDs returns the CVE ids of all tracked vulnerabilities
func (r *VulnerabilityRepository) ListCVEIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT cve_id FROM vulnerabilities ORDER BY cve_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list CVE ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListStaleCVEIDs returns CVE ids whose score was never fetched or is older
// than the cutoff
func (r *VulnerabilityRepository) ListStaleCVEIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cve_id FROM vulnerabilities
		WHERE epss_updated_at IS NULL OR epss_updated_at < $1
		ORDER BY cve_id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale CVE ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountStale counts vulnerabilities with a missing or outdated EPSS score
func (r *VulnerabilityRepository) CountStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM vulnerabilities
		WHERE epss_updated_at IS NULL OR epss_updated_at < $1`, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale vulnerabilities: %w", err)
	}
	return count, nil
}

// UpdateEPSS applies one feed record to the matching vulnerability
func (r *VulnerabilityRepository) UpdateEPSS(ctx context.Context, rec models.EPSSRecord, fetchedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE vulnerabilities SET
			epss_score = $2, epss_percentile = $3, epss_model = $4,
			epss_updated_at = $5, updated_at = $5
		WHERE cve_id = $1`,
		rec.CVEID, rec.Score, rec.Percentile, rec.Model, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to apply EPSS update for %s: %w", rec.CVEID, err)
	}
	return nil
}

// Delete removes a vulnerability
func (r *VulnerabilityRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vulnerabilities WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete vulnerability: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanVulnFrom(row pgx.Row) (*models.Vulnerability, error) {
	var v models.Vulnerability
	var title, severity, model *string
	err := row.Scan(
		&v.ID, &v.CVEID, &title, &severity, &v.Status,
		&v.EPSSScore, &v.EPSSPercentile, &model, &v.EPSSUpdatedAt,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Title = deref(title)
	v.Severity = deref(severity)
	v.EPSSModel = deref(model)
	return &v, nil
}
