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

// VendorFilter defines filtering options for listing vendors
type VendorFilter struct {
	Tiers    []models.VendorTier
	Statuses []models.VendorStatus
	Search   string
	Limit    int
	Offset   int
}

// VendorRepository handles vendor persistence
type VendorRepository struct {
	pool *pgxpool.Pool
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(pool *pgxpool.Pool) *VendorRepository {
	return &VendorRepository{pool: pool}
}

const vendorColumns = `
	id, name, tier, raw_score, criticality, contact_name, contact_email,
	status, last_reviewed_at, next_review_at, created_at, updated_at`

// Create inserts a new vendor
func (r *VendorRepository) Create(ctx context.Context, v *models.Vendor) (*models.Vendor, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = models.VendorStatusOnboarding
	}
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now

	query := `
		INSERT INTO vendors (` + vendorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.Name, v.Tier, v.RawScore, v.Criticality,
		nullIfEmpty(v.ContactName), nullIfEmpty(v.ContactEmail),
		v.Status, v.LastReviewedAt, v.NextReviewAt, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}
	return v, nil
}

// GetByID retrieves a vendor by ID. Returns nil when absent.
func (r *VendorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	v, err := scanVendorFrom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return v, nil
}

// List retrieves vendors matching the filter
func (r *VendorRepository) List(ctx context.Context, filter VendorFilter) ([]*models.Vendor, int64, error) {
	b := &predicateBuilder{}
	if len(filter.Tiers) > 0 {
		tiers := make([]string, len(filter.Tiers))
		for i, t := range filter.Tiers {
			tiers[i] = string(t)
		}
		b.add("tier = ANY($%d)", tiers)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		b.add("status = ANY($%d)", statuses)
	}
	if filter.Search != "" {
		b.add("name ILIKE '%%' || $%d || '%%'", filter.Search)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count vendors: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM vendors%s ORDER BY name LIMIT $%d OFFSET $%d`,
		vendorColumns, b.where(), b.next(limit), b.next(filter.Offset))

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		v, err := scanVendorFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

// Update rewrites a vendor's mutable fields. The caller recomputes
// criticality from the raw score before calling.
func (r *VendorRepository) Update(ctx context.Context, v *models.Vendor) (*models.Vendor, error) {
	v.UpdatedAt = time.Now()

	query := `
		UPDATE vendors SET
			name = $2, tier = $3, raw_score = $4, criticality = $5,
			contact_name = $6, contact_email = $7, status = $8,
			last_reviewed_at = $9, next_review_at = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		v.ID, v.Name, v.Tier, v.RawScore, v.Criticality,
		nullIfEmpty(v.ContactName), nullIfEmpty(v.ContactEmail), v.Status,
		v.LastReviewedAt, v.NextReviewAt, v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return v, nil
}

// Delete removes a vendor
func (r *VendorRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete vendor: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanVendorFrom(row pgx.Row) (*models.Vendor, error) {
	var v models.Vendor
	var contactName, contactEmail *string
	err := row.Scan(
		&v.ID, &v.Name, &v.Tier, &v.RawScore, &v.Criticality,
		&contactName, &contactEmail, &v.Status,
		&v.LastReviewedAt, &v.NextReviewAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.ContactName = deref(contactName)
	v.ContactEmail = deref(contactEmail)
	return &v, nil
}
