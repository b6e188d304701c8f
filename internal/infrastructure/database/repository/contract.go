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

// ContractRepository handles contract persistence
type ContractRepository struct {
	pool *pgxpool.Pool
}

// NewContractRepository creates a new contract repository
func NewContractRepository(pool *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{pool: pool}
}

const contractColumns = `
	id, vendor_id, title, value, start_date, end_date, status,
	created_at, updated_at`

// Create inserts a new contract
func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "active"
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.VendorID, c.Title, c.Value, c.StartDate, c.EndDate, c.Status,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	return c, nil
}

// GetByID retrieves a contract by ID. Returns nil when absent.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContractFrom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

// ListByVendor retrieves all contracts for one vendor
func (r *ContractRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE vendor_id = $1 ORDER BY end_date NULLS LAST`
	return r.list(ctx, query, vendorID)
}

// List retrieves all contracts ordered by soonest end date
func (r *ContractRepository) List(ctx context.Context, limit, offset int) ([]*models.Contract, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + contractColumns + ` FROM contracts ORDER BY end_date NULLS LAST LIMIT $1 OFFSET $2`
	contracts, err := r.list(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

// Update rewrites a contract's mutable fields
func (r *ContractRepository) Update(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	c.UpdatedAt = time.Now()

	query := `
		UPDATE contracts SET
			title = $2, value = $3, start_date = $4, end_date = $5,
			status = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Value, c.StartDate, c.EndDate, c.Status, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return c, nil
}

// Delete removes a contract
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete contract: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ContractRepository) list(ctx context.Context, query string, args ...any) ([]*models.Contract, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		c, err := scanContractFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func scanContractFrom(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	err := row.Scan(
		&c.ID, &c.VendorID, &c.Title, &c.Value, &c.StartDate, &c.EndDate,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
