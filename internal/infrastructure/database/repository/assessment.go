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

// AssessmentRepository handles control assessment persistence
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const assessmentColumns = `
	id, control_ref, framework, response, result, assessor, assessed_at,
	created_at, updated_at`

// Create inserts a new assessment
func (r *AssessmentRepository) Create(ctx context.Context, a *models.Assessment) (*models.Assessment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AssessedAt.IsZero() {
		a.AssessedAt = time.Now()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO assessments (` + assessmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ControlRef, a.Framework, a.Response, a.Result,
		nullIfEmpty(a.Assessor), a.AssessedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	return a, nil
}

// GetByID retrieves an assessment by ID. Returns nil when absent.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`
	a, err := scanAssessmentFrom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return a, nil
}

// List retrieves assessments, optionally scoped to one framework
func (r *AssessmentRepository) List(ctx context.Context, framework models.Framework, limit, offset int) ([]*models.Assessment, int64, error) {
	b := &predicateBuilder{}
	if framework != "" {
		b.add("framework = $%d", string(framework))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM assessments%s ORDER BY assessed_at DESC LIMIT $%d OFFSET $%d`,
		assessmentColumns, b.where(), b.next(limit), b.next(offset))

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*models.Assessment
	for rows.Next() {
		a, err := scanAssessmentFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan assessment: %w", err)
		}
		assessments = append(assessments, a)
	}
	return assessments, total, rows.Err()
}

// Update rewrites an assessment. The caller reclassifies the result from
// the response text before calling.
func (r *AssessmentRepository) Update(ctx context.Context, a *models.Assessment) (*models.Assessment, error) {
	a.UpdatedAt = time.Now()

	query := `
		UPDATE assessments SET
			control_ref = $2, framework = $3, response = $4, result = $5,
			assessor = $6, assessed_at = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.ControlRef, a.Framework, a.Response, a.Result,
		nullIfEmpty(a.Assessor), a.AssessedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return a, nil
}

// Delete removes an assessment
func (r *AssessmentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete assessment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAssessmentFrom(row pgx.Row) (*models.Assessment, error) {
	var a models.Assessment
	var assessor *string
	err := row.Scan(
		&a.ID, &a.ControlRef, &a.Framework, &a.Response, &a.Result,
		&assessor, &a.AssessedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Assessor = deref(assessor)
	return &a, nil
}
