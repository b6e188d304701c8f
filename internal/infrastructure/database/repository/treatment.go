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

// TreatmentRepository handles treatment plan and control persistence
type TreatmentRepository struct {
	pool *pgxpool.Pool
}

// NewTreatmentRepository creates a new treatment repository
func NewTreatmentRepository(pool *pgxpool.Pool) *TreatmentRepository {
	return &TreatmentRepository{pool: pool}
}

const planColumns = `
	id, risk_id, name, description, status, cost, start_date, target_date,
	original_risk_title, original_risk_level, original_risk_score,
	created_at, updated_at`

// CreatePlan inserts a new treatment plan. The risk snapshot fields are
// written once here and never touched by later updates.
func (r *TreatmentRepository) CreatePlan(ctx context.Context, plan *models.TreatmentPlan) (*models.TreatmentPlan, error) {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.Status == "" {
		plan.Status = "draft"
	}
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	query := `
		INSERT INTO treatment_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		plan.ID, plan.RiskID, plan.Name, nullIfEmpty(plan.Description), plan.Status,
		plan.Cost, plan.StartDate, plan.TargetDate,
		plan.Snapshot.Title, plan.Snapshot.Level, plan.Snapshot.Score,
		plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create treatment plan: %w", err)
	}
	return plan, nil
}

// GetPlan retrieves a plan with its controls and aggregates. Returns nil
// when absent.
func (r *TreatmentRepository) GetPlan(ctx context.Context, id uuid.UUID) (*models.TreatmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM treatment_plans WHERE id = $1`
	plan, err := scanPlanFrom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get treatment plan: %w", err)
	}

	controls, err := r.ListControls(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	plan.Controls = controls

	agg, err := r.PlanAggregate(ctx, plan.ID, time.Now())
	if err != nil {
		return nil, err
	}
	plan.Aggregate = agg

	return plan, nil
}

// ListPlansByRisk retrieves all plans for one risk, newest first
func (r *TreatmentRepository) ListPlansByRisk(ctx context.Context, riskID uuid.UUID) ([]*models.TreatmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM treatment_plans WHERE risk_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, riskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list treatment plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.TreatmentPlan
	for rows.Next() {
		plan, err := scanPlanFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan treatment plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// UpdatePlan rewrites a plan's mutable fields. The snapshot columns are
// deliberately excluded.
func (r *TreatmentRepository) UpdatePlan(ctx context.Context, plan *models.TreatmentPlan) (*models.TreatmentPlan, error) {
	plan.UpdatedAt = time.Now()

	query := `
		UPDATE treatment_plans SET
			name = $2, description = $3, status = $4, cost = $5,
			start_date = $6, target_date = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		plan.ID, plan.Name, nullIfEmpty(plan.Description), plan.Status,
		plan.Cost, plan.StartDate, plan.TargetDate, plan.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update treatment plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return plan, nil
}

// DeletePlan removes a plan and its controls
func (r *TreatmentRepository) DeletePlan(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM treatment_plans WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete treatment plan: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const controlColumns = `
	id, plan_id, name, description, status, cost, effectiveness, due_date,
	created_at, updated_at`

// CreateControl inserts a new control under a plan
func (r *TreatmentRepository) CreateControl(ctx context.Context, control *models.TreatmentControl) (*models.TreatmentControl, error) {
	if control.ID == uuid.Nil {
		control.ID = uuid.New()
	}
	if control.Status == "" {
		control.Status = models.ControlStatusPlanned
	}
	now := time.Now()
	control.CreatedAt = now
	control.UpdatedAt = now

	query := `
		INSERT INTO treatment_controls (` + controlColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		control.ID, control.PlanID, control.Name, nullIfEmpty(control.Description),
		control.Status, control.Cost, control.Effectiveness, control.DueDate,
		control.CreatedAt, control.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create treatment control: %w", err)
	}
	return control, nil
}

// ListControls retrieves all controls for one plan
func (r *TreatmentRepository) ListControls(ctx context.Context, planID uuid.UUID) ([]models.TreatmentControl, error) {
	query := `SELECT ` + controlColumns + ` FROM treatment_controls WHERE plan_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list treatment controls: %w", err)
	}
	defer rows.Close()

	var controls []models.TreatmentControl
	for rows.Next() {
		var c models.TreatmentControl
		var description *string
		err := rows.Scan(
			&c.ID, &c.PlanID, &c.Name, &description, &c.Status,
			&c.Cost, &c.Effectiveness, &c.DueDate, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan treatment control: %w", err)
		}
		c.Description = deref(description)
		controls = append(controls, c)
	}
	return controls, rows.Err()
}

// UpdateControl rewrites a control's mutable fields
func (r *TreatmentRepository) UpdateControl(ctx context.Context, control *models.TreatmentControl) (*models.TreatmentControl, error) {
	control.UpdatedAt = time.Now()

	query := `
		UPDATE treatment_controls SET
			name = $2, description = $3, status = $4, cost = $5,
			effectiveness = $6, due_date = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		control.ID, control.Name, nullIfEmpty(control.Description), control.Status,
		control.Cost, control.Effectiveness, control.DueDate, control.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update treatment control: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return control, nil
}

// DeleteControl removes a control
func (r *TreatmentRepository) DeleteControl(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM treatment_controls WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete treatment control: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// PlanAggregate computes control rollups for one plan
func (r *TreatmentRepository) PlanAggregate(ctx context.Context, planID uuid.UUID, now time.Time) (*models.PlanAggregate, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status NOT IN ('completed', 'cancelled') AND due_date < $2),
			COALESCE(AVG(effectiveness), 0)
		FROM treatment_controls
		WHERE plan_id = $1`

	var agg models.PlanAggregate
	err := r.pool.QueryRow(ctx, query, planID, now).Scan(
		&agg.TotalControls, &agg.CompletedControls, &agg.OverdueControls, &agg.AvgEffectiveness,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate treatment controls: %w", err)
	}
	return &agg, nil
}

// OverdueControlCount counts overdue controls across all plans
func (r *TreatmentRepository) OverdueControlCount(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM treatment_controls
		WHERE status NOT IN ('completed', 'cancelled') AND due_date < $1`, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue controls: %w", err)
	}
	return count, nil
}

func scanPlanFrom(row pgx.Row) (*models.TreatmentPlan, error) {
	var plan models.TreatmentPlan
	var description *string
	err := row.Scan(
		&plan.ID, &plan.RiskID, &plan.Name, &description, &plan.Status,
		&plan.Cost, &plan.StartDate, &plan.TargetDate,
		&plan.Snapshot.Title, &plan.Snapshot.Level, &plan.Snapshot.Score,
		&plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	plan.Description = deref(description)
	return &plan, nil
}
