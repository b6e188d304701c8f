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

// RiskFilter defines filtering options for listing risks
type RiskFilter struct {
	Frameworks []models.Framework
	Levels     []models.RiskLevel
	Statuses   []models.RiskStatus
	Owner      string
	Category   string
	Search     string
	Limit      int
	Offset     int
}

// RiskStats holds register-wide aggregate counts
type RiskStats struct {
	TotalCount  int64            `json:"total_count"`
	ByLevel     map[string]int64 `json:"by_level"`
	ByStatus    map[string]int64 `json:"by_status"`
	ByFramework map[string]int64 `json:"by_framework"`
}

// RiskRepository handles risk register persistence
type RiskRepository struct {
	pool *pgxpool.Pool
}

// NewRiskRepository creates a new risk repository
func NewRiskRepository(pool *pgxpool.Pool) *RiskRepository {
	return &RiskRepository{pool: pool}
}

const riskColumns = `
	id, ref, framework, title, description, category,
	likelihood, impact, score, level,
	lef_min, lef_most_likely, lef_max,
	pl_min, pl_most_likely, pl_max,
	sl_min, sl_most_likely, sl_max, ale,
	residual_likelihood, residual_impact, residual_score, residual_level,
	treatment_strategy, treatment_plan, treatment_status, treatment_due_date,
	owner, department, status, created_at, updated_at`

// Create inserts a new risk, generating its framework-prefixed reference
// code from a per-framework counter in the same transaction.
func (r *RiskRepository) Create(ctx context.Context, risk *models.Risk) (*models.Risk, error) {
	if risk.ID == uuid.Nil {
		risk.ID = uuid.New()
	}
	if risk.Status == "" {
		risk.Status = models.RiskStatusIdentified
	}
	now := time.Now()
	risk.CreatedAt = now
	risk.UpdatedAt = now

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := nextRef(ctx, tx, risk.Framework, now)
	if err != nil {
		return nil, err
	}
	risk.Ref = ref

	query := `
		INSERT INTO risks (` + riskColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33
		)`

	_, err = tx.Exec(ctx, query,
		risk.ID, risk.Ref, risk.Framework, risk.Title, risk.Description, risk.Category,
		risk.Likelihood, risk.Impact, risk.Score, risk.Level,
		risk.LossEventFrequency.Min, risk.LossEventFrequency.MostLikely, risk.LossEventFrequency.Max,
		risk.PrimaryLoss.Min, risk.PrimaryLoss.MostLikely, risk.PrimaryLoss.Max,
		risk.SecondaryLoss.Min, risk.SecondaryLoss.MostLikely, risk.SecondaryLoss.Max, risk.ALE,
		nullIfZero(risk.ResidualLikelihood), nullIfZero(risk.ResidualImpact),
		nullIfZero(risk.ResidualScore), nullIfEmpty(string(risk.ResidualLevel)),
		nullIfEmpty(string(risk.TreatmentStrategy)), nullIfEmpty(risk.TreatmentPlan),
		nullIfEmpty(risk.TreatmentStatus), risk.TreatmentDueDate,
		nullIfEmpty(risk.Owner), nullIfEmpty(risk.Department), risk.Status,
		risk.CreatedAt, risk.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit risk: %w", err)
	}

	return risk, nil
}

// nextRef reserves the next reference code for a framework. Technology
// risks use a year-scoped counter (TR-2025-00001); the other frameworks use
// a flat sequence (FAIR-0001).
func nextRef(ctx context.Context, tx pgx.Tx, framework models.Framework, now time.Time) (string, error) {
	prefix := framework.RefPrefix()
	counterKey := prefix
	if framework == models.FrameworkTech {
		counterKey = fmt.Sprintf("%s-%d", prefix, now.Year())
	}

	var value int64
	err := tx.QueryRow(ctx, `
		INSERT INTO ref_counters (prefix, value) VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET value = ref_counters.value + 1
		RETURNING value`, counterKey,
	).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("failed to reserve reference code: %w", err)
	}

	if framework == models.FrameworkTech {
		return fmt.Sprintf("%s-%d-%05d", prefix, now.Year(), value), nil
	}
	return fmt.Sprintf("%s-%04d", prefix, value), nil
}

// GetByID retrieves a risk by ID. Returns nil when absent.
func (r *RiskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks WHERE id = $1`
	return r.scanRisk(r.pool.QueryRow(ctx, query, id))
}

// GetByRef retrieves a risk by its reference code. Returns nil when absent.
func (r *RiskRepository) GetByRef(ctx context.Context, ref string) (*models.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks WHERE ref = $1`
	return r.scanRisk(r.pool.QueryRow(ctx, query, ref))
}

// riskListPredicates translates the filter into bound WHERE predicates
func riskListPredicates(filter RiskFilter) *predicateBuilder {
	b := &predicateBuilder{}
	if len(filter.Frameworks) > 0 {
		b.add("framework = ANY($%d)", frameworksToStrings(filter.Frameworks))
	}
	if len(filter.Levels) > 0 {
		b.add("level = ANY($%d)", levelsToStrings(filter.Levels))
	}
	if len(filter.Statuses) > 0 {
		b.add("status = ANY($%d)", statusesToStrings(filter.Statuses))
	}
	if filter.Owner != "" {
		b.add("owner = $%d", filter.Owner)
	}
	if filter.Category != "" {
		b.add("category = $%d", filter.Category)
	}
	if filter.Search != "" {
		b.addRepeat("(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", 2, filter.Search)
	}
	return b
}

// List retrieves risks matching the filter, newest first
func (r *RiskRepository) List(ctx context.Context, filter RiskFilter) ([]*models.Risk, int64, error) {
	b := riskListPredicates(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM risks` + b.where()
	if err := r.pool.QueryRow(ctx, countQuery, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count risks: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM risks%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		riskColumns, b.where(), b.next(limit), b.next(filter.Offset))

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list risks: %w", err)
	}
	defer rows.Close()

	var risks []*models.Risk
	for rows.Next() {
		risk, err := r.scanRiskRow(rows)
		if err != nil {
			return nil, 0, err
		}
		risks = append(risks, risk)
	}
	return risks, total, rows.Err()
}

// Update rewrites the mutable fields of a risk. The caller is responsible
// for having recomputed score/level/ALE from the new inputs.
func (r *RiskRepository) Update(ctx context.Context, risk *models.Risk) (*models.Risk, error) {
	risk.UpdatedAt = time.Now()

	query := `
		UPDATE risks SET
			title = $2, description = $3, category = $4,
			likelihood = $5, impact = $6, score = $7, level = $8,
			lef_min = $9, lef_most_likely = $10, lef_max = $11,
			pl_min = $12, pl_most_likely = $13, pl_max = $14,
			sl_min = $15, sl_most_likely = $16, sl_max = $17, ale = $18,
			residual_likelihood = $19, residual_impact = $20,
			residual_score = $21, residual_level = $22,
			treatment_strategy = $23, treatment_plan = $24,
			treatment_status = $25, treatment_due_date = $26,
			owner = $27, department = $28, status = $29, updated_at = $30
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		risk.ID, risk.Title, risk.Description, risk.Category,
		risk.Likelihood, risk.Impact, risk.Score, risk.Level,
		risk.LossEventFrequency.Min, risk.LossEventFrequency.MostLikely, risk.LossEventFrequency.Max,
		risk.PrimaryLoss.Min, risk.PrimaryLoss.MostLikely, risk.PrimaryLoss.Max,
		risk.SecondaryLoss.Min, risk.SecondaryLoss.MostLikely, risk.SecondaryLoss.Max, risk.ALE,
		nullIfZero(risk.ResidualLikelihood), nullIfZero(risk.ResidualImpact),
		nullIfZero(risk.ResidualScore), nullIfEmpty(string(risk.ResidualLevel)),
		nullIfEmpty(string(risk.TreatmentStrategy)), nullIfEmpty(risk.TreatmentPlan),
		nullIfEmpty(risk.TreatmentStatus), risk.TreatmentDueDate,
		nullIfEmpty(risk.Owner), nullIfEmpty(risk.Department), risk.Status, risk.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update risk: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return risk, nil
}

// Delete removes a risk. Returns false when no row matched.
func (r *RiskRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM risks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete risk: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stats returns register-wide aggregate counts
func (r *RiskRepository) Stats(ctx context.Context) (*RiskStats, error) {
	stats := &RiskStats{
		ByLevel:     make(map[string]int64),
		ByStatus:    make(map[string]int64),
		ByFramework: make(map[string]int64),
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM risks`).Scan(&stats.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count risks: %w", err)
	}

	groups := []struct {
		query string
		dest  map[string]int64
	}{
		{`SELECT level, COUNT(*) FROM risks GROUP BY level`, stats.ByLevel},
		{`SELECT status, COUNT(*) FROM risks GROUP BY status`, stats.ByStatus},
		{`SELECT framework, COUNT(*) FROM risks GROUP BY framework`, stats.ByFramework},
	}
	for _, g := range groups {
		rows, err := r.pool.Query(ctx, g.query)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate risks: %w", err)
		}
		for rows.Next() {
			var key string
			var count int64
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, err
			}
			g.dest[key] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (r *RiskRepository) scanRisk(row pgx.Row) (*models.Risk, error) {
	risk, err := scanRiskFrom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get risk: %w", err)
	}
	return risk, nil
}

func (r *RiskRepository) scanRiskRow(rows pgx.Rows) (*models.Risk, error) {
	risk, err := scanRiskFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan risk: %w", err)
	}
	return risk, nil
}

func scanRiskFrom(row pgx.Row) (*models.Risk, error) {
	var risk models.Risk
	var (
		description, category                             *string
		residualLikelihood, residualImpact, residualScore *int
		residualLevel, strategy, plan, treatmentStatus    *string
		owner, department                                 *string
	)

	err := row.Scan(
		&risk.ID, &risk.Ref, &risk.Framework, &risk.Title, &description, &category,
		&risk.Likelihood, &risk.Impact, &risk.Score, &risk.Level,
		&risk.LossEventFrequency.Min, &risk.LossEventFrequency.MostLikely, &risk.LossEventFrequency.Max,
		&risk.PrimaryLoss.Min, &risk.PrimaryLoss.MostLikely, &risk.PrimaryLoss.Max,
		&risk.SecondaryLoss.Min, &risk.SecondaryLoss.MostLikely, &risk.SecondaryLoss.Max, &risk.ALE,
		&residualLikelihood, &residualImpact, &residualScore, &residualLevel,
		&strategy, &plan, &treatmentStatus, &risk.TreatmentDueDate,
		&owner, &department, &risk.Status, &risk.CreatedAt, &risk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	risk.Description = deref(description)
	risk.Category = deref(category)
	risk.ResidualLikelihood = derefInt(residualLikelihood)
	risk.ResidualImpact = derefInt(residualImpact)
	risk.ResidualScore = derefInt(residualScore)
	risk.ResidualLevel = models.RiskLevel(deref(residualLevel))
	risk.TreatmentStrategy = models.TreatmentStrategy(deref(strategy))
	risk.TreatmentPlan = deref(plan)
	risk.TreatmentStatus = deref(treatmentStatus)
	risk.Owner = deref(owner)
	risk.Department = deref(department)

	return &risk, nil
}

func frameworksToStrings(fs []models.Framework) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

func levelsToStrings(ls []models.RiskLevel) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = string(l)
	}
	return out
}

func statusesToStrings(ss []models.RiskStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
