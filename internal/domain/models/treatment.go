package models

import (
	"time"

	"github.com/google/uuid"
)

// ControlStatus is the lifecycle state of a treatment control
type ControlStatus string

const (
	ControlStatusPlanned    ControlStatus = "planned"
	ControlStatusInProgress ControlStatus = "in_progress"
	ControlStatusCompleted  ControlStatus = "completed"
	ControlStatusCancelled  ControlStatus = "cancelled"
)

// RiskSnapshot is a point-in-time capture of the originating risk, taken
// when a treatment plan is created. It is intentionally never synchronized
// with later edits to the risk itself.
type RiskSnapshot struct {
	Title string    `json:"original_risk_title" db:"original_risk_title"`
	Level RiskLevel `json:"original_risk_level" db:"original_risk_level"`
	Score int       `json:"original_risk_score" db:"original_risk_score"`
}

// SnapshotOf captures the snapshot fields from a risk as it stands now
func SnapshotOf(r *Risk) RiskSnapshot {
	return RiskSnapshot{
		Title: r.Title,
		Level: r.Level,
		Score: r.Score,
	}
}

// TreatmentPlan is a remediation initiative tied to exactly one risk
type TreatmentPlan struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	RiskID      uuid.UUID    `json:"risk_id" db:"risk_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description,omitempty" db:"description"`
	Status      string       `json:"status" db:"status"`
	Cost        float64      `json:"cost,omitempty" db:"cost"`
	StartDate   *time.Time   `json:"start_date,omitempty" db:"start_date"`
	TargetDate  *time.Time   `json:"target_date,omitempty" db:"target_date"`
	Snapshot    RiskSnapshot `json:"snapshot" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Related data (not stored in the plans table)
	Controls  []TreatmentControl `json:"controls,omitempty" db:"-"`
	Aggregate *PlanAggregate     `json:"aggregate,omitempty" db:"-"`
}

// TreatmentControl is a single control within a treatment plan
type TreatmentControl struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	PlanID        uuid.UUID     `json:"plan_id" db:"plan_id"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description,omitempty" db:"description"`
	Status        ControlStatus `json:"status" db:"status"`
	Cost          float64       `json:"cost,omitempty" db:"cost"`
	Effectiveness int           `json:"effectiveness" db:"effectiveness"` // 0-100
	DueDate       *time.Time    `json:"due_date,omitempty" db:"due_date"`
	AgingStatus   string        `json:"aging_status,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PlanAggregate holds control rollups computed by the plan query layer
type PlanAggregate struct {
	TotalControls     int     `json:"total_controls"`
	CompletedControls int     `json:"completed_controls"`
	OverdueControls   int     `json:"overdue_controls"`
	AvgEffectiveness  float64 `json:"avg_effectiveness"`
}
