package models

import (
	"time"

	"github.com/google/uuid"
)

// Framework identifies the assessment framework a risk was recorded under
type Framework string

const (
	FrameworkISO27001 Framework = "iso27001"
	FrameworkNISTCSF  Framework = "nist_csf"
	FrameworkFAIR     Framework = "fair"
	FrameworkTech     Framework = "tech"
)

// RefPrefix returns the prefix used for human-facing reference codes
func (f Framework) RefPrefix() string {
	switch f {
	case FrameworkISO27001:
		return "ISO"
	case FrameworkNISTCSF:
		return "NIST"
	case FrameworkFAIR:
		return "FAIR"
	case FrameworkTech:
		return "TR"
	default:
		return "RISK"
	}
}

// Valid reports whether the framework is a known value
func (f Framework) Valid() bool {
	switch f {
	case FrameworkISO27001, FrameworkNISTCSF, FrameworkFAIR, FrameworkTech:
		return true
	}
	return false
}

// RiskLevel is the ordered severity classification of a risk score
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelLow      RiskLevel = "low"
)

// Rank returns a numeric ordering for level comparisons (higher is worse)
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLevelCritical:
		return 4
	case RiskLevelHigh:
		return 3
	case RiskLevelMedium:
		return 2
	case RiskLevelLow:
		return 1
	default:
		return 0
	}
}

// RiskStatus is the lifecycle state of a risk record
type RiskStatus string

const (
	RiskStatusIdentified RiskStatus = "identified"
	RiskStatusAssessed   RiskStatus = "assessed"
	RiskStatusTreating   RiskStatus = "treating"
	RiskStatusAccepted   RiskStatus = "accepted"
	RiskStatusClosed     RiskStatus = "closed"
)

// TreatmentStrategy is the chosen response to a risk
type TreatmentStrategy string

const (
	TreatmentMitigate TreatmentStrategy = "mitigate"
	TreatmentAccept   TreatmentStrategy = "accept"
	TreatmentTransfer TreatmentStrategy = "transfer"
	TreatmentAvoid    TreatmentStrategy = "avoid"
)

// Estimate is a FAIR-style three-point estimate
type Estimate struct {
	Min        float64 `json:"min" db:"min"`
	MostLikely float64 `json:"most_likely" db:"most_likely"`
	Max        float64 `json:"max" db:"max"`
}

// IsZero reports whether the estimate carries no data
func (e Estimate) IsZero() bool {
	return e.Min == 0 && e.MostLikely == 0 && e.Max == 0
}

// Risk represents a risk register entry under any supported framework
type Risk struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Ref         string    `json:"ref" db:"ref"` // e.g. FAIR-0001, TR-2025-00001
	Framework   Framework `json:"framework" db:"framework"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	Category    string    `json:"category,omitempty" db:"category"`

	// Inherent assessment (1-5 scales)
	Likelihood int       `json:"likelihood" db:"likelihood"`
	Impact     int       `json:"impact" db:"impact"`
	Score      int       `json:"score" db:"score"`
	Level      RiskLevel `json:"level" db:"level"`

	// FAIR quantitative estimates (fair framework only)
	LossEventFrequency Estimate `json:"loss_event_frequency,omitzero" db:"-"`
	PrimaryLoss        Estimate `json:"primary_loss,omitzero" db:"-"`
	SecondaryLoss      Estimate `json:"secondary_loss,omitzero" db:"-"`
	ALE                float64  `json:"ale,omitempty" db:"ale"`

	// Residual assessment after treatment
	ResidualLikelihood int       `json:"residual_likelihood,omitempty" db:"residual_likelihood"`
	ResidualImpact     int       `json:"residual_impact,omitempty" db:"residual_impact"`
	ResidualScore      int       `json:"residual_score,omitempty" db:"residual_score"`
	ResidualLevel      RiskLevel `json:"residual_level,omitempty" db:"residual_level"`

	// Treatment
	TreatmentStrategy TreatmentStrategy `json:"treatment_strategy,omitempty" db:"treatment_strategy"`
	TreatmentPlan     string            `json:"treatment_plan,omitempty" db:"treatment_plan"`
	TreatmentStatus   string            `json:"treatment_status,omitempty" db:"treatment_status"`
	TreatmentDueDate  *time.Time        `json:"treatment_due_date,omitempty" db:"treatment_due_date"`

	Owner      string     `json:"owner,omitempty" db:"owner"`
	Department string     `json:"department,omitempty" db:"department"`
	Status     RiskStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasResidual reports whether a residual assessment has been recorded
func (r *Risk) HasResidual() bool {
	return r.ResidualLikelihood > 0 && r.ResidualImpact > 0
}
