package models

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentResult classifies a control assessment response
type AssessmentResult string

const (
	ResultEffective        AssessmentResult = "Effective"
	ResultPartialEffective AssessmentResult = "Partial Effective"
	ResultNotEffective     AssessmentResult = "Not Effective"
)

// Assessment records the evaluation of a single control
type Assessment struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	ControlRef string           `json:"control_ref" db:"control_ref"` // e.g. A.5.1, PR.AC-1
	Framework  Framework        `json:"framework" db:"framework"`
	Response   string           `json:"response" db:"response"`
	Result     AssessmentResult `json:"result" db:"result"`
	Assessor   string           `json:"assessor,omitempty" db:"assessor"`
	AssessedAt time.Time        `json:"assessed_at" db:"assessed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
