package streaming

import (
	"time"

	"github.com/google/uuid"

	"grchub/internal/domain/models"
)

// EventType represents the type of domain event
type EventType string

const (
	EventTypeRiskCreated      EventType = "risk_created"
	EventTypeRiskUpdated      EventType = "risk_updated"
	EventTypeTreatmentUpdated EventType = "treatment_updated"
	EventTypeEPSSRefreshed    EventType = "epss_refreshed"
)

// RiskEvent is published when a risk register entry changes
type RiskEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	RiskID    string            `json:"risk_id"`
	Ref       string            `json:"ref"`
	Framework models.Framework  `json:"framework"`
	Title     string            `json:"title"`
	Score     int               `json:"score"`
	Level     models.RiskLevel  `json:"level"`
	Status    models.RiskStatus `json:"status"`
}

// NewRiskEvent creates an event from a risk record
func NewRiskEvent(eventType EventType, risk *models.Risk) *RiskEvent {
	return &RiskEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		RiskID:    risk.ID.String(),
		Ref:       risk.Ref,
		Framework: risk.Framework,
		Title:     risk.Title,
		Score:     risk.Score,
		Level:     risk.Level,
		Status:    risk.Status,
	}
}

// TreatmentEvent is published when a treatment plan or control changes
type TreatmentEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	PlanID string `json:"plan_id"`
	RiskID string `json:"risk_id"`
	Status string `json:"status"`
}

// RefreshEvent is published after an EPSS batch refresh run
type RefreshEvent struct {
	ID        string               `json:"id"`
	Type      EventType            `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Report    models.RefreshReport `json:"report"`
}
