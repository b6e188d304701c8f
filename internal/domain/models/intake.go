package models

import "time"

// IntakePhase is the coarse state of an intake conversation
type IntakePhase string

const (
	PhaseCollecting   IntakePhase = "collecting"
	PhaseConfirmation IntakePhase = "confirmation"
	PhaseCompleted    IntakePhase = "completed"
)

// IntakeSession holds the transient state of one conversational risk intake,
// keyed by the authenticated session identity.
type IntakeSession struct {
	Key         string            `json:"key"`
	Phase       IntakePhase       `json:"phase"`
	CurrentStep int               `json:"current_step"`
	Answers     map[string]string `json:"answers"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewIntakeSession returns a fresh session at step 0
func NewIntakeSession(key string) *IntakeSession {
	return &IntakeSession{
		Key:         key,
		Phase:       PhaseCollecting,
		CurrentStep: 0,
		Answers:     make(map[string]string),
		UpdatedAt:   time.Now(),
	}
}

// Reset returns the session to step 0 with an empty answer map
func (s *IntakeSession) Reset() {
	s.Phase = PhaseCollecting
	s.CurrentStep = 0
	s.Answers = make(map[string]string)
	s.UpdatedAt = time.Now()
}

// IntakeReply is the chatbot's response to one user message
type IntakeReply struct {
	Message   string      `json:"message"`
	Phase     IntakePhase `json:"phase"`
	Step      int         `json:"step"`
	RiskRef   string      `json:"risk_ref,omitempty"`
	FieldName string      `json:"field,omitempty"`
}
