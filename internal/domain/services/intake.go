package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

// SessionStore persists intake conversation state between round-trips,
// keyed by the authenticated session identity, with idle expiry.
type SessionStore interface {
	// Get returns the session for key, or nil if absent or expired
	Get(ctx context.Context, key string) (*models.IntakeSession, error)

	// Put stores the session and refreshes its idle TTL
	Put(ctx context.Context, session *models.IntakeSession) error

	// Delete removes the session
	Delete(ctx context.Context, key string) error
}

// RiskCreator is the persistence collaborator invoked on final confirmation
type RiskCreator interface {
	Create(ctx context.Context, risk *models.Risk) (*models.Risk, error)
}

// Intake drives the conversational risk-capture flow: a fixed ordered list
// of validated fields, one per round-trip, then an explicit confirmation
// before a single persistence call. Updates within one session are
// serialized by a per-key mutex so duplicate concurrent requests cannot
// interleave.
type Intake struct {
	store  SessionStore
	risks  RiskCreator
	scorer *Scorer
	logger *logger.Logger

	mu    sync.Mutex
	locks map[string]*keyedLock
}

// NewIntake creates a new Intake service
func NewIntake(store SessionStore, risks RiskCreator, scorer *Scorer, log *logger.Logger) *Intake {
	return &Intake{
		store:  store,
		risks:  risks,
		scorer: scorer,
		logger: log.WithComponent("intake"),
		locks:  make(map[string]*keyedLock),
	}
}

// HandleMessage advances the conversation for sessionKey by one round-trip.
// The returned error is reserved for session-store failures; validation
// problems, persistence failures at confirmation, and unrecognized input
// all produce a normal reply with the state preserved.
func (i *Intake) HandleMessage(ctx context.Context, sessionKey, text string) (*models.IntakeReply, error) {
	lock := i.acquireLock(sessionKey)
	defer i.releaseLock(sessionKey, lock)

	session, err := i.store.Get(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load intake session: %w", err)
	}
	if session == nil {
		session = models.NewIntakeSession(sessionKey)
	}

	input := strings.TrimSpace(text)

	// "restart" wins from any state
	if strings.EqualFold(input, "restart") {
		session.Reset()
		if err := i.save(ctx, session); err != nil {
			return nil, err
		}
		return i.promptReply(session, "Starting over.\n\n"), nil
	}

	var reply *models.IntakeReply
	switch session.Phase {
	case models.PhaseCollecting:
		reply = i.handleStep(session, input)
	case models.PhaseConfirmation:
		reply = i.handleConfirmation(ctx, session, input)
	case models.PhaseCompleted:
		reply = &models.IntakeReply{
			Message: "This intake is complete. Type \"restart\" to capture another risk.",
			Phase:   models.PhaseCompleted,
		}
	default:
		session.Reset()
		reply = i.promptReply(session, "")
	}

	if err := i.save(ctx, session); err != nil {
		return nil, err
	}
	return reply, nil
}

// handleStep validates the answer for the current step. On failure the step
// and all previously accumulated answers are left untouched.
func (i *Intake) handleStep(session *models.IntakeSession, input string) *models.IntakeReply {
	step := intakeSteps[session.CurrentStep]

	value, err := step.Validate(input)
	if err != nil {
		return i.promptReply(session, fmt.Sprintf("That didn't work: %s.\n\n", err))
	}

	session.Answers[step.Field] = value
	session.CurrentStep++
	session.UpdatedAt = time.Now()

	if session.CurrentStep == IntakeStepCount {
		session.Phase = models.PhaseConfirmation
		return &models.IntakeReply{
			Message: i.renderSummary(session) + "\n\nReply \"yes\" to save this risk, or \"no\" to discard it.",
			Phase:   models.PhaseConfirmation,
			Step:    session.CurrentStep,
		}
	}

	return i.promptReply(session, "")
}

// handleConfirmation resolves the yes/no gate after the last step
func (i *Intake) handleConfirmation(ctx context.Context, session *models.IntakeSession, input string) *models.IntakeReply {
	switch strings.ToLower(input) {
	case "yes", "y", "confirm":
		risk, err := i.persist(ctx, session)
		if err != nil {
			// Keep the conversation at confirmation so the user can retry
			// without re-entering all fields
			i.logger.Error().Err(err).Str("session", session.Key).Msg("intake persistence failed")
			return &models.IntakeReply{
				Message: fmt.Sprintf("Saving the risk failed: %s. Reply \"yes\" to try again or \"no\" to discard.", err),
				Phase:   models.PhaseConfirmation,
				Step:    session.CurrentStep,
			}
		}
		session.Phase = models.PhaseCompleted
		session.UpdatedAt = time.Now()
		i.logger.Info().Str("session", session.Key).Str("ref", risk.Ref).Msg("intake completed")
		return &models.IntakeReply{
			Message: fmt.Sprintf("Recorded risk %s (%s, score %d). Type \"restart\" to capture another.",
				risk.Ref, risk.Level, risk.Score),
			Phase:   models.PhaseCompleted,
			RiskRef: risk.Ref,
		}

	case "no", "n", "cancel":
		session.Reset()
		return i.promptReply(session, "Discarded.\n\n")

	default:
		return &models.IntakeReply{
			Message: i.renderSummary(session) + "\n\nPlease reply \"yes\" to save or \"no\" to discard.",
			Phase:   models.PhaseConfirmation,
			Step:    session.CurrentStep,
		}
	}
}

// persist builds the risk record from the accumulated answers and calls the
// persistence collaborator once. The inherent score is computed here, from
// the likelihood and impact answers, never taken from the client.
func (i *Intake) persist(ctx context.Context, session *models.IntakeSession) (*models.Risk, error) {
	a := session.Answers

	likelihood, _ := strconv.Atoi(a["likelihood"])
	impact, _ := strconv.Atoi(a["impact"])
	framework := models.Framework(a["framework"])

	score, level := i.scorer.Assess(framework, likelihood, impact)

	risk := &models.Risk{
		Framework:         framework,
		Title:             a["title"],
		Description:       buildDescription(a),
		Category:          a["category"],
		Likelihood:        likelihood,
		Impact:            impact,
		Score:             score,
		Level:             level,
		TreatmentStrategy: models.TreatmentStrategy(a["treatment_strategy"]),
		TreatmentPlan:     a["treatment_plan"],
		Owner:             a["owner"],
		Department:        a["department"],
		Status:            models.RiskStatusIdentified,
	}

	if due, err := time.Parse("2006-01-02", a["due_date"]); err == nil {
		risk.TreatmentDueDate = &due
	}

	return i.risks.Create(ctx, risk)
}

// buildDescription folds the narrative answers into the description field
func buildDescription(a map[string]string) string {
	var b strings.Builder
	b.WriteString(a["description"])
	if v := a["existing_controls"]; v != "" {
		b.WriteString("\n\nExisting controls: " + v)
	}
	if v := a["regulatory_refs"]; v != "" {
		b.WriteString("\nRegulatory references: " + v)
	}
	if v := a["affected_assets"]; v != "" {
		b.WriteString("\nAffected assets: " + v)
	}
	if v := a["detection_source"]; v != "" {
		b.WriteString("\nIdentified via: " + v)
	}
	if v := a["notes"]; v != "" {
		b.WriteString("\nNotes: " + v)
	}
	return b.String()
}

// renderSummary renders the accumulated answers for confirmation
func (i *Intake) renderSummary(session *models.IntakeSession) string {
	var b strings.Builder
	b.WriteString("Here's what I captured:\n")
	for _, step := range intakeSteps {
		if v, ok := session.Answers[step.Field]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", step.Field, v)
		}
	}
	return b.String()
}

// promptReply emits the current step's prompt, optionally prefixed
func (i *Intake) promptReply(session *models.IntakeSession, prefix string) *models.IntakeReply {
	step := intakeSteps[session.CurrentStep]
	return &models.IntakeReply{
		Message:   fmt.Sprintf("%sStep %d of %d: %s", prefix, session.CurrentStep+1, IntakeStepCount, step.Prompt),
		Phase:     models.PhaseCollecting,
		Step:      session.CurrentStep,
		FieldName: step.Field,
	}
}

func (i *Intake) save(ctx context.Context, session *models.IntakeSession) error {
	if err := i.store.Put(ctx, session); err != nil {
		return fmt.Errorf("failed to save intake session: %w", err)
	}
	return nil
}

// keyedLock serializes updates within one session. Entries are reference
// counted so the lock table shrinks again once no request holds or waits on
// a key.
type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (i *Intake) acquireLock(key string) *keyedLock {
	i.mu.Lock()
	l, ok := i.locks[key]
	if !ok {
		l = &keyedLock{}
		i.locks[key] = l
	}
	l.refs++
	i.mu.Unlock()

	l.mu.Lock()
	return l
}

func (i *Intake) releaseLock(key string, l *keyedLock) {
	l.mu.Unlock()

	i.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(i.locks, key)
	}
	i.mu.Unlock()
}
