package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.IntakeSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.IntakeSession)}
}

func (s *fakeSessionStore) Get(ctx context.Context, key string) (*models.IntakeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[key], nil
}

func (s *fakeSessionStore) Put(ctx context.Context, session *models.IntakeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key] = session
	return nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

type fakeRiskCreator struct {
	created  []*models.Risk
	failures int
}

func (c *fakeRiskCreator) Create(ctx context.Context, risk *models.Risk) (*models.Risk, error) {
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("database unavailable")
	}
	risk.Ref = "ISO-0001"
	c.created = append(c.created, risk)
	return risk, nil
}

var intakeAnswers = []string{
	"Ransomware outage risk",
	"Ransomware could halt core operations for days",
	"technology",
	"iso27001",
	"Dana Reyes",
	"IT",
	"4",
	"5",
	"mitigate",
	"EDR and offline backups",
	"Deploy immutable backups and tabletop exercises",
	"2026-12-01",
	"ISO 27001 A.8.13",
	"ERP and file servers",
	"Internal audit",
	"none",
}

func newTestIntake(store SessionStore, creator RiskCreator) *Intake {
	scorer := NewScorer(testScoringConfig(), logger.NewDefault())
	return NewIntake(store, creator, scorer, logger.NewDefault())
}

func TestIntakeHappyPath(t *testing.T) {
	store := newFakeSessionStore()
	creator := &fakeRiskCreator{}
	intake := newTestIntake(store, creator)
	ctx := context.Background()

	for i, answer := range intakeAnswers {
		reply, err := intake.HandleMessage(ctx, "sess-1", answer)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if i < len(intakeAnswers)-1 {
			if reply.Phase != models.PhaseCollecting {
				t.Fatalf("step %d: phase = %s, want collecting", i, reply.Phase)
			}
			if reply.Step != i+1 {
				t.Fatalf("step %d: next step = %d, want %d", i, reply.Step, i+1)
			}
		} else {
			if reply.Phase != models.PhaseConfirmation {
				t.Fatalf("after last step: phase = %s, want confirmation", reply.Phase)
			}
			if !strings.Contains(reply.Message, "Ransomware outage risk") {
				t.Errorf("summary does not echo the title: %q", reply.Message)
			}
		}
	}

	reply, err := intake.HandleMessage(ctx, "sess-1", "yes")
	if err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if reply.Phase != models.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", reply.Phase)
	}
	if reply.RiskRef != "ISO-0001" {
		t.Errorf("RiskRef = %q, want ISO-0001", reply.RiskRef)
	}

	if len(creator.created) != 1 {
		t.Fatalf("created %d risks, want 1", len(creator.created))
	}
	risk := creator.created[0]
	if risk.Likelihood != 4 || risk.Impact != 5 {
		t.Errorf("likelihood/impact = %d/%d, want 4/5", risk.Likelihood, risk.Impact)
	}
	if risk.Score != 20 {
		t.Errorf("Score = %d, want 20", risk.Score)
	}
	if risk.Level != models.RiskLevelCritical {
		t.Errorf("Level = %s, want critical", risk.Level)
	}
	if risk.Status != models.RiskStatusIdentified {
		t.Errorf("Status = %s, want identified", risk.Status)
	}
	if risk.TreatmentDueDate == nil || risk.TreatmentDueDate.Format("2006-01-02") != "2026-12-01" {
		t.Errorf("TreatmentDueDate = %v, want 2026-12-01", risk.TreatmentDueDate)
	}
}

func TestIntakeValidationFailureKeepsState(t *testing.T) {
	store := newFakeSessionStore()
	intake := newTestIntake(store, &fakeRiskCreator{})
	ctx := context.Background()

	if _, err := intake.HandleMessage(ctx, "sess-2", intakeAnswers[0]); err != nil {
		t.Fatal(err)
	}

	// Step 1 wants a description of at least 10 characters
	reply, err := intake.HandleMessage(ctx, "sess-2", "short")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Phase != models.PhaseCollecting || reply.Step != 1 {
		t.Fatalf("after invalid input: phase=%s step=%d, want collecting/1", reply.Phase, reply.Step)
	}
	if !strings.Contains(reply.Message, "That didn't work") {
		t.Errorf("reply does not surface the validation error: %q", reply.Message)
	}

	session := store.sessions["sess-2"]
	if session.CurrentStep != 1 {
		t.Errorf("CurrentStep = %d, want 1", session.CurrentStep)
	}
	if len(session.Answers) != 1 {
		t.Errorf("answers = %d entries, want 1", len(session.Answers))
	}
}

func TestIntakeRestartFromAnyState(t *testing.T) {
	store := newFakeSessionStore()
	intake := newTestIntake(store, &fakeRiskCreator{})
	ctx := context.Background()

	// Advance a few steps, then restart
	for _, answer := range intakeAnswers[:5] {
		if _, err := intake.HandleMessage(ctx, "sess-3", answer); err != nil {
			t.Fatal(err)
		}
	}

	reply, err := intake.HandleMessage(ctx, "sess-3", "RESTART")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Phase != models.PhaseCollecting || reply.Step != 0 {
		t.Fatalf("after restart: phase=%s step=%d, want collecting/0", reply.Phase, reply.Step)
	}
	if len(store.sessions["sess-3"].Answers) != 0 {
		t.Errorf("answers survived restart")
	}

	// Restart also works from confirmation
	for _, answer := range intakeAnswers {
		if _, err := intake.HandleMessage(ctx, "sess-3", answer); err != nil {
			t.Fatal(err)
		}
	}
	reply, err = intake.HandleMessage(ctx, "sess-3", "restart")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Phase != models.PhaseCollecting || reply.Step != 0 {
		t.Fatalf("restart from confirmation: phase=%s step=%d, want collecting/0", reply.Phase, reply.Step)
	}
}

func TestIntakeDeclineDiscards(t *testing.T) {
	store := newFakeSessionStore()
	creator := &fakeRiskCreator{}
	intake := newTestIntake(store, creator)
	ctx := context.Background()

	for _, answer := range intakeAnswers {
		if _, err := intake.HandleMessage(ctx, "sess-4", answer); err != nil {
			t.Fatal(err)
		}
	}

	reply, err := intake.HandleMessage(ctx, "sess-4", "no")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Phase != models.PhaseCollecting || reply.Step != 0 {
		t.Fatalf("after decline: phase=%s step=%d, want collecting/0", reply.Phase, reply.Step)
	}
	if len(creator.created) != 0 {
		t.Errorf("declined intake still persisted a risk")
	}
}

func TestIntakePersistFailureAllowsRetry(t *testing.T) {
	store := newFakeSessionStore()
	creator := &fakeRiskCreator{failures: 1}
	intake := newTestIntake(store, creator)
	ctx := context.Background()

	for _, answer := range intakeAnswers {
		if _, err := intake.HandleMessage(ctx, "sess-5", answer); err != nil {
			t.Fatal(err)
		}
	}

	// First confirmation hits the failing creator; the conversation stays at
	// confirmation instead of losing the answers
	reply, err := intake.HandleMessage(ctx, "sess-5", "yes")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Phase != models.PhaseConfirmation {
		t.Fatalf("after failed save: phase = %s, want confirmation", reply.Phase)
	}

	reply, err = intake.HandleMessage(ctx, "sess-5", "yes")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Phase != models.PhaseCompleted {
		t.Fatalf("retry: phase = %s, want completed", reply.Phase)
	}
	if len(creator.created) != 1 {
		t.Errorf("created %d risks, want 1", len(creator.created))
	}
}

func TestIntakeSessionsAreIndependent(t *testing.T) {
	store := newFakeSessionStore()
	intake := newTestIntake(store, &fakeRiskCreator{})
	ctx := context.Background()

	if _, err := intake.HandleMessage(ctx, "sess-a", intakeAnswers[0]); err != nil {
		t.Fatal(err)
	}
	reply, err := intake.HandleMessage(ctx, "sess-b", "hello there everyone")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Step != 1 {
		t.Fatalf("sess-b step = %d, want 1", reply.Step)
	}
	if store.sessions["sess-a"].Answers["title"] == store.sessions["sess-b"].Answers["title"] {
		t.Errorf("sessions share answers")
	}
}

func TestIntakeCompletedRequiresRestart(t *testing.T) {
	store := newFakeSessionStore()
	intake := newTestIntake(store, &fakeRiskCreator{})
	ctx := context.Background()

	for _, answer := range intakeAnswers {
		if _, err := intake.HandleMessage(ctx, "sess-6", answer); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := intake.HandleMessage(ctx, "sess-6", "yes"); err != nil {
		t.Fatal(err)
	}

	reply, err := intake.HandleMessage(ctx, "sess-6", "another risk please")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Phase != models.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", reply.Phase)
	}
	if !strings.Contains(reply.Message, "restart") {
		t.Errorf("completed reply does not mention restart: %q", reply.Message)
	}
}

func TestIntakeStepValidators(t *testing.T) {
	tests := []struct {
		step    int
		input   string
		wantErr bool
		want    string
	}{
		{0, "Ok", true, ""},
		{0, "  VPN outage risk  ", false, "VPN outage risk"},
		{2, "Technology", false, "technology"},
		{2, "unknown", true, ""},
		{3, "ISO27001", false, "iso27001"},
		{6, "0", true, ""},
		{6, "6", true, ""},
		{6, " 3 ", false, "3"},
		{6, "high", true, ""},
		{11, "2026-13-01", true, ""},
		{11, "2026-12-01", false, "2026-12-01"},
	}

	for _, tt := range tests {
		got, err := intakeSteps[tt.step].Validate(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("step %d input %q: err = %v, wantErr %v", tt.step, tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("step %d input %q: got %q, want %q", tt.step, tt.input, got, tt.want)
		}
	}
}

func TestIntakeLockTableShrinks(t *testing.T) {
	intake := newTestIntake(newFakeSessionStore(), &fakeRiskCreator{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, key := range []string{"sess-a", "sess-b", "sess-c"} {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(k string) {
				defer wg.Done()
				if _, err := intake.HandleMessage(ctx, k, "Ransomware outage risk"); err != nil {
					t.Errorf("HandleMessage(%s): %v", k, err)
				}
			}(key)
		}
	}
	wg.Wait()

	intake.mu.Lock()
	defer intake.mu.Unlock()
	if len(intake.locks) != 0 {
		t.Errorf("lock table holds %d entries after all requests finished, want 0", len(intake.locks))
	}
}
