package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IntakeStep is one field collected by the intake conversation. Validate
// returns the stored (possibly coerced) value or a user-facing error.
type IntakeStep struct {
	Field    string
	Prompt   string
	Validate func(input string) (string, error)
}

// intakeSteps is the fixed ordered list of fields gathered before
// confirmation. Step indexes are part of the conversation contract: the
// likelihood and impact answers live at steps 6 and 7 and feed the inherent
// score at persistence time.
var intakeSteps = []IntakeStep{
	{"title", "What is the risk title?", minLength(5)},
	{"description", "Describe the risk in a sentence or two.", minLength(10)},
	{"category", "Which category fits best? (operational, financial, compliance, strategic, technology)",
		oneOf("operational", "financial", "compliance", "strategic", "technology")},
	{"framework", "Which framework is this assessed under? (iso27001, nist_csf, fair, tech)",
		oneOf("iso27001", "nist_csf", "fair", "tech")},
	{"owner", "Who owns this risk?", minLength(2)},
	{"department", "Which department does it belong to?", minLength(2)},
	{"likelihood", "Rate the likelihood from 1 (rare) to 5 (almost certain).", intInRange(1, 5)},
	{"impact", "Rate the impact from 1 (negligible) to 5 (severe).", intInRange(1, 5)},
	{"treatment_strategy", "How will it be treated? (mitigate, accept, transfer, avoid)",
		oneOf("mitigate", "accept", "transfer", "avoid")},
	{"existing_controls", "What controls are already in place?", minLength(3)},
	{"treatment_plan", "Outline the treatment plan.", minLength(5)},
	{"due_date", "When is treatment due? (YYYY-MM-DD)", dateFormat},
	{"regulatory_refs", "Any regulatory or contractual references?", minLength(2)},
	{"affected_assets", "Which assets or systems are affected?", minLength(3)},
	{"detection_source", "How was this risk identified?", minLength(3)},
	{"notes", "Any additional notes?", minLength(1)},
}

// IntakeStepCount is the number of data-collection steps before confirmation
const IntakeStepCount = 16

func minLength(n int) func(string) (string, error) {
	return func(input string) (string, error) {
		v := strings.TrimSpace(input)
		if len(v) < n {
			return "", fmt.Errorf("please provide at least %d characters", n)
		}
		return v, nil
	}
}

func intInRange(lo, hi int) func(string) (string, error) {
	return func(input string) (string, error) {
		v := strings.TrimSpace(input)
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", fmt.Errorf("please enter a whole number between %d and %d", lo, hi)
		}
		if n < lo || n > hi {
			return "", fmt.Errorf("please enter a number between %d and %d", lo, hi)
		}
		return strconv.Itoa(n), nil
	}
}

func oneOf(options ...string) func(string) (string, error) {
	return func(input string) (string, error) {
		v := strings.ToLower(strings.TrimSpace(input))
		for _, opt := range options {
			if v == opt {
				return opt, nil
			}
		}
		return "", fmt.Errorf("please choose one of: %s", strings.Join(options, ", "))
	}
}

func dateFormat(input string) (string, error) {
	v := strings.TrimSpace(input)
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return "", fmt.Errorf("please use the date format YYYY-MM-DD")
	}
	return v, nil
}
