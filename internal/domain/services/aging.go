package services

import (
	"strings"
	"time"

	"grchub/internal/config"
)

// AgingStatus classifies a deadline-bearing record against the current date
type AgingStatus string

const (
	AgingCompleted AgingStatus = "Completed"
	AgingOverdue   AgingStatus = "Overdue"
	AgingDueSoon   AgingStatus = "Due Soon"
	AgingOnTrack   AgingStatus = "On Track"
)

// RenewalStatus classifies a contract against its end date
type RenewalStatus string

const (
	RenewalExpired      RenewalStatus = "Expired"
	RenewalExpiringSoon RenewalStatus = "Expiring Soon"
	RenewalDueForReview RenewalStatus = "Due for Review"
	RenewalActive       RenewalStatus = "Active"
)

// terminalStatuses are statuses that short-circuit date comparison entirely
var terminalStatuses = map[string]bool{
	"completed": true,
	"closed":    true,
	"resolved":  true,
	"cancelled": true,
}

// AgingClassifier applies configurable due-soon windows per entity type
type AgingClassifier struct {
	config config.AgingConfig
}

// NewAgingClassifier creates a new AgingClassifier
func NewAgingClassifier(cfg config.AgingConfig) *AgingClassifier {
	return &AgingClassifier{config: cfg}
}

// Classify buckets a record by its target date and status using the given
// window. A terminal status always yields Completed regardless of date. A
// nil target date is On Track. A target exactly at now+window is Due Soon
// (window boundary is inclusive); a target exactly at now is not yet
// Overdue (overdue means strictly past).
func (c *AgingClassifier) Classify(targetDate *time.Time, status string, now time.Time, window time.Duration) AgingStatus {
	if terminalStatuses[strings.ToLower(status)] {
		return AgingCompleted
	}
	if targetDate == nil {
		return AgingOnTrack
	}
	if targetDate.Before(now) {
		return AgingOverdue
	}
	if !targetDate.After(now.Add(window)) {
		return AgingDueSoon
	}
	return AgingOnTrack
}

// ClassifyControl applies the control-test window (7 days by default)
func (c *AgingClassifier) ClassifyControl(dueDate *time.Time, status string, now time.Time) AgingStatus {
	return c.Classify(dueDate, status, now, c.config.ControlWindow)
}

// ClassifyRenewal buckets a contract by its end date using the two-stage
// renewal windows: Expired, Expiring Soon within the expiry window (30 days
// by default), Due for Review within the review window (90 days), else
// Active. A contract without an end date is Active.
func (c *AgingClassifier) ClassifyRenewal(endDate *time.Time, now time.Time) RenewalStatus {
	if endDate == nil {
		return RenewalActive
	}
	if endDate.Before(now) {
		return RenewalExpired
	}
	if !endDate.After(now.Add(c.config.ContractExpiryWindow)) {
		return RenewalExpiringSoon
	}
	if !endDate.After(now.Add(c.config.ContractReviewWindow)) {
		return RenewalDueForReview
	}
	return RenewalActive
}
