package services

import (
	"testing"
	"time"

	"grchub/internal/config"
)

func testAgingConfig() config.AgingConfig {
	return config.AgingConfig{
		ControlWindow:        7 * 24 * time.Hour,
		ContractExpiryWindow: 30 * 24 * time.Hour,
		ContractReviewWindow: 90 * 24 * time.Hour,
	}
}

func TestClassify(t *testing.T) {
	c := NewAgingClassifier(testAgingConfig())
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	date := func(d time.Time) *time.Time { return &d }

	tests := []struct {
		name   string
		target *time.Time
		status string
		want   AgingStatus
	}{
		{"completed wins over overdue date", date(now.AddDate(0, 0, -30)), "completed", AgingCompleted},
		{"closed is terminal", date(now.AddDate(0, 0, -30)), "closed", AgingCompleted},
		{"resolved is terminal", date(now.AddDate(0, 0, 1)), "resolved", AgingCompleted},
		{"cancelled is terminal", nil, "cancelled", AgingCompleted},
		{"terminal status is case-insensitive", date(now.AddDate(0, 0, -1)), "Completed", AgingCompleted},
		{"nil date is on track", nil, "in_progress", AgingOnTrack},
		{"past date is overdue", date(now.Add(-time.Hour)), "in_progress", AgingOverdue},
		{"exactly now is not overdue", date(now), "in_progress", AgingDueSoon},
		{"inside window is due soon", date(now.AddDate(0, 0, 3)), "planned", AgingDueSoon},
		{"exactly at window boundary is due soon", date(now.Add(window)), "planned", AgingDueSoon},
		{"just past window is on track", date(now.Add(window + time.Second)), "planned", AgingOnTrack},
		{"far future is on track", date(now.AddDate(0, 6, 0)), "planned", AgingOnTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.target, tt.status, now, window); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyRenewal(t *testing.T) {
	c := NewAgingClassifier(testAgingConfig())
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	date := func(d time.Time) *time.Time { return &d }

	tests := []struct {
		name string
		end  *time.Time
		want RenewalStatus
	}{
		{"no end date is active", nil, RenewalActive},
		{"past end date is expired", date(now.AddDate(0, 0, -1)), RenewalExpired},
		{"within 30 days is expiring soon", date(now.AddDate(0, 0, 14)), RenewalExpiringSoon},
		{"exactly 30 days is expiring soon", date(now.Add(30 * 24 * time.Hour)), RenewalExpiringSoon},
		{"within 90 days is due for review", date(now.AddDate(0, 0, 60)), RenewalDueForReview},
		{"exactly 90 days is due for review", date(now.Add(90 * 24 * time.Hour)), RenewalDueForReview},
		{"beyond 90 days is active", date(now.AddDate(0, 6, 0)), RenewalActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ClassifyRenewal(tt.end, now); got != tt.want {
				t.Errorf("ClassifyRenewal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyControlUsesConfiguredWindow(t *testing.T) {
	cfg := testAgingConfig()
	cfg.ControlWindow = 48 * time.Hour
	c := NewAgingClassifier(cfg)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	inside := now.Add(24 * time.Hour)
	if got := c.ClassifyControl(&inside, "planned", now); got != AgingDueSoon {
		t.Errorf("ClassifyControl inside window = %s, want Due Soon", got)
	}

	outside := now.Add(72 * time.Hour)
	if got := c.ClassifyControl(&outside, "planned", now); got != AgingOnTrack {
		t.Errorf("ClassifyControl outside window = %s, want On Track", got)
	}
}
