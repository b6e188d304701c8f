package models

import (
	"time"

	"github.com/google/uuid"
)

// VulnStatus is the remediation state of a tracked vulnerability
type VulnStatus string

const (
	VulnStatusOpen       VulnStatus = "open"
	VulnStatusInProgress VulnStatus = "in_progress"
	VulnStatusResolved   VulnStatus = "resolved"
	VulnStatusAccepted   VulnStatus = "accepted"
)

// Vulnerability tracks a CVE affecting the organization, enriched with
// exploit-prediction data from the EPSS feed.
type Vulnerability struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	CVEID    string     `json:"cve_id" db:"cve_id"`
	Title    string     `json:"title,omitempty" db:"title"`
	Severity string     `json:"severity,omitempty" db:"severity"`
	Status   VulnStatus `json:"status" db:"status"`

	// EPSS enrichment. EPSSUpdatedAt nil means the score was never fetched.
	EPSSScore      float64    `json:"epss_score,omitempty" db:"epss_score"`
	EPSSPercentile float64    `json:"epss_percentile,omitempty" db:"epss_percentile"`
	EPSSModel      string     `json:"epss_model,omitempty" db:"epss_model"`
	EPSSUpdatedAt  *time.Time `json:"epss_updated_at,omitempty" db:"epss_updated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EPSSRecord is one entry returned by the EPSS feed
type EPSSRecord struct {
	CVEID      string  `json:"cve"`
	Score      float64 `json:"epss"`
	Percentile float64 `json:"percentile"`
	Model      string  `json:"model"`
}

// RefreshReport summarizes one EPSS batch refresh run
type RefreshReport struct {
	Requested int           `json:"requested"`
	Batches   int           `json:"batches"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}
