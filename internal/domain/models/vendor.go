package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorTier classifies how critical a third party is to operations
type VendorTier string

const (
	VendorTierStrategic   VendorTier = "strategic"
	VendorTierOperational VendorTier = "operational"
	VendorTierTactical    VendorTier = "tactical"
)

// VendorStatus is the lifecycle state of a vendor relationship
type VendorStatus string

const (
	VendorStatusActive     VendorStatus = "active"
	VendorStatusOnboarding VendorStatus = "onboarding"
	VendorStatusOffboarded VendorStatus = "offboarded"
)

// Vendor represents a third party subject to assessment
type Vendor struct {
	ID   uuid.UUID  `json:"id" db:"id"`
	Name string     `json:"name" db:"name"`
	Tier VendorTier `json:"tier" db:"tier"`

	// RawScore is the assessment questionnaire total on its native 0-9 scale.
	// Nil means the vendor has not been assessed yet.
	RawScore *float64 `json:"raw_score,omitempty" db:"raw_score"`

	// Criticality is derived from RawScore, normalized to the shared 1-5 scale.
	Criticality int `json:"criticality" db:"criticality"`

	ContactName    string       `json:"contact_name,omitempty" db:"contact_name"`
	ContactEmail   string       `json:"contact_email,omitempty" db:"contact_email"`
	Status         VendorStatus `json:"status" db:"status"`
	LastReviewedAt *time.Time   `json:"last_reviewed_at,omitempty" db:"last_reviewed_at"`
	NextReviewAt   *time.Time   `json:"next_review_at,omitempty" db:"next_review_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Contract represents an agreement with a vendor
type Contract struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	VendorID  uuid.UUID  `json:"vendor_id" db:"vendor_id"`
	Title     string     `json:"title" db:"title"`
	Value     float64    `json:"value,omitempty" db:"value"`
	StartDate *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`
	Status    string     `json:"status" db:"status"`

	// RenewalStatus is derived from EndDate at read time, never stored
	RenewalStatus string `json:"renewal_status,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
