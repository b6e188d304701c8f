package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles all aggregate repositories
type Repositories struct {
	Risks           *RiskRepository
	Treatments      *TreatmentRepository
	Vendors         *VendorRepository
	Contracts       *ContractRepository
	Assessments     *AssessmentRepository
	Vulnerabilities *VulnerabilityRepository
}

// NewRepositories creates all repositories sharing one pool
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Risks:           NewRiskRepository(pool),
		Treatments:      NewTreatmentRepository(pool),
		Vendors:         NewVendorRepository(pool),
		Contracts:       NewContractRepository(pool),
		Assessments:     NewAssessmentRepository(pool),
		Vulnerabilities: NewVulnerabilityRepository(pool),
	}
}
