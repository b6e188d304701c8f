package handlers

import (
	"strings"
	"testing"
)

func validRiskRequest() riskRequest {
	return riskRequest{
		Framework:  "iso27001",
		Title:      "Ransomware outage",
		Likelihood: 4,
		Impact:     5,
	}
}

func TestRiskRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*riskRequest)
		wantMsg string
	}{
		{"valid", func(r *riskRequest) {}, ""},
		{"blank title", func(r *riskRequest) { r.Title = "   " }, "title is required"},
		{"unknown framework", func(r *riskRequest) { r.Framework = "cobit" }, "framework must be"},
		{"likelihood too low", func(r *riskRequest) { r.Likelihood = 0 }, "likelihood must be"},
		{"likelihood too high", func(r *riskRequest) { r.Likelihood = 6 }, "likelihood must be"},
		{"impact out of range", func(r *riskRequest) { r.Impact = 9 }, "impact must be"},
		{"residual likelihood alone", func(r *riskRequest) { r.ResidualLikelihood = 2 }, "provided together"},
		{"residual impact alone", func(r *riskRequest) { r.ResidualImpact = 3 }, "provided together"},
		{"residual pair valid", func(r *riskRequest) { r.ResidualLikelihood = 2; r.ResidualImpact = 3 }, ""},
		{"residual out of range", func(r *riskRequest) { r.ResidualLikelihood = 7; r.ResidualImpact = 3 }, "residual_likelihood must be"},
		{"bad due date", func(r *riskRequest) { r.TreatmentDueDate = "12/01/2026" }, "must be YYYY-MM-DD"},
		{"good due date", func(r *riskRequest) { r.TreatmentDueDate = "2026-12-01" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRiskRequest()
			tt.mutate(&req)
			got := req.validate()
			if tt.wantMsg == "" {
				if got != "" {
					t.Errorf("validate() = %q, want no error", got)
				}
				return
			}
			if !strings.Contains(got, tt.wantMsg) {
				t.Errorf("validate() = %q, want message containing %q", got, tt.wantMsg)
			}
		})
	}
}
