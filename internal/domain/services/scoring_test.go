package services

import (
	"math"
	"testing"

	"grchub/internal/config"
	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Frameworks: map[string]config.Breakpoints{
			"iso27001": {Critical: 15, High: 10, Medium: 6},
			"nist_csf": {Critical: 15, High: 10, Medium: 5},
			"fair":     {Critical: 15, High: 10, Medium: 5},
			"tech":     {Critical: 15, High: 10, Medium: 6},
		},
	}
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	return NewScorer(testScoringConfig(), logger.NewDefault())
}

func TestScoreIsProduct(t *testing.T) {
	s := newTestScorer(t)
	for l := 1; l <= 5; l++ {
		for i := 1; i <= 5; i++ {
			if got := s.Score(l, i); got != l*i {
				t.Errorf("Score(%d, %d) = %d, want %d", l, i, got, l*i)
			}
		}
	}
}

func TestLevelFor(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		name      string
		framework models.Framework
		score     int
		want      models.RiskLevel
	}{
		{"iso critical floor", models.FrameworkISO27001, 15, models.RiskLevelCritical},
		{"iso max", models.FrameworkISO27001, 25, models.RiskLevelCritical},
		{"iso high floor", models.FrameworkISO27001, 10, models.RiskLevelHigh},
		{"iso just under critical", models.FrameworkISO27001, 14, models.RiskLevelHigh},
		{"iso medium floor", models.FrameworkISO27001, 6, models.RiskLevelMedium},
		{"iso five is low", models.FrameworkISO27001, 5, models.RiskLevelLow},
		{"iso minimum", models.FrameworkISO27001, 1, models.RiskLevelLow},
		{"nist five is medium", models.FrameworkNISTCSF, 5, models.RiskLevelMedium},
		{"nist four is low", models.FrameworkNISTCSF, 4, models.RiskLevelLow},
		{"fair five is medium", models.FrameworkFAIR, 5, models.RiskLevelMedium},
		{"tech five is low", models.FrameworkTech, 5, models.RiskLevelLow},
		{"tech six is medium", models.FrameworkTech, 6, models.RiskLevelMedium},
		{"unknown framework uses defaults", models.Framework("other"), 6, models.RiskLevelMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.LevelFor(tt.framework, tt.score); got != tt.want {
				t.Errorf("LevelFor(%s, %d) = %s, want %s", tt.framework, tt.score, got, tt.want)
			}
		})
	}
}

func TestLevelMonotonicity(t *testing.T) {
	s := newTestScorer(t)
	for _, fw := range []models.Framework{models.FrameworkISO27001, models.FrameworkNISTCSF, models.FrameworkFAIR, models.FrameworkTech} {
		prev := s.LevelFor(fw, 1)
		for score := 2; score <= 25; score++ {
			cur := s.LevelFor(fw, score)
			if cur.Rank() < prev.Rank() {
				t.Errorf("%s: level dropped from %s to %s at score %d", fw, prev, cur, score)
			}
			prev = cur
		}
	}
}

func TestResidualLevelExtremes(t *testing.T) {
	s := newTestScorer(t)
	if got := s.ResidualLevel(models.FrameworkISO27001, 1, 1); got != models.RiskLevelLow {
		t.Errorf("ResidualLevel(1, 1) = %s, want low", got)
	}
	if got := s.ResidualLevel(models.FrameworkISO27001, 5, 5); got != models.RiskLevelCritical {
		t.Errorf("ResidualLevel(5, 5) = %s, want critical", got)
	}
}

func TestNormalizeVendorScore(t *testing.T) {
	s := newTestScorer(t)

	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		raw  *float64
		want int
	}{
		{"nil defaults to midpoint", nil, 3},
		{"zero clamps to one", f(0), 1},
		{"one rounds to one", f(1), 1},
		{"three rounds to two", f(3), 2},
		{"five rounds up", f(5), 3},
		{"six is three", f(6), 3},
		{"nine rounds to five", f(9), 5},
		{"above scale clamps", f(12), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.NormalizeVendorScore(tt.raw); got != tt.want {
				t.Errorf("NormalizeVendorScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAssessmentResult(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		response string
		want     models.AssessmentResult
	}{
		{"Fully implemented", models.ResultEffective},
		{"Control is Fully operational", models.ResultEffective},
		{"Partially implemented", models.ResultPartialEffective},
		{"Not implemented", models.ResultNotEffective},
		{"", models.ResultNotEffective},
		{"fully implemented", models.ResultNotEffective}, // match is case-sensitive
	}

	for _, tt := range tests {
		if got := s.AssessmentResult(tt.response); got != tt.want {
			t.Errorf("AssessmentResult(%q) = %s, want %s", tt.response, got, tt.want)
		}
	}
}

func TestAnnualLossExpectancy(t *testing.T) {
	s := newTestScorer(t)

	// PERT means: frequency 2, primary 900, secondary 100
	freq := models.Estimate{Min: 1, MostLikely: 2, Max: 3}
	primary := models.Estimate{Min: 600, MostLikely: 900, Max: 1200}
	secondary := models.Estimate{Min: 0, MostLikely: 75, Max: 300}

	got := s.AnnualLossExpectancy(freq, primary, secondary)
	want := 2.0 * (900.0 + 100.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("AnnualLossExpectancy = %f, want %f", got, want)
	}
}

func TestAnnualLossExpectancyZeroFrequency(t *testing.T) {
	s := newTestScorer(t)
	got := s.AnnualLossExpectancy(models.Estimate{}, models.Estimate{Min: 1, MostLikely: 2, Max: 3}, models.Estimate{})
	if got != 0 {
		t.Errorf("AnnualLossExpectancy with zero frequency = %f, want 0", got)
	}
}
