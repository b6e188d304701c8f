package services

import (
	"math"
	"strings"

	"grchub/internal/config"
	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

// Default breakpoints used when a framework is missing from config. These
// match the ISO 27001 convention (Medium floor at 6); NIST CSF and FAIR use
// a Medium floor of 5 via their config defaults.
var defaultBreakpoints = config.Breakpoints{Critical: 15, High: 10, Medium: 6}

// Scorer classifies assessment inputs into scores and risk levels using
// framework-specific breakpoints. All methods are pure: no I/O, no errors,
// safe defaults for missing input. Out-of-range numeric input is not
// rejected here; it flows through the arithmetic and callers validate ranges
// at the boundary.
type Scorer struct {
	config config.ScoringConfig
	logger *logger.Logger
}

// NewScorer creates a new Scorer
func NewScorer(cfg config.ScoringConfig, log *logger.Logger) *Scorer {
	return &Scorer{
		config: cfg,
		logger: log.WithComponent("scorer"),
	}
}

// Score computes the classic likelihood x impact product, nominal domain 1-25.
func (s *Scorer) Score(likelihood, impact int) int {
	return likelihood * impact
}

// LevelFor buckets a score into a risk level using the framework's breakpoints.
func (s *Scorer) LevelFor(framework models.Framework, score int) models.RiskLevel {
	bp := s.breakpoints(framework)
	switch {
	case score >= bp.Critical:
		return models.RiskLevelCritical
	case score >= bp.High:
		return models.RiskLevelHigh
	case score >= bp.Medium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// Assess computes score and level in one step.
func (s *Scorer) Assess(framework models.Framework, likelihood, impact int) (int, models.RiskLevel) {
	score := s.Score(likelihood, impact)
	return score, s.LevelFor(framework, score)
}

// ResidualLevel classifies the post-treatment likelihood/impact pair. The
// residual category is independent of the inherent one; only the breakpoints
// are shared.
func (s *Scorer) ResidualLevel(framework models.Framework, likelihood, impact int) models.RiskLevel {
	return s.LevelFor(framework, s.Score(likelihood, impact))
}

// NormalizeVendorScore maps a raw questionnaire score (0-9 scale) onto the
// shared 1-5 criticality scale. A nil raw score defaults to the midpoint 3
// rather than an error.
func (s *Scorer) NormalizeVendorScore(raw *float64) int {
	if raw == nil {
		return 3
	}
	n := int(math.Round(*raw / 2))
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// AssessmentResult classifies a control assessment response by substring
// match. Empty input defaults to Not Effective.
func (s *Scorer) AssessmentResult(response string) models.AssessmentResult {
	switch {
	case strings.Contains(response, "Fully"):
		return models.ResultEffective
	case strings.Contains(response, "Partially"):
		return models.ResultPartialEffective
	default:
		return models.ResultNotEffective
	}
}

// AnnualLossExpectancy derives the FAIR annual loss expectancy from the
// three-point estimates: expected loss-event frequency times expected
// combined loss magnitude, each taken as the PERT expected value
// (min + 4*mostLikely + max) / 6.
func (s *Scorer) AnnualLossExpectancy(freq, primary, secondary models.Estimate) float64 {
	if freq.IsZero() {
		return 0
	}
	return pertMean(freq) * (pertMean(primary) + pertMean(secondary))
}

func pertMean(e models.Estimate) float64 {
	return (e.Min + 4*e.MostLikely + e.Max) / 6
}

func (s *Scorer) breakpoints(framework models.Framework) config.Breakpoints {
	if bp, ok := s.config.Frameworks[string(framework)]; ok {
		return bp
	}
	s.logger.Debug().Str("framework", string(framework)).Msg("no breakpoints configured, using defaults")
	return defaultBreakpoints
}
