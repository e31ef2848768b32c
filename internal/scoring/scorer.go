// Package scoring implements the rule-based fraud risk estimator
//
// A transaction starts from a fixed base probability; every matching rule in
// the catalog adds its weight. The sum is capped below certainty and the
// matched rules are returned as contributing factors, strongest first.
// Scoring is pure: no I/O, no shared mutable state, safe for concurrent use
package scoring

import (
	"math"
	"sort"

	"github.com/banking/fraud-monitor/internal/domain"
)

// Scorer evaluates transactions against a catalog
type Scorer struct {
	catalog *Catalog
}

// NewScorer creates a scorer over catalog
func NewScorer(catalog *Catalog) *Scorer {
	return &Scorer{catalog: catalog}
}

// Score computes the fraud score and ordered contributing factors for tx.
// It never fails; missing attributes simply do not match
func (s *Scorer) Score(tx *domain.Transaction) domain.ScoreResult {
	cfg := s.catalog.Config()

	score := cfg.BaseProbability
	factors := make([]domain.RiskFactor, 0, 8)
	for _, m := range s.catalog.Evaluate(tx) {
		score += m.Weight
		factors = append(factors, domain.RiskFactor{
			Factor: m.Factor,
			Impact: m.Weight,
			Tier:   domain.TierForImpact(m.Weight),
		})
	}

	if score > cfg.MaxProbability {
		score = cfg.MaxProbability
	}

	// Ties keep catalog order
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Impact > factors[j].Impact
	})

	return domain.ScoreResult{
		FraudScore: round2(score),
		Factors:    factors,
	}
}

// Analyze scores tx and classifies the result on both scales
func (s *Scorer) Analyze(tx *domain.Transaction) *domain.Analysis {
	res := s.Score(tx)
	severity := ClassifyForAlert(res.FraudScore)
	return &domain.Analysis{
		FraudScore:     res.FraudScore,
		RiskLevel:      Classify(res.FraudScore),
		Severity:       severity,
		Recommendation: Recommend(severity),
		Factors:        res.Factors,
	}
}

// AlertTypeFor picks the alert type from the strongest factor
func (s *Scorer) AlertTypeFor(factors []domain.RiskFactor) domain.AlertType {
	if len(factors) == 0 {
		return domain.AlertTypeHighRisk
	}
	return s.catalog.AlertTypeFor(factors[0].Factor)
}

// Weights carry two decimals; rounding removes float drift from the sum
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
