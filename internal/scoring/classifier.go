package scoring

import "github.com/banking/fraud-monitor/internal/domain"

// Display scale thresholds
const (
	MediumRiskThreshold = 0.30
	HighRiskThreshold   = 0.70
)

// Alert scale thresholds
const (
	MediumSeverityThreshold   = 0.30
	HighSeverityThreshold     = 0.60
	CriticalSeverityThreshold = 0.80
)

// Classify maps a score to the 3-tier display label
func Classify(score float64) domain.RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return domain.RiskLevelHigh
	case score >= MediumRiskThreshold:
		return domain.RiskLevelMedium
	default:
		return domain.RiskLevelLow
	}
}

// ClassifyForAlert maps a score to the 4-tier alert severity
func ClassifyForAlert(score float64) domain.Severity {
	switch {
	case score >= CriticalSeverityThreshold:
		return domain.SeverityCritical
	case score >= HighSeverityThreshold:
		return domain.SeverityHigh
	case score >= MediumSeverityThreshold:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// Recommend returns the disposition for a severity
func Recommend(s domain.Severity) domain.Recommendation {
	switch s {
	case domain.SeverityCritical:
		return domain.RecommendBlock
	case domain.SeverityHigh, domain.SeverityMedium:
		return domain.RecommendReview
	default:
		return domain.RecommendApprove
	}
}

// ShouldAlert reports whether a severity triggers alert emission
func ShouldAlert(s domain.Severity) bool {
	return s.Rank() >= domain.SeverityHigh.Rank()
}
