package domain

// RiskLevel is the 3-tier display label of a fraud score
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Severity is the 4-tier classification that drives alert emission and the
// recommended disposition. It is persisted in the transactions.risk_level
// and fraud_alerts.severity columns
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; unknown values rank below low
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Recommendation is the suggested disposition derived from a Severity
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendBlock   Recommendation = "block"
)

// ImpactTier is the qualitative display bucket of a factor's weight
type ImpactTier string

const (
	ImpactHigh   ImpactTier = "High"
	ImpactMedium ImpactTier = "Medium"
	ImpactLow    ImpactTier = "Low"
)

// TierForImpact buckets a factor weight for display
func TierForImpact(impact float64) ImpactTier {
	switch {
	case impact >= 0.20:
		return ImpactHigh
	case impact >= 0.10:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// RiskFactor is a rule that matched during scoring, paired with its weight
type RiskFactor struct {
	Factor string     `json:"factor"`
	Impact float64    `json:"impact"`
	Tier   ImpactTier `json:"tier"`
}

// ScoreResult is the output of scoring a single transaction
type ScoreResult struct {
	FraudScore float64      `json:"fraud_score"`
	Factors    []RiskFactor `json:"factors"`
}

// Analysis bundles a score with both classification scales
type Analysis struct {
	FraudScore     float64        `json:"fraud_score"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	Severity       Severity       `json:"severity"`
	Recommendation Recommendation `json:"recommendation"`
	Factors        []RiskFactor   `json:"factors"`
}
