package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banking/fraud-monitor/internal/domain"
)

func TestClassify_Thresholds(t *testing.T) {
	cases := map[float64]domain.RiskLevel{
		0.0:  domain.RiskLevelLow,
		0.29: domain.RiskLevelLow,
		0.30: domain.RiskLevelMedium,
		0.69: domain.RiskLevelMedium,
		0.70: domain.RiskLevelHigh,
		0.95: domain.RiskLevelHigh,
	}
	for score, want := range cases {
		assert.Equal(t, want, Classify(score), "score %v", score)
	}
}

func TestClassifyForAlert_Thresholds(t *testing.T) {
	cases := map[float64]domain.Severity{
		0.05: domain.SeverityLow,
		0.29: domain.SeverityLow,
		0.30: domain.SeverityMedium,
		0.59: domain.SeverityMedium,
		0.60: domain.SeverityHigh,
		0.79: domain.SeverityHigh,
		0.80: domain.SeverityCritical,
		0.95: domain.SeverityCritical,
	}
	for score, want := range cases {
		assert.Equal(t, want, ClassifyForAlert(score), "score %v", score)
	}
}

func TestClassifiers_Monotonic(t *testing.T) {
	rank := map[domain.RiskLevel]int{
		domain.RiskLevelLow:    1,
		domain.RiskLevelMedium: 2,
		domain.RiskLevelHigh:   3,
	}
	prevLevel, prevSeverity := 0, 0
	for i := 0; i <= 100; i++ {
		score := float64(i) / 100
		lvl := rank[Classify(score)]
		sev := ClassifyForAlert(score).Rank()
		assert.GreaterOrEqual(t, lvl, prevLevel, "score %v", score)
		assert.GreaterOrEqual(t, sev, prevSeverity, "score %v", score)
		prevLevel, prevSeverity = lvl, sev
	}
}

func TestRecommend(t *testing.T) {
	assert.Equal(t, domain.RecommendBlock, Recommend(domain.SeverityCritical))
	assert.Equal(t, domain.RecommendReview, Recommend(domain.SeverityHigh))
	assert.Equal(t, domain.RecommendReview, Recommend(domain.SeverityMedium))
	assert.Equal(t, domain.RecommendApprove, Recommend(domain.SeverityLow))
}

func TestShouldAlert(t *testing.T) {
	assert.True(t, ShouldAlert(domain.SeverityCritical))
	assert.True(t, ShouldAlert(domain.SeverityHigh))
	assert.False(t, ShouldAlert(domain.SeverityMedium))
	assert.False(t, ShouldAlert(domain.SeverityLow))
}
