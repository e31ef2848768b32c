package lifecycle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-monitor/internal/domain"
)

func txWithAmount(v int64) *domain.Transaction {
	return &domain.Transaction{Amount: decimal.NewNullDecimal(decimal.NewFromInt(v))}
}

func TestApply_CriticalBlocksAndAlerts(t *testing.T) {
	out := DefaultPolicy().Apply(txWithAmount(75000), domain.SeverityCritical)
	assert.Equal(t, domain.StatusBlocked, out.Status)
	assert.Equal(t, domain.RecommendBlock, out.Recommendation)
	assert.True(t, out.ShouldAlert)
}

func TestApply_LowApproves(t *testing.T) {
	out := DefaultPolicy().Apply(txWithAmount(50), domain.SeverityLow)
	assert.Equal(t, domain.StatusApproved, out.Status)
	assert.Equal(t, domain.RecommendApprove, out.Recommendation)
	assert.False(t, out.ShouldAlert)
}

func TestApply_ReviewLargeAmountBlocks(t *testing.T) {
	out := DefaultPolicy().Apply(txWithAmount(35000), domain.SeverityMedium)
	assert.Equal(t, domain.StatusBlocked, out.Status)
	assert.Equal(t, domain.RecommendReview, out.Recommendation)
	assert.False(t, out.ShouldAlert)
}

func TestApply_ReviewFlagsAtOrBelowThreshold(t *testing.T) {
	for _, amt := range []int64{0, 1000, 30000} {
		out := DefaultPolicy().Apply(txWithAmount(amt), domain.SeverityHigh)
		assert.Equal(t, domain.StatusFlagged, out.Status, "amount %d", amt)
		assert.True(t, out.ShouldAlert)
	}
}

func TestApply_MissingAmountIsNotLarge(t *testing.T) {
	out := DefaultPolicy().Apply(&domain.Transaction{}, domain.SeverityMedium)
	assert.Equal(t, domain.StatusFlagged, out.Status)

	out = DefaultPolicy().Apply(nil, domain.SeverityMedium)
	assert.Equal(t, domain.StatusFlagged, out.Status)
}

func TestApply_CustomThreshold(t *testing.T) {
	p := Policy{LargeAmountBlockThreshold: decimal.NewFromInt(500)}
	assert.Equal(t, domain.StatusBlocked, p.Apply(txWithAmount(501), domain.SeverityMedium).Status)
	assert.Equal(t, domain.StatusFlagged, p.Apply(txWithAmount(500), domain.SeverityMedium).Status)
}

func TestNext_AllowedTransitions(t *testing.T) {
	cases := []struct {
		from   domain.TransactionStatus
		action Action
		want   domain.TransactionStatus
	}{
		{domain.StatusFlagged, ActionInvestigate, domain.StatusInvestigating},
		{domain.StatusFlagged, ActionResolve, domain.StatusResolved},
		{domain.StatusInvestigating, ActionResolve, domain.StatusResolved},
		{domain.StatusApproved, ActionReopen, domain.StatusFlagged},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.action)
		require.NoError(t, err, "%s + %s", tc.from, tc.action)
		assert.Equal(t, tc.want, got)
	}
}

func TestNext_RejectedTransitions(t *testing.T) {
	cases := []struct {
		from   domain.TransactionStatus
		action Action
	}{
		{domain.StatusPending, ActionInvestigate},
		{domain.StatusPending, ActionResolve},
		{domain.StatusBlocked, ActionResolve},
		{domain.StatusBlocked, ActionReopen},
		{domain.StatusResolved, ActionReopen},
		{domain.StatusResolved, ActionInvestigate},
		{domain.StatusInvestigating, ActionInvestigate},
		{domain.StatusApproved, ActionResolve},
	}
	for _, tc := range cases {
		_, err := Next(tc.from, tc.action)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s + %s", tc.from, tc.action)
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Resolve ")
	require.NoError(t, err)
	assert.Equal(t, ActionResolve, a)

	_, err = ParseAction("approve")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
