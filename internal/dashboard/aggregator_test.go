package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-monitor/internal/domain"
)

func tx(status domain.TransactionStatus, amount string) *domain.Transaction {
	return &domain.Transaction{
		Status: status,
		Amount: decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
}

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil, nil)

	assert.Equal(t, 0, m.TotalTransactions)
	assert.Equal(t, 0, m.FraudulentTransactions)
	assert.Equal(t, 0.0, m.FraudRate)
	assert.True(t, m.AvgFraudAmount.IsZero())
	assert.True(t, m.SavingsFromPrevention.IsZero())
	assert.Nil(t, m.PeriodChange)
}

func TestAggregate_ThreeOfTenIsThirtyPercent(t *testing.T) {
	txs := []*domain.Transaction{
		tx(domain.StatusBlocked, "1000"),
		tx(domain.StatusFlagged, "2000"),
		tx(domain.StatusBlocked, "3000"),
	}
	for i := 0; i < 7; i++ {
		txs = append(txs, tx(domain.StatusApproved, "10"))
	}

	m := Aggregate(txs, nil)

	assert.Equal(t, 10, m.TotalTransactions)
	assert.Equal(t, 3, m.FraudulentTransactions)
	assert.Equal(t, 30.0, m.FraudRate)
	assert.True(t, m.AvgFraudAmount.Equal(decimal.NewFromInt(2000)), m.AvgFraudAmount.String())
	assert.True(t, m.SavingsFromPrevention.Equal(decimal.NewFromInt(6000)), m.SavingsFromPrevention.String())
}

func TestAggregate_OnlyBlockedAndFlaggedCount(t *testing.T) {
	txs := []*domain.Transaction{
		tx(domain.StatusPending, "100"),
		tx(domain.StatusApproved, "100"),
		tx(domain.StatusInvestigating, "100"),
		tx(domain.StatusResolved, "100"),
	}

	m := Aggregate(txs, nil)
	assert.Equal(t, 4, m.TotalTransactions)
	assert.Equal(t, 0, m.FraudulentTransactions)
	assert.Equal(t, 0.0, m.FraudRate)
	assert.True(t, m.AvgFraudAmount.IsZero())
}

func TestAggregate_AverageRoundsToCents(t *testing.T) {
	txs := []*domain.Transaction{
		tx(domain.StatusBlocked, "10"),
		tx(domain.StatusBlocked, "10"),
		tx(domain.StatusBlocked, "0.01"),
	}

	m := Aggregate(txs, nil)
	assert.Equal(t, "6.67", m.AvgFraudAmount.StringFixed(2))
	assert.Equal(t, "20.01", m.SavingsFromPrevention.StringFixed(2))
}

func TestAggregate_PeriodChangeFromBaseline(t *testing.T) {
	txs := []*domain.Transaction{
		tx(domain.StatusBlocked, "100"),
		tx(domain.StatusApproved, "100"),
		tx(domain.StatusApproved, "100"),
		tx(domain.StatusApproved, "100"),
	}

	m := Aggregate(txs, &Baseline{FraudRate: 20})
	require.NotNil(t, m.PeriodChange)
	assert.Equal(t, 5.0, *m.PeriodChange)
}

func TestAggregate_SkipsNilEntries(t *testing.T) {
	m := Aggregate([]*domain.Transaction{nil, tx(domain.StatusFlagged, "50")}, nil)
	assert.Equal(t, 1, m.TotalTransactions)
	assert.Equal(t, 100.0, m.FraudRate)
}

func TestFromTotals_LargeCounts(t *testing.T) {
	m := FromTotals(domain.TransactionTotals{
		Total:       10005,
		Fraudulent:  5,
		FraudAmount: decimal.RequireFromString("250.10"),
	}, &Baseline{FraudRate: 1})

	assert.Equal(t, 10005, m.TotalTransactions)
	assert.Equal(t, 5, m.FraudulentTransactions)
	assert.InDelta(t, 0.04997, m.FraudRate, 0.00001)
	assert.True(t, m.AvgFraudAmount.Equal(decimal.RequireFromString("50.02")))
	require.NotNil(t, m.PeriodChange)
	assert.InDelta(t, -0.95003, *m.PeriodChange, 0.00001)
}

func TestFromTotals_ZeroValueTotals(t *testing.T) {
	m := FromTotals(domain.TransactionTotals{}, nil)

	assert.Equal(t, 0.0, m.FraudRate)
	assert.True(t, m.AvgFraudAmount.IsZero())
	assert.True(t, m.SavingsFromPrevention.IsZero())
}
