// Package dashboard derives summary statistics from scored transactions
package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/banking/fraud-monitor/internal/domain"
)

// Baseline is the prior-period comparison value supplied by the caller
type Baseline struct {
	FraudRate float64 `json:"fraud_rate"`
}

// Aggregate computes dashboard metrics over txs. Transactions with a
// blocked or flagged status count as fraudulent. PeriodChange is the fraud
// rate delta against baseline, or nil when no baseline is given
func Aggregate(txs []*domain.Transaction, baseline *Baseline) domain.DashboardMetrics {
	return FromTotals(Tally(txs), baseline)
}

// Tally counts txs the way a repository totals query does
func Tally(txs []*domain.Transaction) domain.TransactionTotals {
	t := domain.TransactionTotals{FraudAmount: decimal.Zero}
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		t.Total++
		if !tx.Status.IsFraudulent() {
			continue
		}
		t.Fraudulent++
		t.FraudAmount = t.FraudAmount.Add(tx.AmountOrZero())
	}
	return t
}

// FromTotals derives rates and averages from precomputed totals
func FromTotals(t domain.TransactionTotals, baseline *Baseline) domain.DashboardMetrics {
	m := domain.DashboardMetrics{
		TotalTransactions:      t.Total,
		FraudulentTransactions: t.Fraudulent,
		AvgFraudAmount:         decimal.Zero,
		SavingsFromPrevention:  t.FraudAmount,
	}

	if m.TotalTransactions > 0 {
		// Multiply first so whole-percent rates stay exact
		m.FraudRate = float64(m.FraudulentTransactions*100) / float64(m.TotalTransactions)
	}
	if m.FraudulentTransactions > 0 {
		m.AvgFraudAmount = m.SavingsFromPrevention.
			Div(decimal.NewFromInt(int64(m.FraudulentTransactions))).
			Round(2)
	}
	if baseline != nil {
		change := m.FraudRate - baseline.FraudRate
		m.PeriodChange = &change
	}
	return m
}
