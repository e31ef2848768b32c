package domain

import "github.com/shopspring/decimal"

// DashboardMetrics is derived on demand from a set of transactions
type DashboardMetrics struct {
	TotalTransactions      int             `json:"total_transactions"`
	FraudulentTransactions int             `json:"fraudulent_transactions"`
	FraudRate              float64         `json:"fraud_rate"`
	AvgFraudAmount         decimal.Decimal `json:"avg_fraud_amount"`
	SavingsFromPrevention  decimal.Decimal `json:"savings_from_prevention"`
	// PeriodChange is nil when no prior-period baseline was supplied
	PeriodChange *float64 `json:"period_change"`
}

// TransactionTotals are the counts and sums dashboard metrics derive from
type TransactionTotals struct {
	Total       int
	Fraudulent  int
	FraudAmount decimal.Decimal
}
