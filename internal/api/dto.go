package api

import (
	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/scoring"
	"github.com/banking/fraud-monitor/internal/service"
)

// AnalyzeRequest is the body of POST /transactions/analyze
type AnalyzeRequest struct {
	domain.TransactionInput
	Save bool `json:"save"`
}

// ImportRequest is the body of POST /transactions/import
type ImportRequest struct {
	Transactions []domain.TransactionInput `json:"transactions" validate:"required,min=1,dive"`
}

// TransitionRequest is the body of POST /transactions/:id/status
type TransitionRequest struct {
	Action string `json:"action" validate:"required"`
}

// AlertStatusRequest is the body of PATCH /alerts/:id
type AlertStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TransactionResponse adds the 3-tier display label to a stored transaction
type TransactionResponse struct {
	*domain.Transaction
	RiskLabel domain.RiskLevel `json:"risk_label"`
}

func newTransactionResponse(tx *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{Transaction: tx, RiskLabel: scoring.Classify(tx.FraudScore)}
}

func newTransactionList(txs []*domain.Transaction) []*TransactionResponse {
	out := make([]*TransactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = newTransactionResponse(tx)
	}
	return out
}

// AnalyzeResponse reports the scoring outcome. Transaction and Alert are
// only present when the transaction was stored
type AnalyzeResponse struct {
	FraudScore     float64                  `json:"fraud_score"`
	RiskLevel      domain.RiskLevel         `json:"risk_level"`
	Severity       domain.Severity          `json:"severity"`
	Recommendation domain.Recommendation    `json:"recommendation"`
	RiskFactors    []domain.RiskFactor      `json:"risk_factors"`
	Status         domain.TransactionStatus `json:"status"`
	ShouldAlert    bool                     `json:"should_alert"`
	Saved          bool                     `json:"saved"`
	Transaction    *TransactionResponse     `json:"transaction,omitempty"`
	Alert          *domain.Alert            `json:"alert,omitempty"`
}

func newAnalyzeResponse(res *service.AnalyzeResult) *AnalyzeResponse {
	out := &AnalyzeResponse{
		FraudScore:     res.Analysis.FraudScore,
		RiskLevel:      res.Analysis.RiskLevel,
		Severity:       res.Analysis.Severity,
		Recommendation: res.Analysis.Recommendation,
		RiskFactors:    res.Analysis.Factors,
		Status:         res.Transaction.Status,
		ShouldAlert:    res.ShouldAlert,
		Saved:          res.Saved,
		Alert:          res.Alert,
	}
	if res.Saved {
		out.Transaction = newTransactionResponse(res.Transaction)
	}
	return out
}

// ListResponse wraps collection results
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func newList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Count: len(items)}
}
