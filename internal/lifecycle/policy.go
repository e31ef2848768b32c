// Package lifecycle governs transaction status: the automatic disposition
// applied right after scoring, and the operator actions that move a
// transaction afterwards
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/scoring"
)

// Policy holds the automatic transition parameters
type Policy struct {
	// Amounts strictly above this are blocked instead of flagged when the
	// recommendation is review
	LargeAmountBlockThreshold decimal.Decimal
}

// DefaultPolicy returns the canonical policy
func DefaultPolicy() Policy {
	return Policy{LargeAmountBlockThreshold: decimal.NewFromInt(30000)}
}

// Outcome is the result of applying the automatic policy
type Outcome struct {
	Status         domain.TransactionStatus `json:"status"`
	Recommendation domain.Recommendation    `json:"recommendation"`
	ShouldAlert    bool                     `json:"should_alert"`
}

// Apply decides the post-scoring status for tx classified at severity
func (p Policy) Apply(tx *domain.Transaction, severity domain.Severity) Outcome {
	rec := scoring.Recommend(severity)
	out := Outcome{
		Recommendation: rec,
		ShouldAlert:    scoring.ShouldAlert(severity),
	}

	switch rec {
	case domain.RecommendBlock:
		out.Status = domain.StatusBlocked
	case domain.RecommendReview:
		if tx != nil && tx.AmountOrZero().GreaterThan(p.LargeAmountBlockThreshold) {
			out.Status = domain.StatusBlocked
		} else {
			out.Status = domain.StatusFlagged
		}
	default:
		out.Status = domain.StatusApproved
	}
	return out
}

// Action is an operator-invoked transition
type Action string

const (
	ActionInvestigate Action = "investigate"
	ActionResolve     Action = "resolve"
	ActionReopen      Action = "reopen"
)

// ParseAction validates an action string
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionInvestigate, ActionResolve, ActionReopen:
		return a, nil
	}
	return "", domain.NewValidationError("action", fmt.Sprintf("unknown value %q", s))
}

// transitions maps (from, action) to the resulting status. pending is only
// left through Apply; blocked and resolved are terminal
var transitions = map[domain.TransactionStatus]map[Action]domain.TransactionStatus{
	domain.StatusFlagged: {
		ActionInvestigate: domain.StatusInvestigating,
		ActionResolve:     domain.StatusResolved,
	},
	domain.StatusInvestigating: {
		ActionResolve: domain.StatusResolved,
	},
	domain.StatusApproved: {
		ActionReopen: domain.StatusFlagged,
	},
}

// Next returns the status reached by applying action to from
func Next(from domain.TransactionStatus, action Action) (domain.TransactionStatus, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", &domain.TransitionError{Entity: "transaction", From: string(from), To: string(action)}
}
