// Package repository persists transactions and alerts. Every error it
// returns wraps one of the domain error sentinels
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banking/fraud-monitor/internal/domain"
)

// DefaultListLimit applies when a filter carries no limit
const DefaultListLimit = 50

// ErrDuplicate is returned when a uniqueness constraint rejects an insert
var ErrDuplicate = fmt.Errorf("%w: duplicate record", domain.ErrValidation)

// TransactionRepository stores scored transactions
type TransactionRepository interface {
	Insert(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, transactionID string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, at time.Time) error
	// Delete removes a transaction; stores with foreign keys cascade to its alerts
	Delete(ctx context.Context, transactionID string) error
	// Totals counts every transaction of ownerID, unbounded by list limits
	Totals(ctx context.Context, ownerID string) (domain.TransactionTotals, error)
}

// AlertRepository stores fraud alerts
type AlertRepository interface {
	Insert(ctx context.Context, alert *domain.Alert) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error)
	List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, resolvedAt *time.Time) error
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
