package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/pkg/logger"
)

// BreakerConfig configures the circuit breaker around a store
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// NewBreaker builds a circuit breaker that only counts storage failures.
// NotFound, validation and duplicate errors are ordinary outcomes
func NewBreaker(name string, cfg BreakerConfig, log *logger.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrStorage)
		},
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker, op string, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, domain.StorageErr(op, err)
		}
		return zero, err
	}
	return out.(T), nil
}

type none struct{}

// BreakerTransactions guards a TransactionRepository with a circuit breaker
type BreakerTransactions struct {
	next TransactionRepository
	cb   *gobreaker.CircuitBreaker
}

var _ TransactionRepository = (*BreakerTransactions)(nil)

// NewBreakerTransactions wraps next
func NewBreakerTransactions(next TransactionRepository, cb *gobreaker.CircuitBreaker) *BreakerTransactions {
	return &BreakerTransactions{next: next, cb: cb}
}

func (b *BreakerTransactions) Insert(ctx context.Context, tx *domain.Transaction) error {
	_, err := execute(b.cb, "insert transaction", func() (none, error) {
		return none{}, b.next.Insert(ctx, tx)
	})
	return err
}

func (b *BreakerTransactions) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return execute(b.cb, "get transaction", func() (*domain.Transaction, error) {
		return b.next.Get(ctx, transactionID)
	})
}

func (b *BreakerTransactions) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return execute(b.cb, "list transactions", func() ([]*domain.Transaction, error) {
		return b.next.List(ctx, filter)
	})
}

func (b *BreakerTransactions) UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, at time.Time) error {
	_, err := execute(b.cb, "update transaction status", func() (none, error) {
		return none{}, b.next.UpdateStatus(ctx, transactionID, status, at)
	})
	return err
}

func (b *BreakerTransactions) Delete(ctx context.Context, transactionID string) error {
	_, err := execute(b.cb, "delete transaction", func() (none, error) {
		return none{}, b.next.Delete(ctx, transactionID)
	})
	return err
}

func (b *BreakerTransactions) Totals(ctx context.Context, ownerID string) (domain.TransactionTotals, error) {
	return execute(b.cb, "transaction totals", func() (domain.TransactionTotals, error) {
		return b.next.Totals(ctx, ownerID)
	})
}

// BreakerAlerts guards an AlertRepository with a circuit breaker
type BreakerAlerts struct {
	next AlertRepository
	cb   *gobreaker.CircuitBreaker
}

var _ AlertRepository = (*BreakerAlerts)(nil)

// NewBreakerAlerts wraps next
func NewBreakerAlerts(next AlertRepository, cb *gobreaker.CircuitBreaker) *BreakerAlerts {
	return &BreakerAlerts{next: next, cb: cb}
}

func (b *BreakerAlerts) Insert(ctx context.Context, alert *domain.Alert) error {
	_, err := execute(b.cb, "insert alert", func() (none, error) {
		return none{}, b.next.Insert(ctx, alert)
	})
	return err
}

func (b *BreakerAlerts) Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	return execute(b.cb, "get alert", func() (*domain.Alert, error) {
		return b.next.Get(ctx, id)
	})
}

func (b *BreakerAlerts) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	return execute(b.cb, "list alerts", func() ([]*domain.Alert, error) {
		return b.next.List(ctx, filter)
	})
}

func (b *BreakerAlerts) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, resolvedAt *time.Time) error {
	_, err := execute(b.cb, "update alert status", func() (none, error) {
		return none{}, b.next.UpdateStatus(ctx, id, status, resolvedAt)
	})
	return err
}
