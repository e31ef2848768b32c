package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banking/fraud-monitor/internal/domain"
)

// MemoryTransactions is an in-memory TransactionRepository for demo/test use
type MemoryTransactions struct {
	mu   sync.RWMutex
	byID map[string]*domain.Transaction
	seq  map[string]int64
	next int64
}

// NewMemoryTransactions creates an empty in-memory transaction store
func NewMemoryTransactions() *MemoryTransactions {
	return &MemoryTransactions{
		byID: make(map[string]*domain.Transaction),
		seq:  make(map[string]int64),
	}
}

func (s *MemoryTransactions) Insert(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[tx.TransactionID]; exists {
		return ErrDuplicate
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	s.byID[tx.TransactionID] = copyTransaction(tx)
	s.next++
	s.seq[tx.TransactionID] = s.next
	return nil
}

func (s *MemoryTransactions) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[transactionID]
	if !ok {
		return nil, domain.NotFoundf("transaction %s", transactionID)
	}
	return copyTransaction(tx), nil
}

func (s *MemoryTransactions) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Transaction, 0)
	for _, tx := range s.byID {
		if filter.OwnerID != "" && tx.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		matched = append(matched, tx)
	}

	// Newest timestamp first; insertion order breaks ties
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return s.seq[a.TransactionID] > s.seq[b.TransactionID]
	})

	if limit := limitOrDefault(filter.Limit); len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]*domain.Transaction, len(matched))
	for i, tx := range matched {
		result[i] = copyTransaction(tx)
	}
	return result, nil
}

func (s *MemoryTransactions) UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[transactionID]
	if !ok {
		return domain.NotFoundf("transaction %s", transactionID)
	}
	tx.Status = status
	tx.UpdatedAt = at
	return nil
}

func (s *MemoryTransactions) Delete(ctx context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[transactionID]; !ok {
		return domain.NotFoundf("transaction %s", transactionID)
	}
	delete(s.byID, transactionID)
	delete(s.seq, transactionID)
	return nil
}

func (s *MemoryTransactions) Totals(ctx context.Context, ownerID string) (domain.TransactionTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := domain.TransactionTotals{FraudAmount: decimal.Zero}
	for _, tx := range s.byID {
		if tx.OwnerID != ownerID {
			continue
		}
		totals.Total++
		if tx.Status.IsFraudulent() {
			totals.Fraudulent++
			totals.FraudAmount = totals.FraudAmount.Add(tx.AmountOrZero())
		}
	}
	return totals, nil
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	if tx.RiskFactors != nil {
		c.RiskFactors = append([]domain.RiskFactor(nil), tx.RiskFactors...)
	}
	if tx.HourOfDay != nil {
		h := *tx.HourOfDay
		c.HourOfDay = &h
	}
	if tx.DayOfWeek != nil {
		d := *tx.DayOfWeek
		c.DayOfWeek = &d
	}
	return &c
}

// MemoryAlerts is an in-memory AlertRepository for demo/test use
type MemoryAlerts struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*domain.Alert
	order  []uuid.UUID
}

// NewMemoryAlerts creates an empty in-memory alert store
func NewMemoryAlerts() *MemoryAlerts {
	return &MemoryAlerts{alerts: make(map[uuid.UUID]*domain.Alert)}
}

// Insert enforces one alert per (transaction, severity)
func (s *MemoryAlerts) Insert(ctx context.Context, alert *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alerts {
		if existing.TransactionID == alert.TransactionID && existing.Severity == alert.Severity {
			return ErrDuplicate
		}
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	s.alerts[alert.ID] = copyAlert(alert)
	s.order = append(s.order, alert.ID)
	return nil
}

func (s *MemoryAlerts) Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, domain.NotFoundf("alert %s", id)
	}
	return copyAlert(a), nil
}

func (s *MemoryAlerts) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := limitOrDefault(filter.Limit)
	result := make([]*domain.Alert, 0)

	// Most recent first
	for i := len(s.order) - 1; i >= 0 && len(result) < limit; i-- {
		a := s.alerts[s.order[i]]
		if filter.OwnerID != "" && a.OwnerID != filter.OwnerID {
			continue
		}
		if filter.TransactionID != "" && a.TransactionID != filter.TransactionID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		result = append(result, copyAlert(a))
	}
	return result, nil
}

func (s *MemoryAlerts) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, resolvedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return domain.NotFoundf("alert %s", id)
	}
	a.Status = status
	if resolvedAt != nil {
		t := *resolvedAt
		a.ResolvedAt = &t
	}
	return nil
}

func copyAlert(a *domain.Alert) *domain.Alert {
	c := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
