package lifecycle

import (
	"context"
	"time"

	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/pkg/logger"
	"github.com/banking/fraud-monitor/internal/pkg/metrics"
	"github.com/banking/fraud-monitor/internal/repository"
)

// Manager applies operator actions to stored transactions
type Manager struct {
	repo    repository.TransactionRepository
	log     *logger.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewManager creates a lifecycle manager. metrics may be nil
func NewManager(repo repository.TransactionRepository, log *logger.Logger, m *metrics.Collector) *Manager {
	return &Manager{
		repo:    repo,
		log:     log.Named("lifecycle"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Transition applies action to the actor's transaction and persists the
// resulting status. Concurrent transitions are last-write-wins
func (m *Manager) Transition(ctx context.Context, actor, transactionID string, action Action) (*domain.Transaction, error) {
	tx, err := m.repo.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.IsOwnedBy(actor) {
		return nil, domain.Forbiddenf("transaction %s", transactionID)
	}

	to, err := Next(tx.Status, action)
	if err != nil {
		return nil, err
	}

	at := m.now()
	if err := m.repo.UpdateStatus(ctx, transactionID, to, at); err != nil {
		return nil, err
	}

	from := tx.Status
	tx.Status = to
	tx.UpdatedAt = at

	m.log.WithContext(ctx).StatusChanged("transaction", transactionID, string(from), string(to), actor)
	m.metrics.Transition("transaction", string(to))
	return tx, nil
}
