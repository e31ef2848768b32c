// Package alerts raises fraud alerts for high-severity transactions and
// moves them through their review lifecycle
package alerts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/pkg/logger"
	"github.com/banking/fraud-monitor/internal/pkg/metrics"
	"github.com/banking/fraud-monitor/internal/repository"
	"github.com/banking/fraud-monitor/internal/scoring"
)

const messagePrefix = "High-risk transaction detected: "

// TypeResolver picks an alert type from a transaction's ranked factors
type TypeResolver interface {
	AlertTypeFor(factors []domain.RiskFactor) domain.AlertType
}

// Manager creates and updates alerts
type Manager struct {
	repo     repository.AlertRepository
	resolver TypeResolver
	log      *logger.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewManager creates an alert manager. metrics may be nil
func NewManager(repo repository.AlertRepository, resolver TypeResolver, log *logger.Logger, m *metrics.Collector) *Manager {
	return &Manager{
		repo:     repo,
		resolver: resolver,
		log:      log.Named("alerts"),
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// transitions lists the statuses reachable from each open status
var transitions = map[domain.AlertStatus][]domain.AlertStatus{
	domain.AlertStatusActive: {
		domain.AlertStatusInvestigating,
		domain.AlertStatusResolved,
		domain.AlertStatusDismissed,
	},
	domain.AlertStatusInvestigating: {
		domain.AlertStatusResolved,
		domain.AlertStatusDismissed,
	},
}

// CanTransition reports whether an alert may move from one status to another
func CanTransition(from, to domain.AlertStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Message renders the alert text for the given factors
func Message(factors []domain.RiskFactor) string {
	names := make([]string, len(factors))
	for i, f := range factors {
		names[i] = f.Factor
	}
	return messagePrefix + strings.Join(names, ", ")
}

// MaybeCreateAlert raises an alert for tx when severity is high or
// critical. At most one alert exists per (transaction, severity); when one
// is already present it is returned with created=false
func (m *Manager) MaybeCreateAlert(ctx context.Context, tx *domain.Transaction, severity domain.Severity, factors []domain.RiskFactor) (*domain.Alert, bool, error) {
	if !scoring.ShouldAlert(severity) {
		return nil, false, nil
	}

	log := m.log.WithContext(ctx)

	existing, err := m.findExisting(ctx, tx.TransactionID, severity)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		log.AlertDeduplicated(existing.ID.String(), tx.TransactionID, string(severity))
		return existing, false, nil
	}

	alert := &domain.Alert{
		TransactionID: tx.TransactionID,
		OwnerID:       tx.OwnerID,
		AlertType:     m.resolver.AlertTypeFor(factors),
		Severity:      severity,
		Status:        domain.AlertStatusActive,
		Score:         tx.FraudScore,
		Message:       Message(factors),
		CreatedAt:     m.now(),
	}

	if err := m.repo.Insert(ctx, alert); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}
		// Lost a race with a concurrent scorer of the same transaction
		existing, ferr := m.findExisting(ctx, tx.TransactionID, severity)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, err
		}
		log.AlertDeduplicated(existing.ID.String(), tx.TransactionID, string(severity))
		return existing, false, nil
	}

	log.AlertCreated(alert.ID.String(), string(alert.AlertType), string(severity), tx.TransactionID, alert.Score)
	m.metrics.AlertCreated(string(alert.AlertType), string(severity))
	return alert, true, nil
}

func (m *Manager) findExisting(ctx context.Context, transactionID string, severity domain.Severity) (*domain.Alert, error) {
	alerts, err := m.repo.List(ctx, domain.AlertFilter{TransactionID: transactionID})
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		if a.Severity == severity {
			return a, nil
		}
	}
	return nil, nil
}

// UpdateStatus moves the actor's alert to status. Resolved and dismissed
// are terminal and stamp ResolvedAt
func (m *Manager) UpdateStatus(ctx context.Context, actor string, id uuid.UUID, status domain.AlertStatus) (*domain.Alert, error) {
	alert, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !alert.IsOwnedBy(actor) {
		return nil, domain.Forbiddenf("alert %s", alert.ID)
	}
	if alert.IsClosed() || !CanTransition(alert.Status, status) {
		return nil, &domain.TransitionError{Entity: "alert", From: string(alert.Status), To: string(status)}
	}

	var resolvedAt *time.Time
	if status == domain.AlertStatusResolved || status == domain.AlertStatusDismissed {
		now := m.now()
		resolvedAt = &now
	}

	if err := m.repo.UpdateStatus(ctx, alert.ID, status, resolvedAt); err != nil {
		return nil, err
	}

	from := alert.Status
	alert.Status = status
	if resolvedAt != nil {
		alert.ResolvedAt = resolvedAt
	}

	m.log.WithContext(ctx).StatusChanged("alert", id.String(), string(from), string(status), actor)
	m.metrics.Transition("alert", string(status))
	return alert, nil
}

// Dismiss closes the actor's alert as a false positive
func (m *Manager) Dismiss(ctx context.Context, actor string, id uuid.UUID) (*domain.Alert, error) {
	return m.UpdateStatus(ctx, actor, id, domain.AlertStatusDismissed)
}

// List returns the actor's alerts, newest first
func (m *Manager) List(ctx context.Context, actor string, status domain.AlertStatus, limit int) ([]*domain.Alert, error) {
	return m.repo.List(ctx, domain.AlertFilter{OwnerID: actor, Status: status, Limit: limit})
}
