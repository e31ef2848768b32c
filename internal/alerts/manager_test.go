package alerts

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/pkg/logger"
	"github.com/banking/fraud-monitor/internal/pkg/metrics"
	"github.com/banking/fraud-monitor/internal/repository"
	"github.com/banking/fraud-monitor/internal/scoring"
)

func newManager(t *testing.T) (*Manager, *repository.MemoryAlerts) {
	t.Helper()
	repo := repository.NewMemoryAlerts()
	scorer := scoring.NewScorer(scoring.DefaultCatalog(scoring.DefaultConfig()))
	return NewManager(repo, scorer, logger.NewNop(), nil), repo
}

func scoredTx(id string, score float64) *domain.Transaction {
	return &domain.Transaction{TransactionID: id, OwnerID: "alice", FraudScore: score}
}

var criticalFactors = []domain.RiskFactor{
	{Factor: "High transaction to balance ratio", Impact: 0.25, Tier: domain.ImpactHigh},
	{Factor: "High-risk merchant category", Impact: 0.18, Tier: domain.ImpactMedium},
}

func TestMaybeCreateAlert_CreatesForCritical(t *testing.T) {
	m, _ := newManager(t)

	alert, created, err := m.MaybeCreateAlert(context.Background(), scoredTx("TXN-1", 0.95), domain.SeverityCritical, criticalFactors)
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, alert)

	assert.Equal(t, "TXN-1", alert.TransactionID)
	assert.Equal(t, "alice", alert.OwnerID)
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
	assert.Equal(t, domain.AlertStatusActive, alert.Status)
	assert.Equal(t, domain.AlertTypeHighRisk, alert.AlertType)
	assert.Equal(t, 0.95, alert.Score)
	assert.Equal(t, "High-risk transaction detected: High transaction to balance ratio, High-risk merchant category", alert.Message)
	assert.Nil(t, alert.ResolvedAt)
}

func TestMaybeCreateAlert_SkipsLowAndMedium(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()

	for _, sev := range []domain.Severity{domain.SeverityLow, domain.SeverityMedium} {
		alert, created, err := m.MaybeCreateAlert(ctx, scoredTx("TXN-1", 0.45), sev, nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Nil(t, alert)
	}

	all, err := repo.List(ctx, domain.AlertFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMaybeCreateAlert_IdempotentPerSeverity(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	tx := scoredTx("TXN-1", 0.65)

	first, created, err := m.MaybeCreateAlert(ctx, tx, domain.SeverityHigh, criticalFactors)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := m.MaybeCreateAlert(ctx, tx, domain.SeverityHigh, criticalFactors)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	// Closed alerts still count
	_, err = m.Dismiss(ctx, "alice", first.ID)
	require.NoError(t, err)
	_, created, err = m.MaybeCreateAlert(ctx, tx, domain.SeverityHigh, criticalFactors)
	require.NoError(t, err)
	assert.False(t, created)

	// A different severity is a different alert
	_, created, err = m.MaybeCreateAlert(ctx, tx, domain.SeverityCritical, criticalFactors)
	require.NoError(t, err)
	assert.True(t, created)

	all, err := repo.List(ctx, domain.AlertFilter{TransactionID: "TXN-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMaybeCreateAlert_ConcurrentCallersShareOneAlert(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	tx := scoredTx("TXN-1", 0.9)

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := m.MaybeCreateAlert(ctx, tx, domain.SeverityCritical, criticalFactors)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	all, err := repo.List(ctx, domain.AlertFilter{TransactionID: "TXN-1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMaybeCreateAlert_TypeFromStrongestFactor(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	cases := []struct {
		factor string
		want   domain.AlertType
	}{
		{"Suspicious location detected", domain.AlertTypeLocationAnomaly},
		{"Unusual transaction location", domain.AlertTypeLocationAnomaly},
		{"Suspicious merchant name", domain.AlertTypeSuspiciousPattern},
		{"High transaction amount", domain.AlertTypeHighRisk},
	}
	for i, tc := range cases {
		factors := []domain.RiskFactor{{Factor: tc.factor, Impact: 0.3, Tier: domain.ImpactHigh}}
		alert, created, err := m.MaybeCreateAlert(ctx, scoredTx(uuid.NewString(), 0.8), domain.SeverityCritical, factors)
		require.NoError(t, err, "case %d", i)
		require.True(t, created)
		assert.Equal(t, tc.want, alert.AlertType, tc.factor)
	}
}

func TestMaybeCreateAlert_CountsMetric(t *testing.T) {
	repo := repository.NewMemoryAlerts()
	scorer := scoring.NewScorer(scoring.DefaultCatalog(scoring.DefaultConfig()))
	c := metrics.NewCollector(prometheus.NewRegistry())
	m := NewManager(repo, scorer, logger.NewNop(), c)

	_, _, err := m.MaybeCreateAlert(context.Background(), scoredTx("TXN-1", 0.95), domain.SeverityCritical, criticalFactors)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AlertsCreated.WithLabelValues("high_risk", "critical")))
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	alert, _, err := m.MaybeCreateAlert(ctx, scoredTx("TXN-1", 0.95), domain.SeverityCritical, criticalFactors)
	require.NoError(t, err)

	updated, err := m.UpdateStatus(ctx, "alice", alert.ID, domain.AlertStatusInvestigating)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusInvestigating, updated.Status)
	assert.Nil(t, updated.ResolvedAt)

	updated, err = m.UpdateStatus(ctx, "alice", alert.ID, domain.AlertStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, domain.SeverityCritical, updated.Severity)

	// Terminal
	_, err = m.UpdateStatus(ctx, "alice", alert.ID, domain.AlertStatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = m.Dismiss(ctx, "alice", alert.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatus_Errors(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.UpdateStatus(ctx, "alice", uuid.New(), domain.AlertStatusResolved)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	alert, _, err := m.MaybeCreateAlert(ctx, scoredTx("TXN-1", 0.95), domain.SeverityCritical, criticalFactors)
	require.NoError(t, err)

	_, err = m.UpdateStatus(ctx, "mallory", alert.ID, domain.AlertStatusResolved)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = m.UpdateStatus(ctx, "alice", alert.ID, domain.AlertStatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDismiss_StampsResolvedAt(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	alert, _, err := m.MaybeCreateAlert(ctx, scoredTx("TXN-1", 0.7), domain.SeverityHigh, criticalFactors)
	require.NoError(t, err)

	dismissed, err := m.Dismiss(ctx, "alice", alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusDismissed, dismissed.Status)
	assert.NotNil(t, dismissed.ResolvedAt)

	list, err := m.List(ctx, "alice", domain.AlertStatusDismissed, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].ResolvedAt)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.AlertStatusActive, domain.AlertStatusInvestigating))
	assert.True(t, CanTransition(domain.AlertStatusInvestigating, domain.AlertStatusDismissed))
	assert.False(t, CanTransition(domain.AlertStatusInvestigating, domain.AlertStatusActive))
	assert.False(t, CanTransition(domain.AlertStatusResolved, domain.AlertStatusDismissed))
	assert.False(t, CanTransition(domain.AlertStatusActive, domain.AlertStatusActive))
}
