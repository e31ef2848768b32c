package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fraud-monitor/internal/domain"
)

func newTx(id, owner string, createdAt time.Time) *domain.Transaction {
	return &domain.Transaction{
		TransactionID: id,
		OwnerID:       owner,
		Amount:        decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Merchant:      "Coffee Shop",
		Category:      "food",
		Status:        domain.StatusApproved,
		Severity:      domain.SeverityLow,
		FraudScore:    0.05,
		RiskFactors:   []domain.RiskFactor{{Factor: "Weekend transaction", Impact: 0.08, Tier: domain.ImpactLow}},
		Timestamp:     createdAt,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestMemoryTransactions_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTransactions()

	tx := newTx("TXN-1", "alice", time.Now())
	require.NoError(t, store.Insert(ctx, tx))
	assert.NotEqual(t, uuid.Nil, tx.ID)

	got, err := store.Get(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, tx.ID, got.ID)

	// Returned records are copies
	got.RiskFactors[0].Factor = "mutated"
	again, err := store.Get(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, "Weekend transaction", again.RiskFactors[0].Factor)
}

func TestMemoryTransactions_DuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTransactions()

	require.NoError(t, store.Insert(ctx, newTx("TXN-1", "alice", time.Now())))
	err := store.Insert(ctx, newTx("TXN-1", "bob", time.Now()))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = store.Get(ctx, "TXN-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.UpdateStatus(ctx, "TXN-404", domain.StatusResolved, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryTransactions_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTransactions()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, newTx("TXN-1", "alice", base)))
	require.NoError(t, store.Insert(ctx, newTx("TXN-2", "alice", base.Add(time.Minute))))
	require.NoError(t, store.Insert(ctx, newTx("TXN-3", "bob", base.Add(2*time.Minute))))
	flagged := newTx("TXN-4", "alice", base.Add(3*time.Minute))
	flagged.Status = domain.StatusFlagged
	require.NoError(t, store.Insert(ctx, flagged))

	all, err := store.List(ctx, domain.TransactionFilter{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "TXN-4", all[0].TransactionID)
	assert.Equal(t, "TXN-2", all[1].TransactionID)
	assert.Equal(t, "TXN-1", all[2].TransactionID)

	onlyFlagged, err := store.List(ctx, domain.TransactionFilter{OwnerID: "alice", Status: domain.StatusFlagged})
	require.NoError(t, err)
	require.Len(t, onlyFlagged, 1)
	assert.Equal(t, "TXN-4", onlyFlagged[0].TransactionID)

	limited, err := store.List(ctx, domain.TransactionFilter{OwnerID: "alice", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryTransactions_ListOrdersByTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTransactions()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Backdated rows are stored later but sort by when they happened
	late := newTx("TXN-late", "alice", base)
	late.Timestamp = base.Add(-time.Hour)
	early := newTx("TXN-early", "alice", base.Add(time.Minute))
	early.Timestamp = base.Add(-2 * time.Hour)
	recent := newTx("TXN-recent", "alice", base.Add(2*time.Minute))

	require.NoError(t, store.Insert(ctx, recent))
	require.NoError(t, store.Insert(ctx, late))
	require.NoError(t, store.Insert(ctx, early))

	all, err := store.List(ctx, domain.TransactionFilter{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "TXN-recent", all[0].TransactionID)
	assert.Equal(t, "TXN-late", all[1].TransactionID)
	assert.Equal(t, "TXN-early", all[2].TransactionID)
}

func TestMemoryTransactions_DeleteAndTotals(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTransactions()
	now := time.Now()

	blocked := newTx("TXN-1", "alice", now)
	blocked.Status = domain.StatusBlocked
	blocked.Amount = decimal.NewNullDecimal(decimal.RequireFromString("250.25"))
	require.NoError(t, store.Insert(ctx, blocked))
	require.NoError(t, store.Insert(ctx, newTx("TXN-2", "alice", now)))
	require.NoError(t, store.Insert(ctx, newTx("TXN-3", "bob", now)))

	totals, err := store.Totals(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Total)
	assert.Equal(t, 1, totals.Fraudulent)
	assert.True(t, totals.FraudAmount.Equal(decimal.RequireFromString("250.25")))

	require.NoError(t, store.Delete(ctx, "TXN-1"))
	_, err = store.Get(ctx, "TXN-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "TXN-1"), domain.ErrNotFound)

	// The ID is free again
	require.NoError(t, store.Insert(ctx, newTx("TXN-1", "alice", now)))

	totals, err = store.Totals(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Total)
	assert.Equal(t, 0, totals.Fraudulent)
	assert.True(t, totals.FraudAmount.IsZero())

	empty, err := store.Totals(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
}

func TestMemoryTransactions_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTransactions()
	require.NoError(t, store.Insert(ctx, newTx("TXN-1", "alice", time.Now())))

	at := time.Now().Add(time.Hour)
	require.NoError(t, store.UpdateStatus(ctx, "TXN-1", domain.StatusFlagged, at))

	got, err := store.Get(ctx, "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, got.Status)
	assert.True(t, got.UpdatedAt.Equal(at))
}

func TestMemoryAlerts_UniquePerTransactionAndSeverity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAlerts()

	first := &domain.Alert{TransactionID: "TXN-1", OwnerID: "alice", Severity: domain.SeverityCritical, Status: domain.AlertStatusActive}
	require.NoError(t, store.Insert(ctx, first))

	dup := &domain.Alert{TransactionID: "TXN-1", OwnerID: "alice", Severity: domain.SeverityCritical, Status: domain.AlertStatusActive}
	assert.True(t, errors.Is(store.Insert(ctx, dup), ErrDuplicate))

	other := &domain.Alert{TransactionID: "TXN-1", OwnerID: "alice", Severity: domain.SeverityHigh, Status: domain.AlertStatusActive}
	require.NoError(t, store.Insert(ctx, other))

	list, err := store.List(ctx, domain.AlertFilter{TransactionID: "TXN-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].ID)
}

func TestMemoryAlerts_UpdateStatusAndFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAlerts()

	a := &domain.Alert{TransactionID: "TXN-1", OwnerID: "alice", Severity: domain.SeverityHigh, Status: domain.AlertStatusActive}
	b := &domain.Alert{TransactionID: "TXN-2", OwnerID: "bob", Severity: domain.SeverityHigh, Status: domain.AlertStatusActive}
	require.NoError(t, store.Insert(ctx, a))
	require.NoError(t, store.Insert(ctx, b))

	now := time.Now()
	require.NoError(t, store.UpdateStatus(ctx, a.ID, domain.AlertStatusResolved, &now))

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)

	active, err := store.List(ctx, domain.AlertFilter{Status: domain.AlertStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "bob", active[0].OwnerID)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
