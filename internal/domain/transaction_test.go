package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func TestValidate_MoneyBounds(t *testing.T) {
	accepted := []string{"0", "0.01", "5000.00", "5000.000", "9999999999999.99"}
	for _, v := range accepted {
		in := TransactionInput{Amount: money(v), Balance: money(v)}
		assert.NoError(t, in.Validate(), v)
	}

	rejected := []struct {
		value  string
		reason string
	}{
		{"-0.01", "must not be negative"},
		{"5000.004", "at most 2 decimal places"},
		{"10000000000000", "must be below"},
		{"1e15", "must be below"},
	}
	for _, tc := range rejected {
		in := TransactionInput{Amount: money(tc.value)}
		err := in.Validate()
		require.ErrorIs(t, err, ErrValidation, tc.value)
		assert.Contains(t, err.Error(), tc.reason)

		in = TransactionInput{Amount: money("1"), Balance: money(tc.value)}
		err = in.Validate()
		require.ErrorIs(t, err, ErrValidation, tc.value)
		assert.Contains(t, err.Error(), "account_balance")
	}
}

func TestValidateForStorage_RequiresFields(t *testing.T) {
	in := TransactionInput{Merchant: "m", Category: "c"}
	assert.ErrorIs(t, in.ValidateForStorage(), ErrValidation)

	in.Amount = money("10.50")
	assert.NoError(t, in.ValidateForStorage())

	in.Category = "  "
	assert.ErrorIs(t, in.ValidateForStorage(), ErrValidation)
}

func TestWeekday_MondayIsZero(t *testing.T) {
	tx := &Transaction{}
	_, ok := tx.Weekday()
	assert.False(t, ok)

	tx.Timestamp = mustTime(t, "2024-01-15T10:00:00Z") // a Monday
	d, ok := tx.Weekday()
	require.True(t, ok)
	assert.Equal(t, 0, d)

	tx.Timestamp = mustTime(t, "2024-01-21T10:00:00Z") // a Sunday
	d, _ = tx.Weekday()
	assert.Equal(t, 6, d)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
