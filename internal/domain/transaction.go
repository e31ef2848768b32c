package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a transaction record
type TransactionStatus string

const (
	StatusPending       TransactionStatus = "pending"
	StatusApproved      TransactionStatus = "approved"
	StatusFlagged       TransactionStatus = "flagged"
	StatusBlocked       TransactionStatus = "blocked"
	StatusInvestigating TransactionStatus = "investigating"
	StatusResolved      TransactionStatus = "resolved"
)

// ParseTransactionStatus validates a status string
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(strings.ToLower(s)); st {
	case StatusPending, StatusApproved, StatusFlagged, StatusBlocked, StatusInvestigating, StatusResolved:
		return st, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown value %q", s))
}

// IsFraudulent reports whether the status counts toward fraud metrics
func (s TransactionStatus) IsFraudulent() bool {
	return s == StatusBlocked || s == StatusFlagged
}

// Transaction is a monitored transaction together with its scoring output
type Transaction struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	OwnerID       string    `json:"-" db:"user_id"`

	// Transaction details
	Amount          decimal.NullDecimal `json:"amount" db:"amount"`
	Balance         decimal.NullDecimal `json:"account_balance" db:"account_balance"`
	Merchant        string              `json:"merchant" db:"merchant"`
	Category        string              `json:"category" db:"category"`
	Location        string              `json:"location,omitempty" db:"location"`
	Currency        string              `json:"currency,omitempty" db:"currency"`
	TransactionType string              `json:"transaction_type,omitempty" db:"transaction_type"`
	DeviceType      string              `json:"device_type,omitempty" db:"device_type"`
	HourOfDay       *int                `json:"hour_of_day,omitempty" db:"hour_of_day"`
	DayOfWeek       *int                `json:"day_of_week,omitempty" db:"day_of_week"`
	Timestamp       time.Time           `json:"timestamp" db:"timestamp"`

	// Scoring output
	FraudScore  float64           `json:"fraud_score" db:"fraud_score"`
	Severity    Severity          `json:"risk_level" db:"risk_level"`
	Status      TransactionStatus `json:"status" db:"status"`
	RiskFactors []RiskFactor      `json:"risk_factors,omitempty" db:"risk_factors"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Hour returns the hour of day, falling back to the timestamp
func (t *Transaction) Hour() (int, bool) {
	if t.HourOfDay != nil {
		return *t.HourOfDay, true
	}
	if !t.Timestamp.IsZero() {
		return t.Timestamp.Hour(), true
	}
	return 0, false
}

// Weekday returns the day of week with Monday = 0 and Sunday = 6, falling
// back to the timestamp
func (t *Transaction) Weekday() (int, bool) {
	if t.DayOfWeek != nil {
		return *t.DayOfWeek, true
	}
	if !t.Timestamp.IsZero() {
		return (int(t.Timestamp.Weekday()) + 6) % 7, true
	}
	return 0, false
}

// AmountOrZero returns the amount, or zero when it is missing
func (t *Transaction) AmountOrZero() decimal.Decimal {
	if t.Amount.Valid {
		return t.Amount.Decimal
	}
	return decimal.Zero
}

// IsOwnedBy reports whether the transaction belongs to actor
func (t *Transaction) IsOwnedBy(actor string) bool {
	return t.OwnerID == actor
}

// TransactionInput is a transaction as submitted for analysis or import
type TransactionInput struct {
	TransactionID   string              `json:"transaction_id,omitempty" validate:"omitempty,max=64"`
	Amount          decimal.NullDecimal `json:"amount"`
	Balance         decimal.NullDecimal `json:"account_balance"`
	Merchant        string              `json:"merchant" validate:"max=200"`
	Category        string              `json:"category" validate:"max=100"`
	Location        string              `json:"location,omitempty" validate:"max=200"`
	Currency        string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	TransactionType string              `json:"transaction_type,omitempty" validate:"max=50"`
	DeviceType      string              `json:"device_type,omitempty" validate:"max=50"`
	HourOfDay       *int                `json:"hour_of_day,omitempty" validate:"omitempty,min=0,max=23"`
	DayOfWeek       *int                `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	Timestamp       *time.Time          `json:"timestamp,omitempty"`
}

// Validate checks ranges the scoring rules rely on. It never coerces
func (in *TransactionInput) Validate() error {
	if err := validateMoney("amount", in.Amount); err != nil {
		return err
	}
	if err := validateMoney("account_balance", in.Balance); err != nil {
		return err
	}
	if in.HourOfDay != nil && (*in.HourOfDay < 0 || *in.HourOfDay > 23) {
		return NewValidationError("hour_of_day", "must be between 0 and 23")
	}
	if in.DayOfWeek != nil && (*in.DayOfWeek < 0 || *in.DayOfWeek > 6) {
		return NewValidationError("day_of_week", "must be between 0 and 6")
	}
	return nil
}

// MaxMoney is the exclusive upper bound of amounts and balances; stored
// columns hold 13 integer digits and 2 decimals
var MaxMoney = decimal.New(1, 13)

func validateMoney(field string, v decimal.NullDecimal) error {
	if !v.Valid {
		return nil
	}
	switch {
	case v.Decimal.IsNegative():
		return NewValidationError(field, "must not be negative")
	case v.Decimal.GreaterThanOrEqual(MaxMoney):
		return NewValidationError(field, "must be below 10000000000000")
	case !v.Decimal.Equal(v.Decimal.Round(2)):
		return NewValidationError(field, "must have at most 2 decimal places")
	}
	return nil
}

// ValidateForStorage additionally requires the fields a stored row needs
func (in *TransactionInput) ValidateForStorage() error {
	if err := in.Validate(); err != nil {
		return err
	}
	if !in.Amount.Valid {
		return NewValidationError("amount", "is required")
	}
	if strings.TrimSpace(in.Merchant) == "" {
		return NewValidationError("merchant", "is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return NewValidationError("category", "is required")
	}
	return nil
}

// ToTransaction builds an unscored transaction owned by owner
func (in *TransactionInput) ToTransaction(owner string) *Transaction {
	tx := &Transaction{
		TransactionID:   in.TransactionID,
		OwnerID:         owner,
		Amount:          in.Amount,
		Balance:         in.Balance,
		Merchant:        in.Merchant,
		Category:        in.Category,
		Location:        in.Location,
		Currency:        strings.ToUpper(in.Currency),
		TransactionType: in.TransactionType,
		DeviceType:      in.DeviceType,
		HourOfDay:       in.HourOfDay,
		DayOfWeek:       in.DayOfWeek,
		Status:          StatusPending,
	}
	if in.Timestamp != nil {
		tx.Timestamp = in.Timestamp.UTC()
	}
	return tx
}

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	OwnerID string
	Status  TransactionStatus
	Limit   int
}

