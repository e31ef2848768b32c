package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlertType represents the kind of fraud alert
type AlertType string

const (
	AlertTypeHighRisk          AlertType = "high_risk"
	AlertTypeSuspiciousPattern AlertType = "suspicious_pattern"
	AlertTypeVelocityCheck     AlertType = "velocity_check"
	AlertTypeLocationAnomaly   AlertType = "location_anomaly"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	AlertStatusActive        AlertStatus = "active"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusDismissed     AlertStatus = "dismissed"
)

// ParseAlertStatus validates a status string
func ParseAlertStatus(s string) (AlertStatus, error) {
	switch st := AlertStatus(strings.ToLower(s)); st {
	case AlertStatusActive, AlertStatusInvestigating, AlertStatusResolved, AlertStatusDismissed:
		return st, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown value %q", s))
}

// Alert is a fraud alert raised for a scored transaction
type Alert struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	OwnerID       string    `json:"-" db:"user_id"`

	// Classification
	AlertType AlertType   `json:"alert_type" db:"alert_type"`
	Severity  Severity    `json:"severity" db:"severity"`
	Status    AlertStatus `json:"status" db:"status"`

	// Score at creation; not recomputed afterwards
	Score   float64 `json:"fraud_score" db:"fraud_score"`
	Message string  `json:"message" db:"message"`

	// Timestamps
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// IsClosed returns true if the alert reached a terminal status
func (a *Alert) IsClosed() bool {
	return a.Status == AlertStatusDismissed || a.Status == AlertStatusResolved
}

// IsOwnedBy reports whether the alert belongs to actor
func (a *Alert) IsOwnedBy(actor string) bool {
	return a.OwnerID == actor
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	OwnerID       string
	TransactionID string
	Status        AlertStatus
	Limit         int
}
