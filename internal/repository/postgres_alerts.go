package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banking/fraud-monitor/internal/domain"
)

// PostgresAlerts persists fraud alerts in PostgreSQL
type PostgresAlerts struct {
	db *pgxpool.Pool
}

var _ AlertRepository = (*PostgresAlerts)(nil)

// NewPostgresAlerts creates a PostgreSQL-backed alert store
func NewPostgresAlerts(db *pgxpool.Pool) *PostgresAlerts {
	return &PostgresAlerts{db: db}
}

const alertColumns = `
	id, transaction_id, user_id, alert_type, severity, status,
	fraud_score::float8, message, created_at, resolved_at`

// Insert relies on the (transaction_id, severity) unique index for
// idempotency under concurrent scoring
func (r *PostgresAlerts) Insert(ctx context.Context, alert *domain.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}

	query := `
		INSERT INTO fraud_alerts (
			id, transaction_id, user_id, alert_type, severity, status,
			fraud_score, message, created_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		alert.ID,
		alert.TransactionID,
		alert.OwnerID,
		string(alert.AlertType),
		string(alert.Severity),
		string(alert.Status),
		alert.Score,
		alert.Message,
		alert.CreatedAt,
		alert.ResolvedAt,
	)
	return mapPgError("insert alert", err)
}

func (r *PostgresAlerts) Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`

	a, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(fmt.Sprintf("get alert %s", id), err)
	}
	return a, nil
}

func (r *PostgresAlerts) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM fraud_alerts
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR transaction_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query,
		filter.OwnerID, filter.TransactionID, string(filter.Status), limitOrDefault(filter.Limit))
	if err != nil {
		return nil, mapPgError("list alerts", err)
	}
	defer rows.Close()

	result := make([]*domain.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, mapPgError("scan alert", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError("list alerts", err)
	}
	return result, nil
}

func (r *PostgresAlerts) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, resolvedAt *time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE fraud_alerts SET status = $2, resolved_at = COALESCE($3, resolved_at) WHERE id = $1`,
		id, string(status), resolvedAt,
	)
	if err != nil {
		return mapPgError("update alert status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("alert %s", id)
	}
	return nil
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var (
		a         domain.Alert
		alertType string
		severity  string
		status    string
	)
	err := row.Scan(
		&a.ID,
		&a.TransactionID,
		&a.OwnerID,
		&alertType,
		&severity,
		&status,
		&a.Score,
		&a.Message,
		&a.CreatedAt,
		&a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AlertType = domain.AlertType(alertType)
	a.Severity = domain.Severity(severity)
	a.Status = domain.AlertStatus(status)
	return &a, nil
}
