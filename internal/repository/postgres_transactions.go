package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/banking/fraud-monitor/internal/domain"
)

// PostgresTransactions persists transactions in PostgreSQL
type PostgresTransactions struct {
	db *pgxpool.Pool
}

var _ TransactionRepository = (*PostgresTransactions)(nil)

// NewPostgresTransactions creates a PostgreSQL-backed transaction store
func NewPostgresTransactions(db *pgxpool.Pool) *PostgresTransactions {
	return &PostgresTransactions{db: db}
}

const transactionColumns = `
	id, transaction_id, user_id, amount::text, account_balance::text,
	merchant, category, location, currency, transaction_type, device_type,
	hour_of_day, day_of_week, timestamp, fraud_score::float8, risk_level,
	status, risk_factors, created_at, updated_at`

func (r *PostgresTransactions) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	factors := tx.RiskFactors
	if factors == nil {
		factors = []domain.RiskFactor{}
	}
	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return domain.StorageErr("marshal risk factors", err)
	}

	var balance *string
	if tx.Balance.Valid {
		s := tx.Balance.Decimal.String()
		balance = &s
	}

	query := `
		INSERT INTO transactions (
			id, transaction_id, user_id, amount, account_balance,
			merchant, category, location, currency, transaction_type, device_type,
			hour_of_day, day_of_week, timestamp, fraud_score, risk_level,
			status, risk_factors, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = r.db.Exec(ctx, query,
		tx.ID,
		tx.TransactionID,
		tx.OwnerID,
		tx.AmountOrZero().String(),
		balance,
		tx.Merchant,
		tx.Category,
		tx.Location,
		tx.Currency,
		tx.TransactionType,
		tx.DeviceType,
		tx.HourOfDay,
		tx.DayOfWeek,
		tx.Timestamp,
		tx.FraudScore,
		string(tx.Severity),
		string(tx.Status),
		factorsJSON,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	return mapPgError("insert transaction", err)
}

func (r *PostgresTransactions) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID))
	if err != nil {
		return nil, mapPgError(fmt.Sprintf("get transaction %s", transactionID), err)
	}
	return tx, nil
}

func (r *PostgresTransactions) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY timestamp DESC, created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, filter.OwnerID, string(filter.Status), limitOrDefault(filter.Limit))
	if err != nil {
		return nil, mapPgError("list transactions", err)
	}
	defer rows.Close()

	result := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, mapPgError("scan transaction", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError("list transactions", err)
	}
	return result, nil
}

func (r *PostgresTransactions) UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = $3 WHERE transaction_id = $1`,
		transactionID, string(status), at,
	)
	if err != nil {
		return mapPgError("update transaction status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("transaction %s", transactionID)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE to drop the transaction's alerts
func (r *PostgresTransactions) Delete(ctx context.Context, transactionID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return mapPgError("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("transaction %s", transactionID)
	}
	return nil
}

func (r *PostgresTransactions) Totals(ctx context.Context, ownerID string) (domain.TransactionTotals, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('blocked', 'flagged')),
			COALESCE(SUM(amount) FILTER (WHERE status IN ('blocked', 'flagged')), 0)::text
		FROM transactions
		WHERE user_id = $1
	`
	var (
		total, fraudulent int64
		sum               string
	)
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(&total, &fraudulent, &sum); err != nil {
		return domain.TransactionTotals{}, mapPgError("transaction totals", err)
	}
	amount, err := decimal.NewFromString(sum)
	if err != nil {
		return domain.TransactionTotals{}, domain.StorageErr("parse fraud amount", err)
	}
	return domain.TransactionTotals{
		Total:       int(total),
		Fraudulent:  int(fraudulent),
		FraudAmount: amount,
	}, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx          domain.Transaction
		amount      string
		balance     *string
		severity    string
		status      string
		factorsJSON []byte
	)

	err := row.Scan(
		&tx.ID,
		&tx.TransactionID,
		&tx.OwnerID,
		&amount,
		&balance,
		&tx.Merchant,
		&tx.Category,
		&tx.Location,
		&tx.Currency,
		&tx.TransactionType,
		&tx.DeviceType,
		&tx.HourOfDay,
		&tx.DayOfWeek,
		&tx.Timestamp,
		&tx.FraudScore,
		&severity,
		&status,
		&factorsJSON,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	tx.Amount = decimal.NewNullDecimal(amt)
	if balance != nil {
		bal, err := decimal.NewFromString(*balance)
		if err != nil {
			return nil, fmt.Errorf("parse account balance: %w", err)
		}
		tx.Balance = decimal.NewNullDecimal(bal)
	}
	tx.Severity = domain.Severity(severity)
	tx.Status = domain.TransactionStatus(status)

	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &tx.RiskFactors); err != nil {
			tx.RiskFactors = nil
		}
	}
	return &tx, nil
}
