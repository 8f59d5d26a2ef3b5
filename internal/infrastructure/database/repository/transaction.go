package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"upiguard/internal/domain/models"
	"upiguard/internal/infrastructure/database"
)

// TransactionRepository stores completed payments per user
type TransactionRepository struct {
	db *database.PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// RecentTransactions returns the user's latest payments, newest first
func (r *TransactionRepository) RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TransactionRecord, error) {
	limit, _ = clampPage(limit, 0, 500)
	query := `
		SELECT id, user_id, amount, receiver_upi_id, transaction_hour, risk_score, risk_level, created_at
		FROM transaction_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Pool().Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	records := []models.TransactionRecord{}
	for rows.Next() {
		var (
			rec    models.TransactionRecord
			amount pgtype.Numeric
			hour   int16
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &amount, &rec.ReceiverUPIID, &hour, &rec.RiskScore, &rec.RiskLevel, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		rec.Amount = numericToFloat(amount)
		rec.TransactionHour = int(hour)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordTransaction appends a payment, filling ID and CreatedAt if unset
func (r *TransactionRepository) RecordTransaction(ctx context.Context, record *models.TransactionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transaction_history (
			id, user_id, amount, receiver_upi_id, transaction_hour, risk_score, risk_level, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Pool().Exec(ctx, query,
		record.ID, record.UserID, floatToNumeric(record.Amount), record.ReceiverUPIID,
		int16(record.TransactionHour), record.RiskScore, record.RiskLevel, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}
