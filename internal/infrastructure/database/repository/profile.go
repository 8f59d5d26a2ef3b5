package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"upiguard/internal/domain/models"
	"upiguard/internal/infrastructure/database"
)

// ProfileRepository stores one learned behavior profile per user
type ProfileRepository struct {
	db *database.PostgresDB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.PostgresDB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile returns the profile, or nil when the user has none yet
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.BehaviorProfile, error) {
	query := `
		SELECT user_id, avg_transaction_amount, max_transaction_amount, std_dev_amount,
			   transaction_count, typical_transaction_hours, known_devices,
			   last_transaction_at, updated_at
		FROM behavior_profiles
		WHERE user_id = $1`

	var (
		p             models.BehaviorProfile
		avg, max, std pgtype.Numeric
		hours         []int16
		lastTx        pgtype.Timestamptz
	)
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&p.UserID, &avg, &max, &std,
		&p.TransactionCount, &hours, &p.KnownDevices,
		&lastTx, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.AvgTransactionAmount = numericToFloat(avg)
	p.MaxTransactionAmount = numericToFloat(max)
	p.StdDevAmount = numericToFloat(std)
	p.TypicalTransactionHours = make([]int, len(hours))
	for i, h := range hours {
		p.TypicalTransactionHours[i] = int(h)
	}
	if p.KnownDevices == nil {
		p.KnownDevices = []string{}
	}
	p.LastTransactionAt = timestamptzToTimePtr(lastTx)
	return &p, nil
}

// UpsertProfile writes the whole profile, replacing any existing row
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p *models.BehaviorProfile) error {
	hours := make([]int16, len(p.TypicalTransactionHours))
	for i, h := range p.TypicalTransactionHours {
		hours[i] = int16(h)
	}
	devices := p.KnownDevices
	if devices == nil {
		devices = []string{}
	}

	query := `
		INSERT INTO behavior_profiles (
			user_id, avg_transaction_amount, max_transaction_amount, std_dev_amount,
			transaction_count, typical_transaction_hours, known_devices,
			last_transaction_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			avg_transaction_amount = EXCLUDED.avg_transaction_amount,
			max_transaction_amount = EXCLUDED.max_transaction_amount,
			std_dev_amount = EXCLUDED.std_dev_amount,
			transaction_count = EXCLUDED.transaction_count,
			typical_transaction_hours = EXCLUDED.typical_transaction_hours,
			known_devices = EXCLUDED.known_devices,
			last_transaction_at = EXCLUDED.last_transaction_at,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Pool().Exec(ctx, query,
		p.UserID,
		floatToNumeric(p.AvgTransactionAmount),
		floatToNumeric(p.MaxTransactionAmount),
		floatToNumeric(p.StdDevAmount),
		p.TransactionCount, hours, devices,
		timeToTimestamptzPtr(p.LastTransactionAt), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
