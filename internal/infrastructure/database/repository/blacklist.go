package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"upiguard/internal/domain/models"
	"upiguard/internal/infrastructure/database"
)

const blacklistColumns = `id, identifier, identifier_type, reason, reported_count, severity, created_at, updated_at`

// BlacklistRepository persists community fraud reports
type BlacklistRepository struct {
	db *database.PostgresDB
}

// NewBlacklistRepository creates a new blacklist repository
func NewBlacklistRepository(db *database.PostgresDB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// LookupBlacklist returns the entry for identifier or nil
func (r *BlacklistRepository) LookupBlacklist(ctx context.Context, identifier string) (*models.BlacklistEntry, error) {
	query := `SELECT ` + blacklistColumns + ` FROM fraud_blacklist WHERE identifier = $1`

	entry, err := scanBlacklistEntry(r.db.Pool().QueryRow(ctx, query, models.NormalizeIdentifier(identifier)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup blacklist: %w", err)
	}
	return entry, nil
}

// ReportBlacklist creates the entry or bumps its count. The row is locked so
// concurrent reports each count once and severity escalates consistently.
func (r *BlacklistRepository) ReportBlacklist(ctx context.Context, report models.BlacklistReport) (*models.BlacklistEntry, error) {
	identifier := models.NormalizeIdentifier(report.Identifier)
	var result *models.BlacklistEntry

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := lockBlacklistEntry(ctx, tx, identifier)
		if err != nil {
			return err
		}

		if current == nil {
			current, err = insertBlacklistEntry(ctx, tx, identifier, report)
			if err != nil {
				return err
			}
			if current != nil {
				result = current
				return nil
			}
			// lost an insert race; the other row is now visible
			if current, err = lockBlacklistEntry(ctx, tx, identifier); err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("blacklist entry %q vanished during report", identifier)
			}
		}

		count := current.ReportedCount + 1
		reason := current.Reason
		if report.Reason != "" {
			reason = report.Reason
		}
		severity := models.EscalateSeverity(current.Severity, report.Severity, count)

		query := `
			UPDATE fraud_blacklist
			SET reported_count = $2, reason = $3, severity = $4, updated_at = $5
			WHERE id = $1
			RETURNING ` + blacklistColumns

		result, err = scanBlacklistEntry(tx.QueryRow(ctx, query, current.ID, count, reason, severity, time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("failed to update blacklist entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListBlacklist returns entries with the most reported first
func (r *BlacklistRepository) ListBlacklist(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, error) {
	limit, offset = clampPage(limit, offset, 500)
	query := `SELECT ` + blacklistColumns + ` FROM fraud_blacklist
		ORDER BY reported_count DESC, identifier
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklist: %w", err)
	}
	defer rows.Close()

	entries := []models.BlacklistEntry{}
	for rows.Next() {
		e, err := scanBlacklistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func lockBlacklistEntry(ctx context.Context, tx pgx.Tx, identifier string) (*models.BlacklistEntry, error) {
	query := `SELECT ` + blacklistColumns + ` FROM fraud_blacklist WHERE identifier = $1 FOR UPDATE`

	entry, err := scanBlacklistEntry(tx.QueryRow(ctx, query, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock blacklist entry: %w", err)
	}
	return entry, nil
}

// insertBlacklistEntry returns nil without error when another report
// inserted the identifier first.
func insertBlacklistEntry(ctx context.Context, tx pgx.Tx, identifier string, report models.BlacklistReport) (*models.BlacklistEntry, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO fraud_blacklist (` + blacklistColumns + `)
		VALUES ($1, $2, $3, $4, 1, $5, $6, $6)
		ON CONFLICT (identifier) DO NOTHING
		RETURNING ` + blacklistColumns

	entry, err := scanBlacklistEntry(tx.QueryRow(ctx, query,
		uuid.New(), identifier, models.ClassifyIdentifier(identifier), report.Reason,
		models.EscalateSeverity("", report.Severity, 1), now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert blacklist entry: %w", err)
	}
	return entry, nil
}

func scanBlacklistEntry(row scanner) (*models.BlacklistEntry, error) {
	var e models.BlacklistEntry
	err := row.Scan(&e.ID, &e.Identifier, &e.IdentifierType, &e.Reason, &e.ReportedCount, &e.Severity, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
