package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
	"upiguard/internal/infrastructure/database"
)

const contactColumns = `id, user_id, upi_id, contact_name, status, created_at`

// ContactRepository stores each user's saved payees
type ContactRepository struct {
	db *database.PostgresDB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *database.PostgresDB) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListContacts returns the user's contacts ordered by name
func (r *ContactRepository) ListContacts(ctx context.Context, userID uuid.UUID) ([]models.TrustedContact, error) {
	query := `SELECT ` + contactColumns + ` FROM trusted_contacts WHERE user_id = $1 ORDER BY contact_name, upi_id`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []models.TrustedContact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// CreateContact inserts the contact or updates the existing one with the
// same UPI ID. contact is refreshed from the stored row.
func (r *ContactRepository) CreateContact(ctx context.Context, contact *models.TrustedContact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}

	query := `
		INSERT INTO trusted_contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		ON CONFLICT (user_id, upi_id) DO UPDATE SET
			contact_name = EXCLUDED.contact_name,
			status = EXCLUDED.status
		RETURNING ` + contactColumns

	var createdAt any
	if !contact.CreatedAt.IsZero() {
		createdAt = contact.CreatedAt
	}

	stored, err := scanContact(r.db.Pool().QueryRow(ctx, query,
		contact.ID, contact.UserID, contact.UPIID, contact.ContactName, contact.Status, createdAt,
	))
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	*contact = *stored
	return nil
}

// UpdateContactStatus changes one contact's status, or returns
// services.ErrNotFound when the user has no such contact.
func (r *ContactRepository) UpdateContactStatus(ctx context.Context, userID, contactID uuid.UUID, status models.ContactStatus) (*models.TrustedContact, error) {
	query := `UPDATE trusted_contacts SET status = $3 WHERE id = $1 AND user_id = $2 RETURNING ` + contactColumns

	c, err := scanContact(r.db.Pool().QueryRow(ctx, query, contactID, userID, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return c, nil
}

func scanContact(row scanner) (*models.TrustedContact, error) {
	var c models.TrustedContact
	if err := row.Scan(&c.ID, &c.UserID, &c.UPIID, &c.ContactName, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
