package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactStatus is the trust level a user assigned to a payee
type ContactStatus string

const (
	ContactTrusted ContactStatus = "trusted"
	ContactNew     ContactStatus = "new"
	ContactFlagged ContactStatus = "flagged"
)

// Valid reports whether s is a known status
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactTrusted, ContactNew, ContactFlagged:
		return true
	}
	return false
}

// TrustedContact is a payee saved by a user
type TrustedContact struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	UPIID       string        `json:"upi_id"`
	ContactName string        `json:"contact_name"`
	Status      ContactStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// DisplayName is the contact name, falling back to the UPI ID
func (c TrustedContact) DisplayName() string {
	if c.ContactName != "" {
		return c.ContactName
	}
	return c.UPIID
}

// AddContactRequest saves a payee for the calling user
type AddContactRequest struct {
	UPIID       string        `json:"upi_id" validate:"required,upi"`
	ContactName string        `json:"contact_name" validate:"max=100"`
	Status      ContactStatus `json:"status,omitempty" validate:"omitempty,oneof=trusted new flagged"`
}

// UpdateContactStatusRequest changes the trust level of a saved payee
type UpdateContactStatusRequest struct {
	Status ContactStatus `json:"status" validate:"required,oneof=trusted new flagged"`
}
