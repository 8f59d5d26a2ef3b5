package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"upiguard/internal/domain/models"
	"upiguard/pkg/logger"
)

// ContactService manages the saved payees used for trust and impersonation
// checks.
type ContactService struct {
	store    ContactStore
	validate *validator.Validate
	logger   *logger.Logger
	now      func() time.Time
}

// NewContactService creates a contact service
func NewContactService(store ContactStore, log *logger.Logger) *ContactService {
	return &ContactService{
		store:    store,
		validate: NewValidator(),
		logger:   log.WithComponent("contact-service"),
		now:      time.Now,
	}
}

// List returns the user's saved contacts
func (s *ContactService) List(ctx context.Context, userID uuid.UUID) ([]models.TrustedContact, error) {
	contacts, err := s.store.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	if contacts == nil {
		contacts = []models.TrustedContact{}
	}
	return contacts, nil
}

// Add saves a payee. Saving the same UPI ID again updates the stored entry.
func (s *ContactService) Add(ctx context.Context, userID uuid.UUID, req models.AddContactRequest) (*models.TrustedContact, error) {
	req.UPIID = strings.TrimSpace(req.UPIID)
	req.ContactName = strings.TrimSpace(req.ContactName)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = models.ContactTrusted
	}

	contact := &models.TrustedContact{
		ID:          uuid.New(),
		UserID:      userID,
		UPIID:       strings.ToLower(req.UPIID),
		ContactName: req.ContactName,
		Status:      req.Status,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to save contact: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("upi_id", contact.UPIID).
		Str("status", string(contact.Status)).
		Msg("contact saved")
	return contact, nil
}

// UpdateStatus changes a contact's trust level
func (s *ContactService) UpdateStatus(ctx context.Context, userID, contactID uuid.UUID, req models.UpdateContactStatusRequest) (*models.TrustedContact, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	return s.store.UpdateContactStatus(ctx, userID, contactID, req.Status)
}

func (s *ContactService) validateRequest(req any) error {
	if err := validateStruct(s.validate, req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
