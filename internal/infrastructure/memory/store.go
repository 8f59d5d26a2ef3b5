// Package memory provides in-process implementations of the service stores
// for development without PostgreSQL and for tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
)

// Store keeps blacklist, history, profile and contact data in maps. All
// methods are safe for concurrent use and return copies.
type Store struct {
	mu           sync.RWMutex
	blacklist    map[string]*models.BlacklistEntry
	transactions map[uuid.UUID][]models.TransactionRecord
	profiles     map[uuid.UUID]*models.BehaviorProfile
	contacts     map[uuid.UUID][]models.TrustedContact

	now func() time.Time
}

var (
	_ services.BlacklistStore     = (*Store)(nil)
	_ services.TransactionHistory = (*Store)(nil)
	_ services.ProfileStore       = (*Store)(nil)
	_ services.ContactStore       = (*Store)(nil)
)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		blacklist:    make(map[string]*models.BlacklistEntry),
		transactions: make(map[uuid.UUID][]models.TransactionRecord),
		profiles:     make(map[uuid.UUID]*models.BehaviorProfile),
		contacts:     make(map[uuid.UUID][]models.TrustedContact),
		now:          time.Now,
	}
}

// Blacklist

func (s *Store) LookupBlacklist(ctx context.Context, identifier string) (*models.BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.blacklist[models.NormalizeIdentifier(identifier)]
	if !ok {
		return nil, nil
	}
	e := *entry
	return &e, nil
}

func (s *Store) ReportBlacklist(ctx context.Context, report models.BlacklistReport) (*models.BlacklistEntry, error) {
	key := models.NormalizeIdentifier(report.Identifier)
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.blacklist[key]
	if !ok {
		entry = &models.BlacklistEntry{
			ID:             uuid.New(),
			Identifier:     key,
			IdentifierType: models.ClassifyIdentifier(key),
			CreatedAt:      now,
		}
		s.blacklist[key] = entry
	}

	entry.ReportedCount++
	if report.Reason != "" {
		entry.Reason = report.Reason
	}
	entry.Severity = models.EscalateSeverity(entry.Severity, report.Severity, entry.ReportedCount)
	entry.UpdatedAt = now

	e := *entry
	return &e, nil
}

func (s *Store) ListBlacklist(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, error) {
	s.mu.RLock()
	entries := make([]models.BlacklistEntry, 0, len(s.blacklist))
	for _, e := range s.blacklist {
		entries = append(entries, *e)
	}
	s.mu.RUnlock()

	// most reported first, matching the SQL ordering
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ReportedCount != entries[j].ReportedCount {
			return entries[i].ReportedCount > entries[j].ReportedCount
		}
		return entries[i].Identifier < entries[j].Identifier
	})

	return page(entries, limit, offset), nil
}

// Transactions

func (s *Store) RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.transactions[userID]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}

	result := make([]models.TransactionRecord, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		result = append(result, all[i])
	}
	return result, nil
}

func (s *Store) RecordTransaction(ctx context.Context, record *models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	s.transactions[record.UserID] = append(s.transactions[record.UserID], *record)
	return nil
}

// Profiles

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*models.BehaviorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return copyProfile(p), nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile *models.BehaviorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

func copyProfile(p *models.BehaviorProfile) *models.BehaviorProfile {
	c := *p
	c.TypicalTransactionHours = append([]int(nil), p.TypicalTransactionHours...)
	c.KnownDevices = append([]string(nil), p.KnownDevices...)
	if p.LastTransactionAt != nil {
		t := *p.LastTransactionAt
		c.LastTransactionAt = &t
	}
	return &c
}

// Contacts

func (s *Store) ListContacts(ctx context.Context, userID uuid.UUID) ([]models.TrustedContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.TrustedContact(nil), s.contacts[userID]...), nil
}

func (s *Store) CreateContact(ctx context.Context, contact *models.TrustedContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.contacts[contact.UserID] {
		if strings.EqualFold(c.UPIID, contact.UPIID) {
			// same payee saved twice updates the existing entry
			contact.ID = c.ID
			contact.CreatedAt = c.CreatedAt
			s.contacts[contact.UserID][i] = *contact
			return nil
		}
	}

	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = s.now().UTC()
	}
	s.contacts[contact.UserID] = append(s.contacts[contact.UserID], *contact)
	return nil
}

func (s *Store) UpdateContactStatus(ctx context.Context, userID, contactID uuid.UUID, status models.ContactStatus) (*models.TrustedContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.contacts[userID] {
		if c.ID == contactID {
			s.contacts[userID][i].Status = status
			updated := s.contacts[userID][i]
			return &updated, nil
		}
	}
	return nil, services.ErrNotFound
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
