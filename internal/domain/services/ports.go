package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"upiguard/internal/domain/models"
)

// BlacklistStore persists reported fraudulent identifiers. Lookup returns
// nil and no error when the identifier is not listed.
type BlacklistStore interface {
	LookupBlacklist(ctx context.Context, identifier string) (*models.BlacklistEntry, error)
	ReportBlacklist(ctx context.Context, report models.BlacklistReport) (*models.BlacklistEntry, error)
	ListBlacklist(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, error)
}

// TransactionHistory reads and appends completed transactions. Recent
// transactions are returned most recent first.
type TransactionHistory interface {
	RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TransactionRecord, error)
	RecordTransaction(ctx context.Context, record *models.TransactionRecord) error
}

// ProfileStore reads and upserts behavior profiles. GetProfile returns nil
// and no error for users without a profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.BehaviorProfile, error)
	UpsertProfile(ctx context.Context, profile *models.BehaviorProfile) error
}

// ContactStore manages a user's saved payees
type ContactStore interface {
	ListContacts(ctx context.Context, userID uuid.UUID) ([]models.TrustedContact, error)
	CreateContact(ctx context.Context, contact *models.TrustedContact) error
	UpdateContactStatus(ctx context.Context, userID, contactID uuid.UUID, status models.ContactStatus) (*models.TrustedContact, error)
}

// EventPublisher fans verdicts out to alert consumers
type EventPublisher interface {
	PublishURLVerdict(ctx context.Context, analysis *models.PhishingAnalysis) error
	PublishTransactionVerdict(ctx context.Context, userID uuid.UUID, input models.TransactionInput, result *models.TransactionAnalysisResult) error
	PublishBlacklistReport(ctx context.Context, entry *models.BlacklistEntry) error
}

// VerdictCache caches JSON-serializable values with a TTL. A miss returns
// cache.ErrMiss.
type VerdictCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
