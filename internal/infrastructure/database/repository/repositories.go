package repository

import (
	"upiguard/internal/domain/services"
	"upiguard/internal/infrastructure/database"
)

// Repositories bundles the PostgreSQL implementations of the service stores
type Repositories struct {
	Blacklist    *BlacklistRepository
	Transactions *TransactionRepository
	Profiles     *ProfileRepository
	Contacts     *ContactRepository
}

var (
	_ services.BlacklistStore     = (*BlacklistRepository)(nil)
	_ services.TransactionHistory = (*TransactionRepository)(nil)
	_ services.ProfileStore       = (*ProfileRepository)(nil)
	_ services.ContactStore       = (*ContactRepository)(nil)
)

// NewRepositories creates all repositories on db
func NewRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Blacklist:    NewBlacklistRepository(db),
		Transactions: NewTransactionRepository(db),
		Profiles:     NewProfileRepository(db),
		Contacts:     NewContactRepository(db),
	}
}
