package models

import (
	"time"

	"github.com/google/uuid"
)

// Bounds on the learned profile lists
const (
	MaxTypicalHours = 10
	MaxKnownDevices = 10
)

// BehaviorProfile is the learned spending pattern of a user
type BehaviorProfile struct {
	UserID                  uuid.UUID  `json:"user_id"`
	AvgTransactionAmount    float64    `json:"avg_transaction_amount"`
	MaxTransactionAmount    float64    `json:"max_transaction_amount"`
	StdDevAmount            float64    `json:"std_dev_amount"`
	TransactionCount        int        `json:"transaction_count"`
	TypicalTransactionHours []int      `json:"typical_transaction_hours"`
	KnownDevices            []string   `json:"known_devices"`
	LastTransactionAt       *time.Time `json:"last_transaction_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// HasHour reports whether hour is one of the learned typical hours
func (p *BehaviorProfile) HasHour(hour int) bool {
	if p == nil {
		return false
	}
	for _, h := range p.TypicalTransactionHours {
		if h == hour {
			return true
		}
	}
	return false
}

// Stats returns the profile summary attached to analysis results
func (p *BehaviorProfile) Stats() *ProfileStats {
	if p == nil {
		return nil
	}
	return &ProfileStats{
		AvgAmount:        p.AvgTransactionAmount,
		MaxAmount:        p.MaxTransactionAmount,
		TransactionCount: p.TransactionCount,
		KnownDevices:     len(p.KnownDevices),
	}
}
