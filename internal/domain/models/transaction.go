package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the bucketed transaction verdict
type RiskLevel string

const (
	RiskLevelSafe     RiskLevel = "safe"
	RiskLevelWarning  RiskLevel = "warning"
	RiskLevelDanger   RiskLevel = "danger"
	RiskLevelCritical RiskLevel = "critical"
)

// Recommendation is the action suggested for a payment
type Recommendation string

const (
	RecommendProceed Recommendation = "proceed"
	RecommendCaution Recommendation = "caution"
	RecommendAvoid   Recommendation = "avoid"
	RecommendBlock   Recommendation = "block"
)

// ReasonSeverity carries the polarity of a reason. ReasonOK mitigates risk,
// warning and danger increase it.
type ReasonSeverity string

const (
	ReasonOK      ReasonSeverity = "ok"
	ReasonInfo    ReasonSeverity = "info"
	ReasonWarning ReasonSeverity = "warning"
	ReasonDanger  ReasonSeverity = "danger"
)

// Reason is one human-readable explanation line
type Reason struct {
	Severity ReasonSeverity `json:"severity"`
	Text     string         `json:"text"`
}

// BehaviorFlags records which transaction checks fired
type BehaviorFlags struct {
	NewContact         bool `json:"newContact"`
	TimeAnomaly        bool `json:"timeAnomaly"`
	SuspiciousUPI      bool `json:"suspiciousUpi"`
	SuspiciousKeywords bool `json:"suspiciousKeywords"`
	IsBlacklisted      bool `json:"isBlacklisted"`
}

// ProfileStats is the subset of the behavior profile echoed back to callers
type ProfileStats struct {
	AvgAmount        float64 `json:"avg_amount"`
	MaxAmount        float64 `json:"max_amount"`
	TransactionCount int     `json:"transaction_count"`
	KnownDevices     int     `json:"known_devices"`
}

// TransactionAnalysisResult is the verdict for a candidate payment
type TransactionAnalysisResult struct {
	RiskScore            float64        `json:"risk_score"`
	RiskLevel            RiskLevel      `json:"risk_level"`
	Recommendation       Recommendation `json:"recommendation"`
	Reasons              []Reason       `json:"reasons"`
	ImpersonationWarning bool           `json:"impersonation_warning"`
	SimilarContacts      []string       `json:"similar_contacts"`
	ContactStatus        ContactStatus  `json:"contact_status"`
	ContactName          *string        `json:"contact_name"`
	IsBlacklisted        bool           `json:"is_blacklisted"`
	BehaviorFlags        BehaviorFlags  `json:"behavior_flags"`
	AmountAnomaly        bool           `json:"amount_anomaly"`
	ProfileStats         *ProfileStats  `json:"profile_stats"`
}

// TransactionInput is a candidate payment submitted for analysis
type TransactionInput struct {
	Amount      float64 `json:"amount" validate:"gt=0,lte=10000000"`
	ReceiverUPI string  `json:"receiver_upi" validate:"required,upi"`
	Hour        int     `json:"hour" validate:"min=0,max=23"`
	DeviceID    string  `json:"device_id,omitempty" validate:"omitempty,max=128"`
}

// TransactionRecord is a completed transaction in a user's history
type TransactionRecord struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Amount          float64   `json:"amount"`
	ReceiverUPIID   string    `json:"receiver_upi_id"`
	TransactionHour int       `json:"transaction_hour"`
	RiskScore       float64   `json:"risk_score"`
	RiskLevel       RiskLevel `json:"risk_level"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecordTransactionRequest reports a completed payment for the history
type RecordTransactionRequest struct {
	Amount      float64   `json:"amount" validate:"gt=0,lte=10000000"`
	ReceiverUPI string    `json:"receiver_upi" validate:"required,upi"`
	Hour        int       `json:"hour" validate:"min=0,max=23"`
	RiskScore   float64   `json:"risk_score" validate:"min=0,max=1"`
	RiskLevel   RiskLevel `json:"risk_level,omitempty" validate:"omitempty,oneof=safe warning danger critical"`
}
