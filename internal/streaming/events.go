package streaming

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"upiguard/internal/domain/models"
)

// EventType identifies what a fraud event reports
type EventType string

const (
	EventTypePhishingDetected  EventType = "url.phishing_detected"
	EventTypeHighRiskPayment   EventType = "transaction.high_risk"
	EventTypeBlacklistReported EventType = "blacklist.reported"
)

// FraudEvent is a verdict or report pushed to consoles and other instances
type FraudEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Severity  models.Severity `json:"severity"`
	SubjectID string          `json:"subject_id"`
	RiskScore float64         `json:"risk_score"`
	Summary   string          `json:"summary"`
	Timestamp time.Time       `json:"timestamp"`

	UserID string `json:"user_id,omitempty"`
	// Origin is the instance that produced the event
	Origin string `json:"origin,omitempty"`
}

func newEvent(t EventType, severity models.Severity, subject string, score float64, summary string) *FraudEvent {
	return &FraudEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Severity:  severity,
		SubjectID: subject,
		RiskScore: score,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
}

// NewPhishingEvent builds the event for a phishing verdict
func NewPhishingEvent(a *models.PhishingAnalysis) *FraudEvent {
	subject := a.DomainAnalysis.Domain
	if subject == "" {
		subject = a.URL
	}
	return newEvent(EventTypePhishingDetected, urlSeverity(a.RiskCategory), subject, a.RiskScore,
		fmt.Sprintf("%s (%s)", a.Explanation, a.ThreatType))
}

// NewTransactionEvent builds the event for a high risk payment
func NewTransactionEvent(userID uuid.UUID, input models.TransactionInput, r *models.TransactionAnalysisResult) *FraudEvent {
	var reasons []string
	for _, reason := range r.Reasons {
		if reason.Severity == models.ReasonDanger {
			reasons = append(reasons, reason.Text)
		}
	}
	summary := fmt.Sprintf("₹%.2f to %s rated %s", input.Amount, input.ReceiverUPI, r.RiskLevel)
	if len(reasons) > 0 {
		summary += ": " + strings.Join(reasons, "; ")
	}

	e := newEvent(EventTypeHighRiskPayment, transactionSeverity(r.RiskLevel), input.ReceiverUPI, r.RiskScore, summary)
	e.UserID = userID.String()
	return e
}

// NewBlacklistEvent builds the event for a recorded report
func NewBlacklistEvent(entry *models.BlacklistEntry) *FraudEvent {
	summary := fmt.Sprintf("%s reported %d time(s)", entry.Identifier, entry.ReportedCount)
	if entry.Reason != "" {
		summary += ": " + entry.Reason
	}
	return newEvent(EventTypeBlacklistReported, entry.Severity, entry.Identifier, 1, summary)
}

func urlSeverity(c models.URLRiskCategory) models.Severity {
	switch c {
	case models.URLRiskCritical:
		return models.SeverityCritical
	case models.URLRiskDangerous:
		return models.SeverityHigh
	case models.URLRiskSuspicious:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func transactionSeverity(l models.RiskLevel) models.Severity {
	switch l {
	case models.RiskLevelCritical:
		return models.SeverityCritical
	case models.RiskLevelDanger:
		return models.SeverityHigh
	case models.RiskLevelWarning:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Subscription filters the events a client receives. The zero value
// matches everything.
type Subscription struct {
	MinSeverity models.Severity `json:"min_severity,omitempty"`
	Types       []EventType     `json:"types,omitempty"`
}

// Matches reports whether event passes the filters
func (s *Subscription) Matches(event *FraudEvent) bool {
	if s == nil {
		return true
	}
	if s.MinSeverity != "" && event.Severity.Rank() < s.MinSeverity.Rank() {
		return false
	}
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == event.Type {
			return true
		}
	}
	return false
}
