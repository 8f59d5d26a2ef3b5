package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity represents how dangerous a blacklisted identifier is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IdentifierType tells UPI IDs apart from web domains in the blacklist
type IdentifierType string

const (
	IdentifierUPI    IdentifierType = "upi"
	IdentifierDomain IdentifierType = "domain"
)

// BlacklistEntry is a reported fraudulent UPI ID or domain
type BlacklistEntry struct {
	ID             uuid.UUID      `json:"id"`
	Identifier     string         `json:"identifier"`
	IdentifierType IdentifierType `json:"identifier_type"`
	Reason         string         `json:"reason"`
	ReportedCount  int            `json:"reported_count"`
	Severity       Severity       `json:"severity"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BlacklistReport is a community report against an identifier
type BlacklistReport struct {
	Identifier string   `json:"identifier"`
	Reason     string   `json:"reason"`
	Severity   Severity `json:"severity,omitempty"`
}

// NormalizeIdentifier lower-cases and trims a blacklist key
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// ClassifyIdentifier guesses the identifier type from its shape
func ClassifyIdentifier(identifier string) IdentifierType {
	if strings.Contains(identifier, "@") {
		return IdentifierUPI
	}
	return IdentifierDomain
}

// Rank orders severities, low being 1. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Report count thresholds that raise an entry's severity
const (
	HighSeverityReports     = 5
	CriticalSeverityReports = 10
)

// EscalateSeverity returns the stronger of current and reported, raised
// further as independent reports accumulate.
func EscalateSeverity(current, reported Severity, reportedCount int) Severity {
	s := current
	if reported.Rank() > s.Rank() {
		s = reported
	}
	if s.Rank() == 0 {
		s = SeverityMedium
	}
	switch {
	case reportedCount >= CriticalSeverityReports:
		return SeverityCritical
	case reportedCount >= HighSeverityReports && s.Rank() < SeverityHigh.Rank():
		return SeverityHigh
	}
	return s
}
