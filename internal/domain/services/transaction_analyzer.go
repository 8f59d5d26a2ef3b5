package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"upiguard/internal/domain/models"
)

// Score deltas of the transaction checks
const (
	lateNightPenalty       = 0.10
	newHourPenalty         = 0.05
	newContactLargePenalty = 0.20
	newContactMidPenalty   = 0.10
	newContactPenalty      = 0.05
	repeatedCharsPenalty   = 0.20
	numericLocalPenalty    = 0.15
	keywordPenalty         = 0.35
	amountTier1Penalty     = 0.25
	amountTier2Penalty     = 0.15
	amountTier3Penalty     = 0.08
	aboveMaxPenalty        = 0.20
	combinedPenalty        = 0.20
	trustedDiscount        = -0.30
	flaggedPenalty         = 0.40
	impersonationPenalty   = 0.25
)

const (
	lateNightEndHour     = 5
	minHoursForNewHour   = 6
	similarityThreshold  = 0.7
	numericLocalMinChars = 9
)

// SuspiciousKeywords are lures commonly embedded in scam UPI IDs
var SuspiciousKeywords = []string{
	"cashback", "lottery", "winner", "prize", "reward", "lucky", "free",
	"offer", "bonus", "refund", "claim", "urgent", "verify",
}

var allChecksPassed = models.Reason{Severity: models.ReasonOK, Text: "All checks passed"}

// TransactionContext is everything the scorer needs besides the input. All
// fields are optional.
type TransactionContext struct {
	Blacklist          *models.BlacklistEntry
	RecentTransactions []models.TransactionRecord
	Profile            *models.BehaviorProfile
	Contacts           []models.TrustedContact
}

// TransactionAnalyzer scores candidate payments. It holds no per-request
// state and is safe for concurrent use.
type TransactionAnalyzer struct {
	validate *validator.Validate
}

// NewTransactionAnalyzer creates a transaction analyzer
func NewTransactionAnalyzer() *TransactionAnalyzer {
	return &TransactionAnalyzer{validate: NewValidator()}
}

// Validate checks the input bounds
func (a *TransactionAnalyzer) Validate(input models.TransactionInput) error {
	return ValidateTransactionInput(a.validate, input)
}

// Score runs the transaction checks against tctx. It does not validate the
// input or touch the behavior profile.
func (a *TransactionAnalyzer) Score(input models.TransactionInput, tctx TransactionContext) *models.TransactionAnalysisResult {
	if tctx.Blacklist != nil {
		return blacklistedTransaction(tctx)
	}

	s := &scoreSheet{}
	result := &models.TransactionAnalysisResult{
		SimilarContacts: []string{},
		ContactStatus:   models.ContactNew,
		ProfileStats:    tctx.Profile.Stats(),
	}

	checkTimePattern(s, result, input.Hour, tctx.Profile)
	checkNewContact(s, result, input, tctx.RecentTransactions)
	checkUPIPattern(s, result, input.ReceiverUPI)
	checkKeywords(s, result, input.ReceiverUPI)
	checkAmount(s, result, input.Amount, tctx.Profile)

	if result.BehaviorFlags.SuspiciousKeywords && result.BehaviorFlags.NewContact && input.Amount > 5000 {
		s.add(combinedPenalty, models.ReasonDanger, "Large first payment to a receiver with a scam-like UPI ID")
	}

	applyContactStatus(s, result, input.ReceiverUPI, tctx.Contacts)

	result.RiskScore = clampScore(s.score)
	result.RiskLevel, result.Recommendation = transactionLevel(result.RiskScore)
	result.Reasons = s.reasons
	if result.RiskLevel == models.RiskLevelSafe && len(result.Reasons) == 0 {
		result.Reasons = []models.Reason{allChecksPassed}
	}
	return result
}

type scoreSheet struct {
	score   float64
	reasons []models.Reason
}

func (s *scoreSheet) add(delta float64, severity models.ReasonSeverity, text string) {
	s.score += delta
	s.reasons = append(s.reasons, models.Reason{Severity: severity, Text: text})
}

func (s *scoreSheet) note(severity models.ReasonSeverity, text string) {
	s.add(0, severity, text)
}

func checkTimePattern(s *scoreSheet, result *models.TransactionAnalysisResult, hour int, profile *models.BehaviorProfile) {
	lateNight := hour >= 0 && hour <= lateNightEndHour

	switch {
	case lateNight && profile.HasHour(hour):
		s.note(models.ReasonOK, fmt.Sprintf("Payments at %02d:00 match your usual pattern", hour))
	case lateNight:
		s.add(lateNightPenalty, models.ReasonWarning, fmt.Sprintf("Unusual late-night transaction at %02d:00", hour))
		result.BehaviorFlags.TimeAnomaly = true
	case profile != nil && len(profile.TypicalTransactionHours) >= minHoursForNewHour && !profile.HasHour(hour):
		s.add(newHourPenalty, models.ReasonInfo, fmt.Sprintf("You rarely pay at %02d:00", hour))
		result.BehaviorFlags.TimeAnomaly = true
	}
}

func checkNewContact(s *scoreSheet, result *models.TransactionAnalysisResult, input models.TransactionInput, recent []models.TransactionRecord) {
	for _, tx := range recent {
		if strings.EqualFold(tx.ReceiverUPIID, input.ReceiverUPI) {
			return
		}
	}

	result.BehaviorFlags.NewContact = true
	switch {
	case input.Amount > 5000:
		s.add(newContactLargePenalty, models.ReasonDanger, "First payment to this receiver with a large amount")
	case input.Amount > 2000:
		s.add(newContactMidPenalty, models.ReasonWarning, "First payment to this receiver")
	default:
		s.add(newContactPenalty, models.ReasonInfo, "First payment to this receiver")
	}
}

func checkUPIPattern(s *scoreSheet, result *models.TransactionAnalysisResult, receiver string) {
	local, domain := splitUPI(receiver)

	if hasRepeatedRun(domain, 3) {
		s.add(repeatedCharsPenalty, models.ReasonWarning, fmt.Sprintf("UPI handle %q has repeated characters", domain))
		result.BehaviorFlags.SuspiciousUPI = true
	}

	if len(local) >= numericLocalMinChars && countDigits(local)*2 > len(local) {
		s.add(numericLocalPenalty, models.ReasonWarning, "UPI ID is mostly digits")
		result.BehaviorFlags.SuspiciousUPI = true
	}
}

func checkKeywords(s *scoreSheet, result *models.TransactionAnalysisResult, receiver string) {
	lower := strings.ToLower(receiver)
	for _, kw := range SuspiciousKeywords {
		if strings.Contains(lower, kw) {
			s.add(keywordPenalty, models.ReasonDanger, fmt.Sprintf("UPI ID contains the scam keyword %q", kw))
			result.BehaviorFlags.SuspiciousKeywords = true
			return
		}
	}
}

func checkAmount(s *scoreSheet, result *models.TransactionAnalysisResult, amount float64, profile *models.BehaviorProfile) {
	switch {
	case amount >= 50000:
		s.add(amountTier1Penalty, models.ReasonDanger, fmt.Sprintf("Very high amount ₹%.2f", amount))
		result.AmountAnomaly = true
	case amount >= 25000:
		s.add(amountTier2Penalty, models.ReasonWarning, fmt.Sprintf("High amount ₹%.2f", amount))
		result.AmountAnomaly = true
	case amount >= 10000:
		s.add(amountTier3Penalty, models.ReasonInfo, fmt.Sprintf("Amount ₹%.2f is above ₹10,000", amount))
	}

	if profile != nil && profile.MaxTransactionAmount > 0 && amount > 2*profile.MaxTransactionAmount {
		s.add(aboveMaxPenalty, models.ReasonDanger,
			fmt.Sprintf("Amount is more than twice your largest payment of ₹%.2f", profile.MaxTransactionAmount))
		result.AmountAnomaly = true
	}
}

func applyContactStatus(s *scoreSheet, result *models.TransactionAnalysisResult, receiver string, contacts []models.TrustedContact) {
	for _, c := range contacts {
		if !strings.EqualFold(c.UPIID, receiver) {
			continue
		}
		name := c.DisplayName()
		result.ContactName = &name

		switch c.Status {
		case models.ContactTrusted:
			result.ContactStatus = models.ContactTrusted
			s.add(trustedDiscount, models.ReasonOK, fmt.Sprintf("Receiver is your trusted contact %s", name))
		case models.ContactFlagged:
			result.ContactStatus = models.ContactFlagged
			s.add(flaggedPenalty, models.ReasonDanger, fmt.Sprintf("You previously flagged %s", name))
		}
		return
	}

	for _, c := range contacts {
		sim := CalculateSimilarity(receiver, c.UPIID)
		if sim > similarityThreshold && sim < 1 {
			result.SimilarContacts = append(result.SimilarContacts, c.DisplayName())
		}
	}
	if len(result.SimilarContacts) > 0 {
		result.ImpersonationWarning = true
		s.add(impersonationPenalty, models.ReasonDanger,
			"Receiver looks like your contact "+strings.Join(result.SimilarContacts, ", ")+" but is not the same UPI ID")
	}
}

func blacklistedTransaction(tctx TransactionContext) *models.TransactionAnalysisResult {
	entry := tctx.Blacklist
	reasons := []models.Reason{
		{Severity: models.ReasonDanger, Text: "Receiver is blacklisted: " + entry.Reason},
		{Severity: models.ReasonDanger, Text: fmt.Sprintf("Reported %d time(s) as fraudulent", entry.ReportedCount)},
	}
	return &models.TransactionAnalysisResult{
		RiskScore:       1,
		RiskLevel:       models.RiskLevelCritical,
		Recommendation:  models.RecommendBlock,
		Reasons:         reasons,
		SimilarContacts: []string{},
		ContactStatus:   models.ContactFlagged,
		IsBlacklisted:   true,
		BehaviorFlags:   models.BehaviorFlags{IsBlacklisted: true},
		ProfileStats:    tctx.Profile.Stats(),
	}
}

// clampScore rounds away float noise from the additive deltas, then clamps
func clampScore(score float64) float64 {
	score = math.Round(score*1e4) / 1e4
	return math.Max(0, math.Min(1, score))
}

func transactionLevel(score float64) (models.RiskLevel, models.Recommendation) {
	switch {
	case score < 0.30:
		return models.RiskLevelSafe, models.RecommendProceed
	case score < 0.60:
		return models.RiskLevelWarning, models.RecommendCaution
	case score < 0.80:
		return models.RiskLevelDanger, models.RecommendAvoid
	default:
		return models.RiskLevelCritical, models.RecommendBlock
	}
}

// splitUPI splits at the last "@"
func splitUPI(upi string) (local, domain string) {
	i := strings.LastIndex(upi, "@")
	if i < 0 {
		return upi, ""
	}
	return upi[:i], upi[i+1:]
}

// hasRepeatedRun reports whether s contains n or more identical runes in a row
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}
