package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"upiguard/internal/domain/models"
	"upiguard/internal/infrastructure/resilience"
	"upiguard/internal/metrics"
	"upiguard/pkg/logger"
)

// Score floors applied when a dependency could not be read
const (
	unverifiedBlacklistFloor = 0.80
	unverifiedContextFloor   = 0.60
)

// TransactionServiceConfig controls history depth and failure handling
type TransactionServiceConfig struct {
	// FailClosed escalates the verdict when a read fails; otherwise the
	// failure is returned as ErrDependencyUnavailable.
	FailClosed   bool
	HistoryLimit int
}

// TransactionBreakers guard the per-user reads. Any of them may be nil.
type TransactionBreakers struct {
	History  *resilience.Breaker
	Profile  *resilience.Breaker
	Contacts *resilience.Breaker
}

// TransactionService gathers context for the transaction analyzer and
// persists the learned profile afterwards.
type TransactionService struct {
	analyzer  *TransactionAnalyzer
	blacklist *BlacklistService
	history   TransactionHistory
	profiles  ProfileStore
	contacts  ContactStore
	publisher EventPublisher
	breakers  TransactionBreakers
	cfg       TransactionServiceConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewTransactionService creates a transaction service. publisher may be nil.
func NewTransactionService(
	analyzer *TransactionAnalyzer,
	blacklist *BlacklistService,
	history TransactionHistory,
	profiles ProfileStore,
	contacts ContactStore,
	publisher EventPublisher,
	breakers TransactionBreakers,
	cfg TransactionServiceConfig,
	log *logger.Logger,
) *TransactionService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &TransactionService{
		analyzer:  analyzer,
		blacklist: blacklist,
		history:   history,
		profiles:  profiles,
		contacts:  contacts,
		publisher: publisher,
		breakers:  breakers,
		cfg:       cfg,
		logger:    log.WithComponent("transaction-service"),
		now:       time.Now,
	}
}

// dependencyReads holds the resolved context and the read that failed, if any
type dependencyReads struct {
	tctx         TransactionContext
	blacklistErr error
	historyErr   error
	profileErr   error
	contactsErr  error
}

func (d *dependencyReads) failed() []string {
	var names []string
	if d.blacklistErr != nil {
		names = append(names, "blacklist")
	}
	if d.historyErr != nil {
		names = append(names, "history")
	}
	if d.profileErr != nil {
		names = append(names, "profile")
	}
	if d.contactsErr != nil {
		names = append(names, "contacts")
	}
	return names
}

// Analyze validates input, scores it against the user's context and then
// records the outcome in the behavior profile.
func (s *TransactionService) Analyze(ctx context.Context, userID uuid.UUID, input models.TransactionInput) (*models.TransactionAnalysisResult, error) {
	if err := s.analyzer.Validate(input); err != nil {
		return nil, err
	}

	reads := s.gather(ctx, userID, input.ReceiverUPI)
	failed := reads.failed()
	if len(failed) > 0 && !s.cfg.FailClosed {
		return nil, fmt.Errorf("%w: %s", ErrDependencyUnavailable, strings.Join(failed, ", "))
	}

	result := s.analyzer.Score(input, reads.tctx)
	if len(failed) > 0 && !result.IsBlacklisted {
		escalateUnverified(result, reads)
	}

	log := s.logger.WithUserID(userID.String()).With().
		Str("receiver", input.ReceiverUPI).
		Float64("score", result.RiskScore).
		Str("level", string(result.RiskLevel)).
		Logger()

	// blacklisted payments never reach the profile; neither does a profile
	// that could not be read, since it would be overwritten from scratch
	if !result.IsBlacklisted && reads.profileErr == nil {
		if err := s.RecordOutcome(ctx, userID, input, reads.tctx.Profile); err != nil {
			metrics.DependencyFailuresTotal.WithLabelValues("profile_update").Inc()
			log.Warn().Err(err).Msg("failed to update behavior profile")
		}
	}

	metrics.TransactionAnalysesTotal.WithLabelValues(string(result.RiskLevel)).Inc()
	metrics.TransactionRiskScore.Observe(result.RiskScore)
	log.Debug().Strs("unverified", failed).Msg("transaction analyzed")

	if s.publisher != nil && (result.RiskLevel == models.RiskLevelDanger || result.RiskLevel == models.RiskLevelCritical) {
		if err := s.publisher.PublishTransactionVerdict(ctx, userID, input, result); err != nil {
			log.Warn().Err(err).Msg("failed to publish transaction verdict")
		}
	}

	return result, nil
}

// gather reads the four collaborators concurrently. Each failure is kept
// separately so one slow or broken store does not hide the others.
func (s *TransactionService) gather(ctx context.Context, userID uuid.UUID, receiver string) *dependencyReads {
	reads := &dependencyReads{}
	var g errgroup.Group

	g.Go(func() error {
		reads.tctx.Blacklist, reads.blacklistErr = s.blacklist.Lookup(ctx, receiver)
		return nil
	})
	g.Go(func() error {
		reads.tctx.RecentTransactions, reads.historyErr = resilience.Execute(s.breakers.History, func() ([]models.TransactionRecord, error) {
			return s.history.RecentTransactions(ctx, userID, s.cfg.HistoryLimit)
		})
		if reads.historyErr != nil {
			metrics.DependencyFailuresTotal.WithLabelValues("history").Inc()
		}
		return nil
	})
	g.Go(func() error {
		reads.tctx.Profile, reads.profileErr = resilience.Execute(s.breakers.Profile, func() (*models.BehaviorProfile, error) {
			return s.profiles.GetProfile(ctx, userID)
		})
		if reads.profileErr != nil {
			metrics.DependencyFailuresTotal.WithLabelValues("profile").Inc()
		}
		return nil
	})
	g.Go(func() error {
		reads.tctx.Contacts, reads.contactsErr = resilience.Execute(s.breakers.Contacts, func() ([]models.TrustedContact, error) {
			return s.contacts.ListContacts(ctx, userID)
		})
		if reads.contactsErr != nil {
			metrics.DependencyFailuresTotal.WithLabelValues("contacts").Inc()
		}
		return nil
	})

	_ = g.Wait()

	for name, err := range map[string]error{
		"blacklist": reads.blacklistErr,
		"history":   reads.historyErr,
		"profile":   reads.profileErr,
		"contacts":  reads.contactsErr,
	} {
		if err != nil {
			s.logger.Warn().Err(err).Str("dependency", name).Msg("dependency read failed")
		}
	}

	return reads
}

// escalateUnverified raises the score to the floor for the failed reads and
// explains what could not be checked.
func escalateUnverified(result *models.TransactionAnalysisResult, reads *dependencyReads) {
	floor := unverifiedContextFloor
	var reasons []models.Reason
	if reads.blacklistErr != nil {
		floor = unverifiedBlacklistFloor
		reasons = append(reasons, models.Reason{Severity: models.ReasonDanger, Text: "Could not verify the receiver against the fraud blacklist"})
	}
	if reads.historyErr != nil {
		reasons = append(reasons, models.Reason{Severity: models.ReasonDanger, Text: "Could not verify your transaction history"})
	}
	if reads.profileErr != nil {
		reasons = append(reasons, models.Reason{Severity: models.ReasonDanger, Text: "Could not verify your spending profile"})
	}
	if reads.contactsErr != nil {
		reasons = append(reasons, models.Reason{Severity: models.ReasonDanger, Text: "Could not verify your trusted contacts"})
	}

	kept := result.Reasons[:0]
	for _, r := range result.Reasons {
		if r != allChecksPassed {
			kept = append(kept, r)
		}
	}
	result.Reasons = append(kept, reasons...)
	result.RiskScore = math.Max(result.RiskScore, floor)
	result.RiskLevel, result.Recommendation = transactionLevel(result.RiskScore)
}

// RecordOutcome folds one analyzed transaction into the user's profile.
// current is the profile the analysis was scored against.
func (s *TransactionService) RecordOutcome(ctx context.Context, userID uuid.UUID, input models.TransactionInput, current *models.BehaviorProfile) error {
	next := ApplyTransaction(current, userID, input.Amount, input.Hour, input.DeviceID, s.now())
	if err := s.profiles.UpsertProfile(ctx, &next); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Record appends a completed transaction to the user's history
func (s *TransactionService) Record(ctx context.Context, userID uuid.UUID, req models.RecordTransactionRequest) (*models.TransactionRecord, error) {
	if err := validateStruct(s.analyzer.validate, req); err != nil {
		return nil, err
	}

	record := &models.TransactionRecord{
		ID:              uuid.New(),
		UserID:          userID,
		Amount:          req.Amount,
		ReceiverUPIID:   strings.ToLower(req.ReceiverUPI),
		TransactionHour: req.Hour,
		RiskScore:       req.RiskScore,
		RiskLevel:       req.RiskLevel,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.history.RecordTransaction(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	return record, nil
}

// Recent returns the user's latest transactions, most recent first
func (s *TransactionService) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.TransactionRecord, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.history.RecentTransactions(ctx, userID, limit)
}

// Profile returns the learned behavior profile, or ErrNotFound
func (s *TransactionService) Profile(ctx context.Context, userID uuid.UUID) (*models.BehaviorProfile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}
