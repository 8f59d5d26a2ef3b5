package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"upiguard/internal/domain/models"
	"upiguard/internal/infrastructure/cache"
	"upiguard/internal/infrastructure/resilience"
	"upiguard/internal/metrics"
	"upiguard/pkg/logger"
)

// unlistedCacheTTL bounds how long a negative lookup is trusted
const unlistedCacheTTL = time.Minute

// cachedLookup is the cached form of a lookup; a nil Entry means not listed
type cachedLookup struct {
	Entry *models.BlacklistEntry `json:"entry"`
}

// BlacklistService looks up and records reported fraudulent identifiers
type BlacklistService struct {
	store     BlacklistStore
	cache     VerdictCache
	breaker   *resilience.Breaker
	publisher EventPublisher
	listedTTL time.Duration
	logger    *logger.Logger
}

// NewBlacklistService creates a blacklist service. cache, breaker and
// publisher may be nil.
func NewBlacklistService(store BlacklistStore, c VerdictCache, breaker *resilience.Breaker, publisher EventPublisher, listedTTL time.Duration, log *logger.Logger) *BlacklistService {
	if listedTTL <= 0 {
		listedTTL = time.Hour
	}
	return &BlacklistService{
		store:     store,
		cache:     c,
		breaker:   breaker,
		publisher: publisher,
		listedTTL: listedTTL,
		logger:    log.WithComponent("blacklist-service"),
	}
}

// Lookup returns the entry for identifier, or nil if it is not listed
func (s *BlacklistService) Lookup(ctx context.Context, identifier string) (*models.BlacklistEntry, error) {
	key := models.NormalizeIdentifier(identifier)
	if key == "" {
		return nil, nil
	}

	if s.cache != nil {
		var cached cachedLookup
		err := s.cache.GetJSON(ctx, cache.BlacklistKey(key), &cached)
		if err == nil {
			return cached.Entry, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Debug().Err(err).Str("identifier", key).Msg("blacklist cache read failed")
		}
	}

	entry, err := resilience.Execute(s.breaker, func() (*models.BlacklistEntry, error) {
		return s.store.LookupBlacklist(ctx, key)
	})
	if err != nil {
		metrics.DependencyFailuresTotal.WithLabelValues("blacklist").Inc()
		return nil, fmt.Errorf("blacklist lookup: %w", err)
	}

	if s.cache != nil {
		ttl := unlistedCacheTTL
		if entry != nil {
			ttl = s.listedTTL
		}
		if err := s.cache.SetJSON(ctx, cache.BlacklistKey(key), cachedLookup{Entry: entry}, ttl); err != nil {
			s.logger.Debug().Err(err).Str("identifier", key).Msg("blacklist cache write failed")
		}
	}

	return entry, nil
}

// Report records a community report, creating the entry or raising its
// count and severity.
func (s *BlacklistService) Report(ctx context.Context, report models.BlacklistReport) (*models.BlacklistEntry, error) {
	identifier, err := normalizeReportedIdentifier(report.Identifier)
	if err != nil {
		return nil, err
	}
	if report.Severity != "" && !report.Severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, report.Severity)
	}
	report.Identifier = identifier
	report.Reason = strings.TrimSpace(report.Reason)

	entry, err := s.store.ReportBlacklist(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("failed to record report: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.BlacklistKey(identifier)); err != nil {
			s.logger.Warn().Err(err).Str("identifier", identifier).Msg("failed to invalidate blacklist cache")
		}
	}

	metrics.BlacklistReportsTotal.Inc()
	s.logger.Info().
		Str("identifier", entry.Identifier).
		Int("reported_count", entry.ReportedCount).
		Str("severity", string(entry.Severity)).
		Msg("blacklist report recorded")

	if s.publisher != nil {
		if err := s.publisher.PublishBlacklistReport(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish blacklist report")
		}
	}

	return entry, nil
}

// List returns entries ordered by report count
func (s *BlacklistService) List(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListBlacklist(ctx, limit, offset)
}

// normalizeReportedIdentifier accepts a UPI ID, a bare domain or a URL and
// returns the lower-cased key stored in the blacklist.
func normalizeReportedIdentifier(raw string) (string, error) {
	id := models.NormalizeIdentifier(raw)
	switch {
	case id == "":
		return "", fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	case strings.Contains(id, "@"):
		if !UPIPattern.MatchString(id) {
			return "", fmt.Errorf("%w: %q is not a valid UPI ID", ErrInvalidInput, raw)
		}
		return id, nil
	case schemePattern.MatchString(id):
		u, err := ValidateAndNormalize(id)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return u.Domain, nil
	default:
		u, err := ValidateAndNormalize("https://" + id)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return u.Domain, nil
	}
}
