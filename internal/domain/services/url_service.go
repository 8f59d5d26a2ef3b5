package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upiguard/internal/domain/models"
	"upiguard/internal/infrastructure/cache"
	"upiguard/internal/metrics"
	"upiguard/pkg/logger"
)

// URLServiceConfig controls verdict caching and dependency failure handling
type URLServiceConfig struct {
	VerdictTTL time.Duration
	BlockedTTL time.Duration
	FailClosed bool
}

// URLService runs phishing scans with blacklist context and caching
type URLService struct {
	analyzer  *PhishingAnalyzer
	blacklist *BlacklistService
	cache     VerdictCache
	publisher EventPublisher
	cfg       URLServiceConfig
	logger    *logger.Logger
}

// NewURLService creates a URL scan service. cache and publisher may be nil.
func NewURLService(analyzer *PhishingAnalyzer, blacklist *BlacklistService, c VerdictCache, publisher EventPublisher, cfg URLServiceConfig, log *logger.Logger) *URLService {
	if cfg.VerdictTTL <= 0 {
		cfg.VerdictTTL = 5 * time.Minute
	}
	if cfg.BlockedTTL <= 0 {
		cfg.BlockedTTL = time.Hour
	}
	return &URLService{
		analyzer:  analyzer,
		blacklist: blacklist,
		cache:     c,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("url-service"),
	}
}

// ScanResult is a verdict together with where it came from
type ScanResult struct {
	Analysis *models.PhishingAnalysis
	CacheHit bool
}

// Scan analyzes rawURL. Malformed URLs are not an error; they produce a
// critical verdict. The blacklist is consulted before the verdict cache, so
// a domain reported after its verdict was cached is still blocked.
func (s *URLService) Scan(ctx context.Context, rawURL string) (*ScanResult, error) {
	normalized, err := ValidateAndNormalize(rawURL)
	if err != nil {
		analysis := s.analyzer.AnalyzeURL(rawURL, false)
		s.finish(ctx, analysis)
		return &ScanResult{Analysis: analysis}, nil
	}

	entry, err := s.blacklist.Lookup(ctx, normalized.Domain)
	if err != nil {
		if !s.cfg.FailClosed {
			return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
		}
		// heuristics only, and nothing cached so the next scan retries
		s.logger.Warn().Err(err).Str("domain", normalized.Domain).Msg("blacklist unavailable, scanning with heuristics only")
		analysis := s.analyzer.AnalyzeURL(rawURL, false)
		s.finish(ctx, analysis)
		return &ScanResult{Analysis: analysis}, nil
	}

	if entry != nil {
		analysis := s.analyzer.AnalyzeURL(rawURL, true)
		s.finish(ctx, analysis)
		return &ScanResult{Analysis: analysis}, nil
	}

	key := cache.URLVerdictKey(rawURL)
	if s.cache != nil {
		var cached models.PhishingAnalysis
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			metrics.URLCacheHitsTotal.Inc()
			return &ScanResult{Analysis: &cached, CacheHit: true}, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Debug().Err(err).Msg("url verdict cache read failed")
		}
	}

	analysis := s.analyzer.AnalyzeURL(rawURL, false)

	if s.cache != nil {
		ttl := s.cfg.VerdictTTL
		if analysis.Recommendation == models.URLRecommendBlock {
			ttl = s.cfg.BlockedTTL
		}
		if err := s.cache.SetJSON(ctx, key, analysis, ttl); err != nil {
			s.logger.Debug().Err(err).Msg("url verdict cache write failed")
		}
	}

	s.finish(ctx, analysis)
	return &ScanResult{Analysis: analysis}, nil
}

func (s *URLService) finish(ctx context.Context, analysis *models.PhishingAnalysis) {
	metrics.URLScansTotal.WithLabelValues(string(analysis.RiskCategory)).Inc()

	s.logger.Debug().
		Str("domain", analysis.DomainAnalysis.Domain).
		Str("category", string(analysis.RiskCategory)).
		Float64("score", analysis.RiskScore).
		Int("hits", len(analysis.Factors)).
		Msg("url scanned")

	if analysis.IsPhishing && s.publisher != nil {
		if err := s.publisher.PublishURLVerdict(ctx, analysis); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish url verdict")
		}
	}
}
