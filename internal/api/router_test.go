package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upiguard/internal/api/handlers"
	apimiddleware "upiguard/internal/api/middleware"
	"upiguard/internal/config"
	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
	"upiguard/internal/grpc/healthcheck"
	"upiguard/internal/infrastructure/cache"
	"upiguard/internal/infrastructure/memory"
	"upiguard/pkg/logger"
)

const (
	testAPIKey     = "test-key"
	testAdminToken = "test-admin"
)

type brokenHistory struct{}

func (brokenHistory) RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TransactionRecord, error) {
	return nil, errors.New("connection reset")
}

func (brokenHistory) RecordTransaction(ctx context.Context, record *models.TransactionRecord) error {
	return errors.New("connection reset")
}

type denyAll struct{}

func (denyAll) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	return false, 0, time.Now().Add(30 * time.Second), nil
}

type testEnv struct {
	handler http.Handler
	checker *healthcheck.Checker
	userID  uuid.UUID
}

type envOption func(*envSettings)

type envSettings struct {
	history    services.TransactionHistory
	failClosed bool
	limiter    apimiddleware.RateLimitChecker
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	log := logger.NewNop()
	store := memory.NewStore()

	settings := envSettings{history: store, failClosed: true}
	for _, o := range opts {
		o(&settings)
	}

	verdicts := cache.NewMemory()
	blacklist := services.NewBlacklistService(store, verdicts, nil, nil, time.Hour, log)
	checker := healthcheck.NewChecker(log)

	h := handlers.NewHandlers(handlers.Dependencies{
		URLs: services.NewURLService(services.NewPhishingAnalyzer(nil), blacklist, verdicts, nil,
			services.URLServiceConfig{FailClosed: true}, log),
		Transactions: services.NewTransactionService(services.NewTransactionAnalyzer(), blacklist,
			settings.history, store, store, nil, services.TransactionBreakers{},
			services.TransactionServiceConfig{FailClosed: settings.failClosed}, log),
		Contacts:  services.NewContactService(store, log),
		Blacklist: blacklist,
		Health:    checker,
		Version:   "test",
		Logger:    log,
	})

	cfg := config.Config{
		Auth:      config.AuthConfig{APIKeys: []string{testAPIKey}, AdminToken: testAdminToken},
		RateLimit: config.RateLimitConfig{Enabled: settings.limiter != nil, RequestsPerMinute: 1},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	router := NewRouter(cfg, h, settings.limiter, log)

	return &testEnv{handler: router.Setup(), checker: checker, userID: uuid.New()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) authed() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + testAPIKey,
		"X-User-ID":     e.userID.String(),
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.checker.Add("postgres", func(ctx context.Context) error { return nil })
	rec = env.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.checker.Add("redis", func(ctx context.Context) error { return errors.New("refused") })
	rec = env.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body handlers.HealthResponse
	decode(t, rec, &body)
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "healthy", body.Checks["postgres"])
	assert.Equal(t, "unhealthy: refused", body.Checks["redis"])

	rec = env.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"url": "https://google.com"}

	rec := env.do(t, http.MethodPost, "/api/v1/url/analyze", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/url/analyze", body, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/url/analyze", body, map[string]string{"Authorization": "Token " + testAPIKey})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/profile", nil, map[string]string{"Authorization": "Bearer " + testAPIKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/profile", nil, map[string]string{"Authorization": "Bearer " + testAPIKey, "X-User-ID": "42"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "X-User-ID must be a UUID", errorMessage(t, rec))
}

func TestURLAnalyze(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/url/analyze", map[string]string{"url": "http://paytm-kyc.xyz"}, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.PhishingAnalysis
	decode(t, rec, &result)
	assert.Equal(t, models.URLRiskDangerous, result.RiskCategory)
	assert.True(t, result.IsPhishing)

	rec = env.do(t, http.MethodPost, "/api/v1/url/analyze", map[string]string{"url": "ftp://files.example.com"}, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.Equal(t, models.URLRecommendBlock, result.Recommendation)

	first := env.do(t, http.MethodPost, "/api/v1/url/analyze", map[string]string{"url": "https://google.com"}, env.authed())
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := env.do(t, http.MethodPost, "/api/v1/url/analyze", map[string]string{"url": "https://google.com"}, env.authed())
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/url/analyze", map[string]string{"url": "  "}, env.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/url/analyze", "{not json", env.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", errorMessage(t, rec))
}

func TestTransactionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/profile", nil, env.authed())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/transactions/analyze",
		map[string]any{"amount": 0, "receiver_upi": "shop@okaxis", "hour": 10}, env.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "amount")

	rec = env.do(t, http.MethodPost, "/api/v1/transactions/analyze",
		map[string]any{"amount": 120, "receiver_upi": "shop@okaxis", "hour": 24}, env.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/transactions/analyze",
		map[string]any{"amount": 60000, "receiver_upi": "lucky.winner@ybl", "hour": 2}, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.TransactionAnalysisResult
	decode(t, rec, &result)
	assert.Equal(t, models.RiskLevelCritical, result.RiskLevel)
	assert.True(t, result.BehaviorFlags.SuspiciousKeywords)
	assert.True(t, result.BehaviorFlags.TimeAnomaly)

	rec = env.do(t, http.MethodGet, "/api/v1/profile", nil, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.BehaviorProfile
	decode(t, rec, &profile)
	assert.Equal(t, 1, profile.TransactionCount)
	assert.Equal(t, []int{2}, profile.TypicalTransactionHours)

	rec = env.do(t, http.MethodPost, "/api/v1/transactions",
		map[string]any{"amount": 60000, "receiver_upi": "lucky.winner@ybl", "hour": 2, "risk_score": 1, "risk_level": "critical"}, env.authed())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/transactions?limit=5", nil, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Transactions []models.TransactionRecord `json:"transactions"`
		Count        int                        `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "lucky.winner@ybl", list.Transactions[0].ReceiverUPIID)
}

func TestTransactionAnalyze_DependencyUnavailable(t *testing.T) {
	env := newTestEnv(t, func(s *envSettings) {
		s.history = brokenHistory{}
		s.failClosed = false
	})

	rec := env.do(t, http.MethodPost, "/api/v1/transactions/analyze",
		map[string]any{"amount": 100, "receiver_upi": "shop@okaxis", "hour": 10}, env.authed())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestContactEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/contacts", map[string]string{"upi_id": "Ravi@OkAxis", "contact_name": "Ravi"}, env.authed())
	require.Equal(t, http.StatusCreated, rec.Code)
	var contact models.TrustedContact
	decode(t, rec, &contact)
	assert.Equal(t, "ravi@okaxis", contact.UPIID)

	rec = env.do(t, http.MethodPost, "/api/v1/contacts", map[string]string{"upi_id": "ravi"}, env.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/contacts", nil, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = env.do(t, http.MethodPatch, "/api/v1/contacts/"+contact.ID.String(), map[string]string{"status": "flagged"}, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &contact)
	assert.Equal(t, models.ContactFlagged, contact.Status)

	rec = env.do(t, http.MethodPatch, "/api/v1/contacts/not-a-uuid", map[string]string{"status": "flagged"}, env.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/contacts/"+uuid.NewString(), map[string]string{"status": "flagged"}, env.authed())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// a flagged payee raises the risk of paying them
	rec = env.do(t, http.MethodPost, "/api/v1/transactions/analyze",
		map[string]any{"amount": 100, "receiver_upi": "ravi@okaxis", "hour": 12}, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.TransactionAnalysisResult
	decode(t, rec, &result)
	assert.Equal(t, models.ContactFlagged, result.ContactStatus)
	assert.Equal(t, models.RiskLevelWarning, result.RiskLevel)
}

func TestBlacklistEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/blacklist/refund.desk@ybl", nil, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	var lookup handlers.LookupResponse
	decode(t, rec, &lookup)
	assert.False(t, lookup.IsBlacklisted)

	rec = env.do(t, http.MethodPost, "/api/v1/blacklist/report", map[string]string{"identifier": "refund.desk@ybl", "reason": "fake refund"}, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/blacklist/report", map[string]string{"identifier": "bad id@ybl"}, env.authed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/blacklist/Refund.Desk@ybl", nil, env.authed())
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &lookup)
	assert.True(t, lookup.IsBlacklisted)
	assert.Equal(t, "refund.desk@ybl", lookup.Identifier)
	require.NotNil(t, lookup.Entry)
	assert.Equal(t, 1, lookup.Entry.ReportedCount)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/blacklist", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/blacklist", nil, map[string]string{"X-Admin-Token": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/blacklist?limit=10", nil, map[string]string{"X-Admin-Token": testAdminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Entries []models.BlacklistEntry `json:"entries"`
		Count   int                     `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)
}

func TestAlertsDisabledWithoutHub(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/alerts/ws", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/alerts/ws?admin_token="+testAdminToken, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(s *envSettings) { s.limiter = denyAll{} })

	rec := env.do(t, http.MethodPost, "/api/v1/url/analyze", map[string]string{"url": "https://google.com"}, env.authed())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
