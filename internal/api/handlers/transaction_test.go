package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upiguard/internal/api/middleware"
	"upiguard/internal/domain/services"
	"upiguard/internal/infrastructure/memory"
	"upiguard/pkg/logger"
)

func TestAnalyze_HourDefaultsToServerClock(t *testing.T) {
	log := logger.NewNop()
	store := memory.NewStore()
	blacklist := services.NewBlacklistService(store, nil, nil, nil, time.Hour, log)
	svc := services.NewTransactionService(services.NewTransactionAnalyzer(), blacklist, store, store, store, nil,
		services.TransactionBreakers{}, services.TransactionServiceConfig{FailClosed: true}, log)

	h := NewTransactionHandler(svc, log)
	h.now = func() time.Time { return time.Date(2026, 5, 4, 3, 15, 0, 0, time.Local) }

	uid := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/analyze",
		strings.NewReader(`{"amount": 250, "receiver_upi": "chai.stall@okhdfc"}`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyUserID, uid))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unusual late-night transaction at 03:00")

	profile, err := svc.Profile(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, profile.TypicalTransactionHours)
}

func TestAnalyze_RequiresUser(t *testing.T) {
	h := NewTransactionHandler(nil, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/analyze", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
