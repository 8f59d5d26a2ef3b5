package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"upiguard/internal/api/middleware"
	"upiguard/internal/domain/services"
	"upiguard/internal/grpc/healthcheck"
	"upiguard/internal/streaming"
	"upiguard/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Handlers holds all API handlers
type Handlers struct {
	Health       *HealthHandler
	URL          *URLHandler
	Transactions *TransactionHandler
	Contacts     *ContactHandler
	Blacklist    *BlacklistHandler
	Alerts       *AlertsHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	URLs         *services.URLService
	Transactions *services.TransactionService
	Contacts     *services.ContactService
	Blacklist    *services.BlacklistService
	Health       *healthcheck.Checker
	Hub          *streaming.WebSocketHub
	Version      string
	Logger       *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(deps.Health, deps.Version, deps.Logger),
		URL:          NewURLHandler(deps.URLs, deps.Logger),
		Transactions: NewTransactionHandler(deps.Transactions, deps.Logger),
		Contacts:     NewContactHandler(deps.Contacts, deps.Logger),
		Blacklist:    NewBlacklistHandler(deps.Blacklist, deps.Logger),
		Alerts:       NewAlertsHandler(deps.Hub),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes. Unexpected
// errors are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, action string) {
	switch {
	case errors.Is(err, services.ErrInvalidTransaction),
		errors.Is(err, services.ErrInvalidURL),
		errors.Is(err, services.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrDependencyUnavailable):
		log.WithError(err).Warn().Msg(action + ": dependency unavailable")
		respondError(w, http.StatusServiceUnavailable, "a required dependency is unavailable, try again later")
	default:
		log.WithError(err).Error().Msg(action)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// userID returns the caller set by middleware.RequireUser
func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, "missing "+middleware.HeaderUserID+" header")
	}
	return id, ok
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}
