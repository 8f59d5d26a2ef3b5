package handlers

import (
	"net/http"
	"time"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
	"upiguard/pkg/logger"
)

// TransactionHandler serves payment risk analysis, history and profiles
type TransactionHandler struct {
	service *services.TransactionService
	logger  *logger.Logger
	now     func() time.Time
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(service *services.TransactionService, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		logger:  log.WithComponent("transaction-handler"),
		now:     time.Now,
	}
}

// AnalyzeRequest is the body of POST /api/v1/transactions/analyze. Hour
// defaults to the server's local hour.
type AnalyzeRequest struct {
	Amount      float64 `json:"amount"`
	ReceiverUPI string  `json:"receiver_upi"`
	Hour        *int    `json:"hour,omitempty"`
	DeviceID    string  `json:"device_id,omitempty"`
}

// Analyze handles POST /api/v1/transactions/analyze
func (h *TransactionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := models.TransactionInput{
		Amount:      req.Amount,
		ReceiverUPI: req.ReceiverUPI,
		Hour:        h.now().Hour(),
		DeviceID:    req.DeviceID,
	}
	if req.Hour != nil {
		input.Hour = *req.Hour
	}

	result, err := h.service.Analyze(r.Context(), uid, input)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to analyze transaction")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Record handles POST /api/v1/transactions
func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.RecordTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.service.Record(r.Context(), uid, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to record transaction")
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

// List handles GET /api/v1/transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	records, err := h.service.Recent(r.Context(), uid, queryInt(r, "limit", 0))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": records,
		"count":        len(records),
	})
}

// Profile handles GET /api/v1/profile
func (h *TransactionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), uid)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
