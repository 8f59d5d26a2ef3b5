package handlers

import (
	"net/http"
	"strings"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
	"upiguard/pkg/logger"
)

// URLHandler serves phishing scans
type URLHandler struct {
	service *services.URLService
	logger  *logger.Logger
}

// NewURLHandler creates a new URL handler
func NewURLHandler(service *services.URLService, log *logger.Logger) *URLHandler {
	return &URLHandler{service: service, logger: log.WithComponent("url-handler")}
}

// Analyze handles POST /api/v1/url/analyze. A malformed URL is answered
// with a critical verdict, not an error.
func (h *URLHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.URLScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.service.Scan(r.Context(), req.URL)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to scan url")
		return
	}
	if result.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	respondJSON(w, http.StatusOK, result.Analysis)
}
