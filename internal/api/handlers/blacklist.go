package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
	"upiguard/pkg/logger"
)

// BlacklistHandler serves blacklist lookups and community reports
type BlacklistHandler struct {
	service *services.BlacklistService
	logger  *logger.Logger
}

// NewBlacklistHandler creates a new blacklist handler
func NewBlacklistHandler(service *services.BlacklistService, log *logger.Logger) *BlacklistHandler {
	return &BlacklistHandler{service: service, logger: log.WithComponent("blacklist-handler")}
}

// LookupResponse is returned by GET /api/v1/blacklist/{identifier}
type LookupResponse struct {
	Identifier    string                 `json:"identifier"`
	IsBlacklisted bool                   `json:"is_blacklisted"`
	Entry         *models.BlacklistEntry `json:"entry,omitempty"`
}

// Lookup handles GET /api/v1/blacklist/{identifier}
func (h *BlacklistHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	identifier, err := url.PathUnescape(chi.URLParam(r, "identifier"))
	if err != nil || identifier == "" {
		respondError(w, http.StatusBadRequest, "invalid identifier")
		return
	}

	entry, err := h.service.Lookup(r.Context(), identifier)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to look up blacklist")
		return
	}
	respondJSON(w, http.StatusOK, LookupResponse{
		Identifier:    models.NormalizeIdentifier(identifier),
		IsBlacklisted: entry != nil,
		Entry:         entry,
	})
}

// Report handles POST /api/v1/blacklist/report
func (h *BlacklistHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.BlacklistReport
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.service.Report(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to record report")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// List handles GET /api/v1/admin/blacklist
func (h *BlacklistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list blacklist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
