package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
	"upiguard/pkg/logger"
)

// ContactHandler serves the user's saved payees
type ContactHandler struct {
	service *services.ContactService
	logger  *logger.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(service *services.ContactService, log *logger.Logger) *ContactHandler {
	return &ContactHandler{service: service, logger: log.WithComponent("contact-handler")}
}

// List handles GET /api/v1/contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	contacts, err := h.service.List(r.Context(), uid)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list contacts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"contacts": contacts,
		"count":    len(contacts),
	})
}

// Add handles POST /api/v1/contacts
func (h *ContactHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.AddContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contact, err := h.service.Add(r.Context(), uid, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to add contact")
		return
	}
	respondJSON(w, http.StatusCreated, contact)
}

// UpdateStatus handles PATCH /api/v1/contacts/{id}
func (h *ContactHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	contactID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contact id")
		return
	}
	var req models.UpdateContactStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contact, err := h.service.UpdateStatus(r.Context(), uid, contactID, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update contact")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}
