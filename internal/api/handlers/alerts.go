package handlers

import (
	"net/http"

	"upiguard/internal/streaming"
)

// AlertsHandler streams fraud events to admin consoles
type AlertsHandler struct {
	hub *streaming.WebSocketHub
}

// NewAlertsHandler creates a new alerts handler. hub may be nil.
func NewAlertsHandler(hub *streaming.WebSocketHub) *AlertsHandler {
	return &AlertsHandler{hub: hub}
}

// Stream handles GET /api/v1/alerts/ws
func (h *AlertsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "alert streaming is disabled")
		return
	}
	h.hub.ServeWebSocket(w, r)
}
