package handlers

import (
	"net/http"
	"time"

	"upiguard/internal/grpc/healthcheck"
	"upiguard/pkg/logger"
)

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	checker   *healthcheck.Checker
	version   string
	logger    *logger.Logger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. checker may be nil.
func NewHealthHandler(checker *healthcheck.Checker, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		version:   version,
		logger:    log.WithComponent("health"),
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) response(status string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.response("healthy"))
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := h.response("ready")
	status := http.StatusOK

	if h.checker != nil {
		resp.Checks = make(map[string]string)
		for name, err := range h.checker.Check(r.Context()) {
			if err != nil {
				resp.Checks[name] = "unhealthy: " + err.Error()
				resp.Status = "not ready"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "healthy"
		}
	}

	respondJSON(w, status, resp)
}
