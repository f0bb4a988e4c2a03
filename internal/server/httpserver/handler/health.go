package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable.WithDetails("shutting down"))
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ready",
		"sockets": h.sockets.len(),
		"time":    h.now().UTC().Format(time.RFC3339),
	})
}
