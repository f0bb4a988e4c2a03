package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/boardmesh-go/internal/server/config"
)

// handleGetConfig handles GET /api/v1/config.
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, config.Sanitize(h.config()))
}

// handleClientConfig handles GET /config.json.
func (h *Handler) handleClientConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.config()
	blocked := h.registry.BlockedTools()
	if blocked == nil {
		blocked = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(ClientConfig{
		MaxEmitCount:       cfg.Board.MaxEmitCount,
		MaxEmitCountPeriod: cfg.Board.MaxEmitCountPeriod.Milliseconds(),
		MaxBoardSize:       cfg.Board.MaxBoardSize,
		MaxChildren:        cfg.Board.MaxChildren,
		BlockedTools:       blocked,
		AutoFingerWhiteout: cfg.Board.AutoFingerWhiteout,
	})
}
