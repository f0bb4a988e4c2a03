package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yndnr/boardmesh-go/internal/export"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

// handleListBoards handles GET /api/v1/boards.
func (h *Handler) handleListBoards(w http.ResponseWriter, r *http.Request) {
	persisted, err := h.registry.Persisted()
	if err != nil {
		logger.L(r.Context()).Warn("listing snapshots failed", "error", err)
	}
	if persisted == nil {
		persisted = []snapshot.Info{}
	}
	for i := range persisted {
		persisted[i].Path = ""
	}

	h.writeJSON(w, r, http.StatusOK, ListBoardsResponse{
		Resident:  nonNil(h.registry.Stats()),
		Persisted: persisted,
	})
}

// handleGetBoard handles GET /api/v1/boards/{board}.
func (h *Handler) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.BoardStats(r.Context(), r.PathValue("board"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}

// handleDownload handles GET /download/{board}: the board as stored, an
// id to element mapping.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("board")
	b, err := h.registry.Lookup(r.Context(), name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	data, err := snapshot.Encode(b.Store().Snapshot())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment(name+".json"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// handleExportPDF handles GET /export/{board}/pdf.
func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("board")
	b, err := h.registry.Lookup(r.Context(), name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	opts := export.DefaultPDFOptions()
	opts.Title = name
	if o := r.URL.Query().Get("orientation"); o == "P" || o == "L" {
		opts.Orientation = o
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, b.Elements(), opts); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment(name+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
