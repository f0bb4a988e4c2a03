package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/server/config"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

// Options configures a Handler.
type Options struct {
	Registry *service.Registry
	// Config returns the current server configuration. It is called per
	// request so that reloaded settings show up.
	Config  func() *config.ServerConfig
	Metrics *metric.Registry
	Logger  *slog.Logger

	Socket SocketConfig
	Now    func() time.Time
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	registry *service.Registry
	config   func() *config.ServerConfig
	metrics  *metric.Registry
	logger   *slog.Logger
	now      func() time.Time

	socket   SocketConfig
	upgrader websocket.Upgrader
	sockets  *socketSet

	ready atomic.Bool
	mux   *http.ServeMux
}

// New creates a Handler and registers its routes.
func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metric.Global()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Config == nil {
		cfg := config.Default()
		opts.Config = func() *config.ServerConfig { return cfg }
	}

	h := &Handler{
		registry: opts.Registry,
		config:   opts.Config,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
		socket:   opts.Socket.withDefaults(),
		sockets:  newSocketSet(),
		mux:      http.NewServeMux(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  h.socket.BufferSize,
		WriteBufferSize: h.socket.BufferSize,
		// Boards are open to any page that knows the URL.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	h.ready.Store(true)

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetReady controls the /ready answer. The server marks itself unready
// before shutting down.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.Handle("GET /metrics", h.metrics.Handler())

	h.mux.HandleFunc("GET /ws", h.handleSocket)

	h.mux.HandleFunc("GET /api/v1/boards", h.handleListBoards)
	h.mux.HandleFunc("GET /api/v1/boards/{board}", h.handleGetBoard)
	h.mux.HandleFunc("GET /api/v1/config", h.handleGetConfig)

	h.mux.HandleFunc("GET /download/{board}", h.handleDownload)
	h.mux.HandleFunc("GET /export/{board}/pdf", h.handleExportPDF)
	h.mux.HandleFunc("GET /config.json", h.handleClientConfig)

	if root := h.config().Web.Root; root != "" {
		if st, err := os.Stat(root); err == nil && st.IsDir() {
			h.mux.Handle("GET /", http.FileServer(http.Dir(root)))
		} else {
			h.logger.Info("static files disabled, web root not found", "path", root)
		}
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(getRequestID(r), data)
	response.Timestamp = h.now().UnixMilli()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	response := NewErrorResponse(getRequestID(r), code, message, details)
	response.Timestamp = h.now().UnixMilli()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID returns the id set by the RequestID middleware.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := errorCodeToHTTPStatus(de.Code)
		h.writeError(w, r, status, de.Code, de.Error(), nil)
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError,
		domain.ErrInternalServer.Code, domain.ErrInternalServer.Message, nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes. The first
// digit of the numeric part is the status class.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.Contains(code, "-4"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
