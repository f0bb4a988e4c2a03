package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metric.Registry

	// RateLimit is the per-IP request rate; zero disables it.
	RateLimit float64
	RateBurst int

	// EnableAudit logs every request.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit:   50,
		RateBurst:   100,
		EnableAudit: true,
	}
}

// NewRouter wraps the route handler h in the middleware chain.
// Order: RequestID -> Recover -> Metrics -> Audit -> RateLimit -> h.
func NewRouter(h http.Handler, cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	middlewares := []Middleware{RequestID(), Recover(log)}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, Metrics(cfg.Metrics))
	}
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(log))
	}
	middlewares = append(middlewares, RateLimit(RateLimiterConfig{
		Rate:  cfg.RateLimit,
		Burst: cfg.RateBurst,
	}))

	return Chain(h, middlewares...)
}
