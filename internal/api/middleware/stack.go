// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/go-chi/chi/v5"

	vlog "github.com/vgrab/vgrab/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack. A single
// stack keeps cross-cutting concerns from drifting between routers.
type StackConfig struct {
	// Security headers
	EnableSecurityHeaders bool
	CSP                   string

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// Rate limiting (per IP, per minute); zero disables
	RateLimitPerMinute int
}

// NewRouter constructs a chi router with the canonical middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID (correlation early)
	r.Use(RequestID)
	// 3. Security headers
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP))
	}
	// 4. Metrics (track all requests)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	// 5. Tracing (distributed tracing with OpenTelemetry)
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	// 6. Logging (wraps handlers, captures full latency)
	if cfg.EnableLogging {
		r.Use(vlog.Middleware())
	}
	// 7. Rate limit (global protection)
	if cfg.RateLimitPerMinute > 0 {
		r.Use(APIRateLimit(cfg.RateLimitPerMinute))
	}
}
