// SPDX-License-Identifier: MIT

// Package api implements the HTTP surface: probe, download and stream
// endpoints behind API-key auth, plus health and readiness.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/vgrab/vgrab/internal/api/middleware"
	"github.com/vgrab/vgrab/internal/auth"
	"github.com/vgrab/vgrab/internal/config"
	"github.com/vgrab/vgrab/internal/fallback"
	"github.com/vgrab/vgrab/internal/health"
	"github.com/vgrab/vgrab/internal/log"
	"github.com/vgrab/vgrab/internal/store"
)

var (
	authFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vgrab",
		Name:      "auth_failures_total",
		Help:      "Requests rejected for a missing or mismatched API key",
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vgrab",
		Name:      "download_bytes_total",
		Help:      "Bytes of fetched media streamed to clients",
	})
)

// Server wires the extraction controller and the download store into HTTP
// handlers.
type Server struct {
	cfg      config.AppConfig
	ctrl     *fallback.Controller
	store    *store.Store
	health   *health.Manager
	fetchSem *semaphore.Weighted
	logger   zerolog.Logger
}

// New creates a Server. The semaphore bounds concurrent fetches to the
// configured worker count; probes are cheap and stay unbounded.
func New(cfg config.AppConfig, ctrl *fallback.Controller, st *store.Store, hm *health.Manager) *Server {
	return &Server{
		cfg:      cfg,
		ctrl:     ctrl,
		store:    st,
		health:   hm,
		fetchSem: semaphore.NewWeighted(int64(cfg.WorkerCount)),
		logger:   log.WithComponent("api"),
	}
}

// Routes builds the router with the canonical middleware stack applied.
func (s *Server) Routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TraceService,
		EnableLogging:         true,
	})

	r.Get("/health", s.handleHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.APIRateLimit(s.cfg.RateLimitPerMinute))
		}
		r.Post("/info", s.handleInfo)
		r.Post("/download", s.handleDownload)
		r.Post("/stream", s.handleStream)
	})

	return r
}

// requireAPIKey rejects requests without the expected key. The comparison is
// constant-time; the response never says which part mismatched.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.AuthorizeRequest(r, s.cfg.APIKey) {
			authFailuresTotal.Inc()
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Warn().
				Str("remote_addr", r.RemoteAddr).
				Str("path", r.URL.Path).
				Msg("rejected request with invalid API key")
			writeError(w, http.StatusUnauthorized, errorResponse{
				Error:   "Unauthorized",
				Message: "A valid " + auth.HeaderAPIKey + " header is required.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
