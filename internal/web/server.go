// Package web provides the HTTP API of the report service.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/gradereports/internal/config"
	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/web/middleware"
)

// RenderStatus reports browser slot usage for the health endpoint.
type RenderStatus interface {
	Status() core.RenderLimiterStatus
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators the handlers call.
type Dependencies struct {
	Reports    *core.Service
	Authorizer core.Authorizer // nil skips the entitlement check
	History    core.HistoryStore
	Schedules  core.ScheduleStore
	Render     RenderStatus

	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]HealthCheck

	// APILimiter and GenerateLimiter are nil when rate limiting is disabled.
	APILimiter      middleware.Limiter
	GenerateLimiter middleware.Limiter
}

// Server is the HTTP server for the report API.
type Server struct {
	deps   Dependencies
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server and mounts every route.
func NewServer(deps Dependencies, cfg *config.Config) *Server {
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.BearerAuth(&s.cfg.Security))
		r.Use(middleware.CaptureFaculty)
		if s.deps.APILimiter != nil {
			r.Use(middleware.RateLimit(s.deps.APILimiter, "api", time.Minute))
		}

		// Generation streams for as long as the artifact takes, so it gets
		// its own bound instead of the request timeout.
		r.Group(func(r chi.Router) {
			if s.deps.GenerateLimiter != nil {
				r.Use(middleware.RateLimit(s.deps.GenerateLimiter, "generate", time.Minute))
			}
			r.Post("/reports/generate", s.handleGenerate)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			// Report history
			r.Get("/reports", s.handleListReports)
			r.Delete("/reports/{id}", s.handleDeleteReport)

			// Schedules
			r.Post("/reports/schedule", s.handleCreateSchedule)
			r.Get("/reports/scheduled", s.handleListSchedules)
			r.Delete("/reports/scheduled/{id}", s.handleDeleteSchedule)

			// Catalogs
			r.Get("/reports/columns", s.handleListColumns)
			r.Get("/grade-scale", s.handleGradeScale)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Artifacts are downloads, never pages
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}
