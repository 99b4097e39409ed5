// Package web provides the HTTP API for employee records.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/JonMunkholm/records/internal/config"
	"github.com/JonMunkholm/records/internal/core"
	"github.com/JonMunkholm/records/internal/metrics"
	appmw "github.com/JonMunkholm/records/internal/web/middleware"
)

// Server is the HTTP server for the records API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	limiter *UploadLimiter
	metrics *metrics.Metrics
	router  *chi.Mux
	server  *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		limiter: NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}

	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         s.cfg.CORS.MaxAge,
	}).Handler)

	s.router.Use(securityHeaders)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	if s.cfg.Rate.Enabled {
		s.router.Use(newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
	s.mountDocs()

	uploads := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		uploads = newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware
	}

	s.router.Route("/record", func(r chi.Router) {
		r.Get("/", s.handleListRecords)
		r.Post("/", s.handleCreateRecord)

		// Spreadsheet ingestion
		r.With(uploads).Post("/bulk-upload", s.handleBulkUpload)
		r.With(uploads).Post("/bulk-upload/preview", s.handlePreview)
		r.Get("/bulk-upload/template", s.handleTemplate)

		r.Post("/bulk-delete", s.handleBulkDelete)

		r.Get("/{id}", s.handleGetRecord)
		r.Patch("/{id}", s.handleUpdateRecord)
		r.Delete("/{id}", s.handleDeleteRecord)
	})
}

// Start listens for HTTP requests until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight uploads.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for uploads to finish", "active", active)
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports whether the record store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uploads": s.limiter.Status(),
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
