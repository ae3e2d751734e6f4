// Package server exposes the admin HTTP API: authentication, record CRUD,
// trash/untrash, snapshots, and the create-shadow action.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/app"
	"github.com/redline-cms/redline/internal/web/auth"
	"github.com/redline-cms/redline/internal/web/cache"
	"github.com/redline-cms/redline/internal/web/ratelimit"
)

// Config holds server configuration.
type Config struct {
	Addr string
	// AdminUser and AdminPasswordHash authenticate the login endpoint.
	AdminUser         string
	AdminPasswordHash string
	// AdminRoles are granted to the admin user's tokens.
	AdminRoles []string
	// LoginLimiter throttles login attempts per client address. Defaults to
	// an in-memory token bucket of 10 attempts per minute.
	LoginLimiter ratelimit.Limiter
}

// Server is the admin HTTP server.
type Server struct {
	cfg     Config
	app     *app.App
	tokens  *auth.TokenService
	cache   cache.Cache
	limiter ratelimit.Limiter
	logger  *zap.Logger
	router  chi.Router
	http    *http.Server
}

// New creates the server and mounts all routes. The cache may be nil to
// disable listing caching.
func New(cfg Config, application *app.App, tokens *auth.TokenService, listCache cache.Cache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := cfg.LoginLimiter
	if limiter == nil {
		limiter = ratelimit.NewMemory(10, time.Minute)
	}
	s := &Server{
		cfg:     cfg,
		app:     application,
		tokens:  tokens,
		cache:   listCache,
		limiter: limiter,
		logger:  logger,
	}
	if listCache != nil {
		cache.BindInvalidation(application.Bus, listCache, logger)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Post("/auth/login", s.handleLogin)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/records", s.handleListRecords)
		r.Post("/records", s.handleCreateRecord)
		r.Route("/records/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRecord)
			r.Put("/", s.handleUpdateRecord)
			r.Delete("/", s.handleDeleteRecord)
			r.Post("/trash", s.handleTrashRecord)
			r.Post("/untrash", s.handleUntrashRecord)
			r.Get("/shadow", s.handleCreateShadow)
			r.Get("/snapshots", s.handleListSnapshots)
		})
		r.Post("/snapshots/{id}/restore", s.handleRestoreSnapshot)
	})

	s.router = r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.logger.Info("admin server listening", zap.String("addr", s.cfg.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
