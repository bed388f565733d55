// Package server is the composition root of the HTTP API: it opens storage,
// builds services and handlers, and mounts them on one chi router.
//
//	config → Backend (sqlite | postgres | memory)
//	       → store.Manager, AuthService, Notifier
//	       → AuthHandler, InventoryHandler → /api
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/config"
	"github.com/sakif/stash/internal/handler"
	"github.com/sakif/stash/internal/metrics"
	"github.com/sakif/stash/internal/middleware"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/repository"
	"github.com/sakif/stash/internal/service"
	"github.com/sakif/stash/internal/store"
)

// Server owns the backend and closes it on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	backend repository.Backend
	metrics *metrics.Metrics
	queue   *notify.Queue // nil when the caller supplied the notifier
}

// New opens the configured backend and notifier and builds the router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	backend, err := OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}
	queue, err := NewNotifier(ctx, cfg.Notify.SES, logger)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	s, err := NewWithBackend(cfg, backend, queue, logger)
	if err != nil {
		queue.Stop()
		backend.Close()
		return nil, err
	}
	s.queue = queue
	return s, nil
}

// NewWithBackend builds the server around an already open backend.
func NewWithBackend(cfg *config.Config, backend repository.Backend, notifier notify.Notifier, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		backend: backend,
		metrics: metrics.New(),
	}
	if err := s.setupRoutes(notifier); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes(notifier notify.Notifier) error {
	secret := s.config.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		s.logger.Warn("auth.jwt_secret not set, using a random secret; sessions end on restart")
	}
	tokens, err := auth.NewTokenService(secret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if gh := s.config.Auth.GitHub; gh.Enabled() {
		callback := gh.CallbackURL
		if callback == "" {
			callback = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", s.config.Server.Port)
		}
		github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, callback)
	}

	authService := service.NewAuthService(s.backend, tokens, auth.NewPasswordService(), s.logger)
	owners := handler.NewOwners(
		store.NewManager(s.backend, s.logger),
		s.backend,
		s.backend,
		notifier,
		s.config.Auth.AllowGuest,
		s.logger,
	)
	authHandler := handler.NewAuthHandler(authService, tokens, github, s.config.Server.SecureCookies, s.logger)
	inventoryHandler := handler.NewInventoryHandler(owners, s.metrics, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.metrics.Middleware)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		authHandler.Routes(r)
		r.Group(func(r chi.Router) {
			if !s.config.Auth.AllowGuest {
				r.Use(auth.RequireAuth(tokens))
			}
			inventoryHandler.Routes(r)
		})
	})

	if dir := s.config.Server.StaticDir; dir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(dir)))
	}
	return nil
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests and closes the backend.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("storage", s.config.Storage.Driver),
			slog.Bool("allowGuest", s.config.Auth.AllowGuest),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	}

	drain := s.config.Server.ShutdownTimeout
	if drain <= 0 {
		drain = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Close flushes pending notifications and releases the backend.
func (s *Server) Close() error {
	if s.queue != nil {
		s.queue.Stop()
	}
	return s.backend.Close()
}
