// Package api provides the HTTP API server for the GitHub integration service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/apitest/gitbridge/internal/api/handlers"
	"github.com/apitest/gitbridge/internal/api/health"
	"github.com/apitest/gitbridge/internal/api/middleware"
	"github.com/apitest/gitbridge/internal/integrations/github"
	"github.com/apitest/gitbridge/internal/store"
	"github.com/apitest/gitbridge/pkg/config"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	githubClient  *github.Client
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, client *github.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:        st,
		githubClient: client,
		config:       cfg,
		logger:       logger,
	}

	s.healthChecker = health.NewChecker(st, Version)

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", s.healthChecker.Handler())

	githubHandler := handlers.NewGitHubHandler(s.githubClient, s.logger)
	watchHandler := handlers.NewWatchHandler(s.store, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.config.GitHub.WebhookSecret, s.logger)

	// OAuth entry points (no auth required)
	r.Get("/login", githubHandler.Login)
	r.Get("/login/oauth2/code/github", githubHandler.OAuthCallback)

	// Inbound webhook deliveries authenticate via signature, not bearer token
	r.Post("/webhook", webhookHandler.Receive)

	// Everything else requires the caller's GitHub OAuth token
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBearer)

		r.Get("/repositories", githubHandler.ListRepositories)
		r.Get("/repositories/{owner}/{repo}/branches", githubHandler.ListBranches)
		r.Post("/webhooks", githubHandler.CreateWebhook)

		r.Route("/polling/watch", func(r chi.Router) {
			r.Post("/", watchHandler.Create)
			r.Get("/", watchHandler.List)
			r.Get("/{watchID}", watchHandler.Get)
		})
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
