// Package server wires handlers, middleware, and routes, and owns the HTTP
// server lifecycle.
//
// This is the composition root: every dependency is constructed and
// connected here, in one place. Handlers never touch the database, services
// never touch HTTP, and the sqlite package is referenced nowhere else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/comment-board/internal/auth"
	"github.com/sakif/comment-board/internal/handler"
	"github.com/sakif/comment-board/internal/middleware"
	sqliteRepo "github.com/sakif/comment-board/internal/repository/sqlite"
	"github.com/sakif/comment-board/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string // required — New fails without it

	// GitHub OAuth is optional: leave the client ID empty and the
	// /auth/github routes are not registered.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph.
//
// The signing secret is mandatory: a process that cannot issue or verify
// tokens must not come up at all, so a missing or short JWT_SECRET is a
// construction error, not a warning.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens)

	return s, nil
}

func (s *Server) setupRoutes(tokens *auth.TokenService) {
	// Global middleware, in order: request ID for tracing, real client IP
	// behind proxies, our slog request logger, panic recovery.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// Stores implement the repository interfaces; services receive the
	// interfaces, handlers receive the services.
	users := s.db.Users()
	comments := s.db.Comments()
	passwords := auth.NewPasswordService()
	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	commentService := service.NewCommentService(comments, users, s.logger)

	userHandler := handler.NewUserHandler(authService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/register", userHandler.HandleRegister)
		r.Post("/login", userHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/users", userHandler.HandleListUsers)
		})
	})

	s.router.Route("/comments", func(r chi.Router) {
		// Reads and creation are public; creation picks up the caller's
		// identity from the token when one is presented.
		r.With(auth.OptionalAuth(tokens)).Post("/", commentHandler.HandleCreate)
		r.Get("/", commentHandler.HandleList)
		r.Get("/{id}", commentHandler.HandleGetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Patch("/{id}", commentHandler.HandleUpdate)
			r.Delete("/{id}", commentHandler.HandleDelete)
			r.Post("/{id}/like", commentHandler.HandleLike)
		})
	})

	if s.config.GitHubClientID != "" {
		github := auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
		oauthHandler := handler.NewOAuthHandler(github, authService, s.logger)

		s.router.Route("/auth/github", func(r chi.Router) {
			r.Get("/login", oauthHandler.HandleLogin)
			r.Get("/callback", oauthHandler.HandleCallback)
		})
	} else {
		s.logger.Info("GitHub OAuth not configured — /auth/github routes disabled")
	}
}

// Handler exposes the router, mainly for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
