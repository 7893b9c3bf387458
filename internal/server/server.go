// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is built here and handed
// down, so no other package constructs its own collaborators.
//
//	config.Config → store (sqlite | postgres) → services → handlers → chi routes
//
// Each layer only receives what it needs. Services get repository
// interfaces, never a concrete database; handlers get services.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/config"
	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/media"
	"github.com/sakif/inkwell/internal/middleware"
	"github.com/sakif/inkwell/internal/repository"
	"github.com/sakif/inkwell/internal/repository/postgres"
	sqliteRepo "github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the store, wires every layer and registers the routes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the storage backend. Both run their migrations on open.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			// like `mkdir -p`
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(ctx, cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.store.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /health
//	GET    /api/login, /api/login/{provider}   → provider redirect
//	GET    /api/callback/{provider}            → session cookie, redirect to /
//	GET    /api/logout, POST /api/logout       → clear cookie, redirect to /
//	GET    /api/auth/providers
//	GET    /api/auth/user                      [auth]
//	GET    /api/blogs, /api/blogs/{id}
//	POST   /api/blogs                          [auth]
//	PUT    /api/blogs/{id}                     [auth, author]
//	DELETE /api/blogs/{id}                     [auth, author]
//	POST   /api/blogs/{id}/like                [auth]
//	GET    /api/users/{id}, /api/users/{id}/blogs
//	PUT    /api/users/{id}                     [auth, self]
//	GET    /api/tags
//	POST   /api/media/presign, /api/media/avatar  [auth, only with S3]
//	GET    /*                                  → frontend (only with STATIC_DIR)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the request logger can print the id; Recoverer
// sits inside the logger so a panic is still logged as a 500.
func (s *Server) setupRoutes(ctx context.Context) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Auth ===
	secret := s.config.JWTSecret
	if secret == "" {
		secret = rand.Text()
		s.logger.Warn("JWT_SECRET not set, using a random secret: sessions end on restart")
	}
	tokens, err := auth.NewTokenService(secret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	providers := s.providers()
	if len(providers.Names()) == 0 {
		s.logger.Warn("no OAuth provider configured, login is disabled")
	}

	// === Services ===
	blogService := service.NewBlogService(s.store, s.logger)
	userService := service.NewUserService(s.store, s.logger)
	authService := service.NewAuthService(s.store, tokens, s.logger)

	// === Handlers ===
	blogHandler := handler.NewBlogHandler(blogService, s.logger)
	userHandler := handler.NewUserHandler(userService, blogService, s.logger)
	authHandler := handler.NewAuthHandler(providers, authService, s.config.CookieSecure, s.logger)

	var mediaHandler *handler.MediaHandler
	if s.config.S3.Bucket != "" {
		store, err := media.New(ctx, media.Config(s.config.S3))
		if err != nil {
			return fmt.Errorf("creating media store: %w", err)
		}
		mediaHandler = handler.NewMediaHandler(store, userService, s.logger)
	}

	s.router.Get("/health", handler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/login/{provider}", authHandler.HandleLogin)
		r.Get("/callback/{provider}", authHandler.HandleCallback)
		r.Get("/logout", authHandler.HandleLogout)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/auth/providers", authHandler.HandleProviders)

		r.Get("/blogs", blogHandler.HandleList)
		r.Get("/blogs/{id}", blogHandler.HandleGet)
		r.Get("/tags", blogHandler.HandleTags)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Get("/users/{id}/blogs", userHandler.HandleListBlogs)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/user", authHandler.HandleMe)
			r.Post("/blogs", blogHandler.HandleCreate)
			r.Put("/blogs/{id}", blogHandler.HandleUpdate)
			r.Delete("/blogs/{id}", blogHandler.HandleDelete)
			r.Post("/blogs/{id}/like", blogHandler.HandleLike)
			r.Put("/users/{id}", userHandler.HandleUpdate)

			if mediaHandler != nil {
				r.Post("/media/presign", mediaHandler.HandlePresign)
				r.Post("/media/avatar", mediaHandler.HandleAvatar)
			}
		})

		r.NotFound(handler.HandleAPINotFound)
	})

	// === Frontend ===
	if s.config.StaticDir != "" {
		spa, err := handler.NewSPAHandler(s.config.StaticDir, s.logger)
		if err != nil {
			return fmt.Errorf("creating frontend handler: %w", err)
		}
		s.router.Handle("/*", spa)
	}

	return nil
}

// providers builds the identity providers that have credentials, GitHub
// first so it is the default for /api/login.
func (s *Server) providers() *auth.Providers {
	var list []auth.Provider
	if gh := s.config.GitHub; gh.Enabled() {
		list = append(list, auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL))
	}
	if g := s.config.Google; g.Enabled() {
		list = append(list, auth.NewGoogleProvider(g.ClientID, g.ClientSecret, g.CallbackURL))
	}
	return auth.NewProviders(list...)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close the database (flushes the sqlite WAL, drains the postgres pool)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
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
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.String("driver", s.config.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
