// Package server wires the dependency graph and runs the HTTP server.
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

	"github.com/1525164075/code-spark-snippets/internal/auth"
	"github.com/1525164075/code-spark-snippets/internal/config"
	"github.com/1525164075/code-spark-snippets/internal/handler"
	"github.com/1525164075/code-spark-snippets/internal/metrics"
	"github.com/1525164075/code-spark-snippets/internal/middleware"
	"github.com/1525164075/code-spark-snippets/internal/repository"
	mongoRepo "github.com/1525164075/code-spark-snippets/internal/repository/mongo"
	sqliteRepo "github.com/1525164075/code-spark-snippets/internal/repository/sqlite"
	"github.com/1525164075/code-spark-snippets/internal/secret"
	"github.com/1525164075/code-spark-snippets/internal/service"
)

// Server owns the router and the storage connections. Both are closed on
// shutdown.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	mongoDB *mongoRepo.Store
}

// New builds the full dependency graph. The SQLite database always opens:
// accounts live there even when snippets are stored in MongoDB.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	var snippetRepo repository.SnippetRepository = db
	if cfg.StoreBackend == "mongo" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		store, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		s.mongoDB = store
		snippetRepo = store
	}

	if err := s.setupRoutes(snippetRepo); err != nil {
		s.closeStores()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes(snippetRepo repository.SnippetRepository) error {
	m := metrics.New()

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(m.Middleware)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordServiceWithCost(s.cfg.BcryptCost)
	secrets := secret.NewManagerWithCost(s.cfg.BcryptCost)
	clock := service.SystemClock{}

	snippetService := service.NewSnippetService(snippetRepo, secrets, clock, s.logger)
	gate := service.NewAccessGate(snippetRepo, secrets, clock, s.logger)
	accounts := service.NewAuthService(s.db, tokens, passwords, s.logger)

	var github *auth.GitHubProvider
	if s.cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
	}

	snippetHandler := handler.NewSnippetHandler(snippetService, gate, m, s.logger)
	authHandler := handler.NewAuthHandler(accounts, github, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	s.router.Method(http.MethodGet, "/metrics", m.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleListPublic)
			r.Get("/secret", snippetHandler.HandleGenerateSecret)
			r.With(auth.RequireAuth(tokens)).Get("/mine", snippetHandler.HandleListMine)
			r.With(auth.OptionalAuth(tokens)).Post("/", snippetHandler.HandleCreate)
			r.With(auth.OptionalAuth(tokens)).Get("/{id}", snippetHandler.HandleGet)
			r.With(auth.OptionalAuth(tokens)).Post("/{id}/verify", snippetHandler.HandleVerify)
			r.With(auth.RequireAuth(tokens)).Delete("/{id}", snippetHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the server until a signal or a fatal listener error, then shuts
// down gracefully.
func (s *Server) Start() error {
	defer s.closeStores()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
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
			slog.String("addr", s.cfg.Addr),
			slog.String("store", s.cfg.StoreBackend),
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

func (s *Server) closeStores() {
	if s.mongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.mongoDB.Close(ctx); err != nil {
			s.logger.Warn("closing mongo store", slog.String("error", err.Error()))
		}
		cancel()
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
