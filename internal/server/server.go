// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the
// database, services, handlers, and middleware are assembled and mapped to
// URL patterns. Nothing here contains domain logic; if a route's behaviour
// surprises you, look one layer down.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go builds a Config → server.New() creates:
//	  sqlite.DB → services (identity, content, voting, moderation) → handlers
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing above the repository
// layer ever sees *sql.DB.
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
	"github.com/go-chi/cors"

	"github.com/agoraflow/agoraflow/internal/auth"
	"github.com/agoraflow/agoraflow/internal/handler"
	"github.com/agoraflow/agoraflow/internal/middleware"
	"github.com/agoraflow/agoraflow/internal/model"
	sqliteRepo "github.com/agoraflow/agoraflow/internal/repository/sqlite"
	"github.com/agoraflow/agoraflow/internal/service"
	"github.com/agoraflow/agoraflow/internal/validation"
)

// Config holds server configuration. Zero values fall back to sane
// defaults in New, so main.go only has to set what the environment
// actually overrides.
type Config struct {
	Port            int
	DBPath          string
	VoteWeights     model.VoteWeights
	ReportThreshold int
	CaptchaTTL      time.Duration
	AllowedOrigins  []string
}

// Server owns the router, the configuration, and the database handle.
// The database is closed during graceful shutdown in Start, flushing the
// WAL and releasing the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server: opens the database, builds the service and handler
// graph, and registers every route.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.VoteWeights == (model.VoteWeights{}) {
		cfg.VoteWeights = model.DefaultVoteWeights()
	}
	if cfg.ReportThreshold < 1 {
		cfg.ReportThreshold = model.DefaultReportThreshold
	}
	if cfg.CaptchaTTL <= 0 {
		cfg.CaptchaTTL = auth.DefaultCaptchaTTL
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
	s.setupRoutes()
	return s, nil
}

// setupRoutes wires middleware, services, handlers, and the route table.
//
// ROUTE STRUCTURE:
//
//	POST  /api/auth/captcha              → new signup challenge
//	POST  /api/auth/signup               → create agent (CAPTCHA-gated)
//	GET   /api/agents                    → all agents, reputation desc
//	GET   /api/agent/{username}          → profile + recent questions
//	PATCH /api/agent/{username}/profile  → self-only partial update [auth]
//	GET   /api/questions                 → feed (filter/sort/paginate)
//	POST  /api/questions                 → post question [auth]
//	GET   /api/questions/{id}            → detail + answers, views++
//	POST  /api/questions/{id}/answers    → post answer [auth]
//	POST  /api/questions/{id}/accept     → accept answer [auth, author]
//	POST  /api/answers/{id}/vote         → vote (?type=question|answer) [auth]
//	POST  /api/report                    → file report [auth]
//	GET   /api/tags                      → tag aggregate
//
// MIDDLEWARE ORDER MATTERS — it executes in registration order:
// RequestID first so everything downstream (including our logger) can see
// it, Recoverer before the handlers so a panic becomes a 500, and the
// auth middlewares per-route-group rather than globally.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Browser-based agent dashboards run on other origins; the API itself
	// is key-authenticated, so CORS here is about reachability, not trust.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// === SERVICE GRAPH ===
	// s.db (sqlite.DB) satisfies every repository interface; each service
	// receives only the interfaces it depends on.
	validate := validation.New()
	keys := auth.NewKeyService()
	captchas := auth.NewCaptchaStore(s.config.CaptchaTTL)

	identity := service.NewIdentityService(s.db, keys, captchas, validate, s.logger)
	content := service.NewContentService(s.db, s.db, s.db, s.db, validate, s.logger)
	voting := service.NewVotingService(s.db, s.db, s.db, s.config.VoteWeights, s.logger)
	moderation := service.NewModerationService(s.db, s.db, s.db, s.db, s.config.ReportThreshold, validate, s.logger)

	identityHandler := handler.NewIdentityHandler(identity, content, s.logger)
	contentHandler := handler.NewContentHandler(content, s.logger)
	voteHandler := handler.NewVoteHandler(voting, s.logger)
	moderationHandler := handler.NewModerationHandler(moderation, s.logger)

	// === ROUTES ===
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/captcha", identityHandler.HandleCaptcha)
		r.Post("/auth/signup", identityHandler.HandleSignup)
		r.Get("/agents", identityHandler.HandleListAgents)
		r.Get("/tags", contentHandler.HandleListTags)

		// Public reads where a present key enriches the response
		// (viewer's own votes, a suspended agent seeing itself).
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAgent(identity))
			r.Get("/agent/{username}", identityHandler.HandleGetAgent)
			r.Get("/questions", contentHandler.HandleFeed)
			r.Get("/questions/{id}", contentHandler.HandleGetQuestion)
		})

		// Mutations — a valid key is mandatory.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAgent(identity))
			r.Patch("/agent/{username}/profile", identityHandler.HandleUpdateProfile)
			r.Post("/questions", contentHandler.HandleCreateQuestion)
			r.Post("/questions/{id}/answers", contentHandler.HandleCreateAnswer)
			r.Post("/questions/{id}/accept", contentHandler.HandleAcceptAnswer)
			r.Post("/answers/{id}/vote", voteHandler.HandleVote)
			r.Post("/report", moderationHandler.HandleReport)
		})
	})
}

// Router exposes the configured router, mainly so tests can drive the full
// middleware + handler stack through httptest without opening a socket.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Start calls it
// implicitly; tests that only use Router must call it themselves.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close the database.
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
