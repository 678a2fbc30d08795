// Package httpserver provides the HTTP REST API of the hybrid paper service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/auth"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/normalize"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/query"
)

// PaperWriter is the dual-write surface used by the mutating endpoints.
type PaperWriter interface {
	CreatePaper(ctx context.Context, paper domain.Paper) (*domain.WriteResult, error)
	UpdatePaper(ctx context.Context, paperID string, update domain.PaperUpdate) (*domain.WriteResult, error)
	DeletePaper(ctx context.Context, paperID string) (*domain.WriteResult, error)
	BulkCreate(ctx context.Context, papers []domain.Paper) (*domain.BulkResult, error)
	SyncStatus(ctx context.Context) (domain.SyncStatus, error)
}

// HybridReader answers the endpoints that read both stores at once.
type HybridReader interface {
	PaperDetails(ctx context.Context, paperID string) (*normalize.HybridView, error)
	Search(ctx context.Context, q string, limit int) (*query.HybridSearchResult, error)
	AuthorNetwork(ctx context.Context, name string, limit int) (*query.AuthorNetwork, error)
	JournalAnalysis(ctx context.Context, journal string) (*query.JournalAnalysis, error)
}

// Accounts registers and signs in users.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Profile(ctx context.Context, userID int64) (*domain.User, error)
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Pinger reports whether a store connection is alive.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the collaborators of the HTTP server.
type Deps struct {
	Reads    *query.Dispatcher
	Hybrid   HybridReader
	Writes   PaperWriter
	Accounts Accounts
	Tokens   TokenVerifier
	// Stores are pinged by the readiness and health endpoints.
	Stores map[domain.Store]Pinger
	// Cache is reported by the detailed health endpoint but never fails it.
	Cache     Pinger
	Metrics   *observability.Metrics
	RateLimit config.RateLimitConfig
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	limiter    *ipRateLimiter
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger.With().Str("component", "http-server").Logger(),
	}
	if deps.RateLimit.Enabled {
		s.limiter = newIPRateLimiter(deps.RateLimit.RequestsPerSecond, deps.RateLimit.Burst)
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogger)
	r.Use(s.metricsMiddleware)

	// Health endpoints (no auth, no rate limit)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}

		r.Get("/health", s.detailedHealthHandler)

		r.Route("/papers", func(r chi.Router) {
			r.Get("/", s.listPapers)
			r.Get("/search", s.searchPapers)
			r.Get("/suggestions", s.suggestions)
			r.Get("/filters", s.filterOptions)
			r.Get("/year/{year}", s.papersByYear)
			r.Get("/journal/{journal}", s.papersByJournal)
			r.Get("/author/{author}", s.papersByAuthor)
			r.Get("/{paperID}", s.getPaper)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/", s.createPaper)
				r.Post("/bulk", s.bulkCreatePapers)
				r.Put("/{paperID}", s.updatePaper)
				r.Delete("/{paperID}", s.deletePaper)
			})
		})

		r.Route("/stats", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/overview", s.statsOverview)
			r.Get("/authors", s.topAuthors)
			r.Get("/journals", s.topJournals)
			r.Get("/papers-per-year", s.papersPerYear)
			r.Get("/covid", s.covidStats)
			r.Get("/database-info", s.databaseInfo)
		})

		r.Route("/hybrid", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/paper-details/{paperID}", s.hybridPaperDetails)
			r.Get("/search", s.hybridSearch)
			r.Get("/author-network/{name}", s.authorNetwork)
			r.Get("/journal-analysis/{journal}", s.journalAnalysis)
			r.Get("/sync-status", s.syncStatus)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.With(s.authMiddleware).Get("/profile", s.profile)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
