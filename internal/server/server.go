// Package server provides the HTTP server and routing for stockledger.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/di"
	analyticshandlers "github.com/aristath/stockledger/internal/modules/analytics/handlers"
	ledgerhandlers "github.com/aristath/stockledger/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/aristath/stockledger/internal/modules/portfolio/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container     // DI container with all services
	Jobs      *di.JobInstances // Jobs exposed for manual triggering
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	jobs           *di.JobInstances
	systemHandlers *SystemHandlers
	rateLimiter    *RateLimiter
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		jobs:      cfg.Jobs,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Container.LedgerStore,
			cfg.Container.CacheDB,
			cfg.Container.CacheRepo,
			cfg.Container.Scheduler,
		),
		rateLimiter: NewRateLimiter(cfg.Config.RateLimitWindow),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout (a full portfolio view may wait on several provider calls)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if devMode {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// Per-client limit on routes that rewrite the ledger or the cache
	mutating := s.rateLimiter.Middleware(s.log)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
		})

		ledgerhandlers.NewHandler(s.container.LedgerService, s.log).RegisterRoutes(r, mutating)
		portfoliohandlers.NewHandler(s.container.PortfolioService, s.log).RegisterRoutes(r)

		var cleaner analyticshandlers.CacheCleaner
		if s.jobs != nil && s.jobs.CacheCleanup != nil {
			cleaner = s.jobs.CacheCleanup
		}
		analyticshandlers.NewHandler(s.container.AnalyticsService, cleaner, s.log).RegisterRoutes(r, mutating)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
