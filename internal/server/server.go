package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/retrieval"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/snippets"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/toc"
)

// Config holds server configuration.
type Config struct {
	Addr string
	// CORSOrigins defaults to localhost origins. "*" allows all.
	CORSOrigins []string
	// RequestTimeout bounds each request, including full orchestration runs.
	RequestTimeout time.Duration
}

// Deps are the services behind the HTTP surface. Nil services leave their
// routes unmounted.
type Deps struct {
	TOC          toc.Store
	Snippets     *snippets.Service
	Orchestrator *retrieval.Orchestrator
}

// Server is the SourceSherpa HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all routes mounted.
func New(cfg Config, deps Deps) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// CORS
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/ping", s.handlePing)

	if s.deps.TOC != nil {
		toc.RegisterRoutes(r, s.deps.TOC)
	}
	if s.deps.Snippets != nil {
		snippets.RegisterRoutes(r, s.deps.Snippets)
	}
	if s.deps.Orchestrator != nil {
		retrieval.RegisterRoutes(r, s.deps.Orchestrator)
	}

	return r
}

// handlePing reports ok once the TOC backend answers.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if s.deps.TOC != nil {
		if err := s.deps.TOC.Ping(r.Context()); err != nil {
			apperr.WriteHTTP(w, err)
			return
		}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one slog record per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("sherpa server listening", "addr", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
