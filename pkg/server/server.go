// Package server exposes solutions and formula analysis over HTTP.
//
// The API is read-only. Solutions come from a [solution.Store] and every
// analysis endpoint goes through an [analysis.Runner], so the server shares
// cache keys with the CLI.
//
// # Routes
//
//	GET  /healthz
//	GET  /api/formulas                         all solutions
//	GET  /api/formulas/{id}                    one solution
//	GET  /api/formulas/{id}/names              industry, technology and author names
//	GET  /api/formulas/{id}/tree?root=         dependency tree
//	GET  /api/formulas/{id}/graph?root=&expand= expression graph
//	GET  /api/formulas/{id}/graph.svg          rendered expression graph
//	GET  /api/formulas/{id}/derivatives?root=  partial derivatives
//	GET  /api/industry?id=
//	GET  /api/technology?id=
//	GET  /api/user?id=
//	POST /api/analyze                          analyse a posted formula map
//
// Errors are returned as {"error": {"code": ..., "message": ...}} with a
// status derived from the error code.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/cache"
	"github.com/matzehuels/formulascope/pkg/solution"
)

// DefaultMaxBody bounds request bodies.
const DefaultMaxBody = 1 << 20

// Config configures a Server.
type Config struct {
	Store  solution.Store
	Runner *analysis.Runner

	// Cache holds fetched solutions for cache.TTLSolution. Nil disables it.
	Cache cache.Cache
	Keyer cache.Keyer

	// MaxDepth and Method are the analysis defaults for requests that do
	// not set them. A nil MaxDepth leaves analysis.DefaultMaxDepth.
	MaxDepth *int
	Method   string

	MaxBody int64
	Logger  *log.Logger
}

// Server is the HTTP API.
type Server struct {
	store    solution.Store
	runner   *analysis.Runner
	cache    cache.Cache
	keyer    cache.Keyer
	maxDepth *int
	method   string
	maxBody  int64
	logger   *log.Logger
}

// New creates a Server. A nil Runner gets an uncached one.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = analysis.NewRunner(nil, nil, logger)
	}
	c := cfg.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	keyer := cfg.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &Server{
		store:    cfg.Store,
		runner:   runner,
		cache:    c,
		keyer:    keyer,
		maxDepth: cfg.MaxDepth,
		method:   cfg.Method,
		maxBody:  maxBody,
		logger:   logger,
	}
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.maxBodyMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/formulas", s.handleListSolutions)
		r.Route("/formulas/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSolution)
			r.Get("/names", s.handleNames)
			r.Get("/tree", s.handleTree)
			r.Get("/graph", s.handleGraph)
			r.Get("/graph.svg", s.handleGraphSVG)
			r.Get("/derivatives", s.handleDerivatives)
		})
		r.Get("/industry", s.handleEntity(solution.KindIndustry))
		r.Get("/technology", s.handleEntity(solution.KindTechnology))
		r.Get("/user", s.handleEntity(solution.KindUser))
		r.Post("/analyze", s.handleAnalyze)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path)
	})
	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		}
		next.ServeHTTP(w, r)
	})
}
