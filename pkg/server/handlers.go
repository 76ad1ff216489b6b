package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/buildinfo"
	"github.com/matzehuels/formulascope/pkg/cache"
	"github.com/matzehuels/formulascope/pkg/derivative"
	"github.com/matzehuels/formulascope/pkg/deptree"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/exprgraph"
	"github.com/matzehuels/formulascope/pkg/formula"
	"github.com/matzehuels/formulascope/pkg/observability"
	"github.com/matzehuels/formulascope/pkg/solution"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

// =============================================================================
// Solutions
// =============================================================================

func (s *Server) handleListSolutions(w http.ResponseWriter, r *http.Request) {
	if err := s.requireStore(); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	sols, err := s.store.List(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if r.URL.Query().Get("view") == "summary" {
		out := make([]solution.Summary, len(sols))
		for i, sol := range sols {
			out[i] = sol.Summarize()
		}
		writeJSON(w, http.StatusOK, map[string]any{"formulas": out})
		return
	}
	if sols == nil {
		sols = []*solution.Solution{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"formulas": sols})
}

func (s *Server) handleGetSolution(w http.ResponseWriter, r *http.Request) {
	sol, err := s.solution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	sol, err := s.solution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, solution.ResolveNames(r.Context(), s.store, sol))
}

// handleEntity serves one entity kind by the "id" query parameter.
func (s *Server) handleEntity(kind solution.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.requireStore(); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			s.writeAppError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "id parameter is required"))
			return
		}
		if err := apperrors.ValidateObjectID(id); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		e, err := s.store.Entity(r.Context(), kind, id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		e.Kind = kind
		writeJSON(w, http.StatusOK, map[string]any{
			string(kind):   e,
			"display_name": e.DisplayName(),
		})
	}
}

// solution fetches id through the solution cache.
func (s *Server) solution(ctx context.Context, id string) (*solution.Solution, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := apperrors.ValidateObjectID(id); err != nil {
		return nil, err
	}
	hooks := observability.Cache()
	key := s.keyer.SolutionKey(id)
	if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		var sol solution.Solution
		if err := json.Unmarshal(data, &sol); err == nil {
			hooks.OnCacheHit(ctx, "solution")
			return &sol, nil
		}
	}
	hooks.OnCacheMiss(ctx, "solution")

	sol, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(sol); err == nil {
		if err := s.cache.Set(ctx, key, data, cache.TTLSolution); err != nil {
			s.logger.Debug("solution cache write failed", "id", id, "error", err)
		} else {
			hooks.OnCacheSet(ctx, "solution", len(data))
		}
	}
	return sol, nil
}

func (s *Server) requireStore() error {
	if s.store == nil {
		return apperrors.New(apperrors.ErrCodeUnsupported, "no solution store configured")
	}
	return nil
}

// =============================================================================
// Analysis
// =============================================================================

type treeResponse struct {
	Root     string        `json:"root"`
	Tree     *deptree.Node `json:"tree"`
	Stats    deptree.Stats `json:"stats"`
	CacheHit bool          `json:"cache_hit"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	m, opts, err := s.solutionAnalysis(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	tree, hit, err := s.runner.TreeWithCacheInfo(r.Context(), m, opts)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, treeResponse{
		Root:     opts.Root,
		Tree:     tree,
		Stats:    deptree.Summarize(tree),
		CacheHit: hit,
	})
}

type graphResponse struct {
	Graph exprgraph.Graph `json:"graph"`
	// Expandable lists the identifiers a viewer may add to "expand".
	Expandable []string `json:"expandable"`
	Expanded   []string `json:"expanded"`
	CacheHit   bool     `json:"cache_hit"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	m, opts, err := s.solutionAnalysis(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	g, hit, err := s.runner.LayoutWithCacheInfo(r.Context(), m, opts)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	expandable := g.Expandable(m.Has)
	writeJSON(w, http.StatusOK, graphResponse{
		Graph:      g,
		Expandable: nonNil(expandable),
		Expanded:   nonNil(opts.Expanded),
		CacheHit:   hit,
	})
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	m, opts, err := s.solutionAnalysis(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	g, err := s.runner.Layout(r.Context(), m, opts)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	opts.Formats = []string{analysis.FormatSVG}
	artifacts, err := s.runner.Render(r.Context(), g, opts)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[analysis.FormatSVG])
}

type derivativesResponse struct {
	Root       string               `json:"root"`
	Expression string               `json:"expression"`
	Method     string               `json:"method"`
	Partials   []derivative.Partial `json:"partials"`
	CacheHit   bool                 `json:"cache_hit"`
}

func (s *Server) handleDerivatives(w http.ResponseWriter, r *http.Request) {
	m, opts, err := s.solutionAnalysis(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	partials, hit, err := s.runner.DerivativesWithCacheInfo(r.Context(), m, opts)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	expr, _ := m.Lookup(opts.Root)
	writeJSON(w, http.StatusOK, derivativesResponse{
		Root:       opts.Root,
		Expression: expr,
		Method:     opts.Method,
		Partials:   nonNil(partials),
		CacheHit:   hit,
	})
}

// analyzeRequest is the body of POST /api/analyze. Either Formulas or
// SolutionID supplies the formula map.
type analyzeRequest struct {
	Formulas   formula.Map `json:"formulas,omitempty"`
	SolutionID string      `json:"solution_id,omitempty"`
	analysis.Options
}

type analyzeResponse struct {
	*analysis.Result
	// Artifacts holds rendered text outputs keyed by format.
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		s.writeAppError(w, r, decodeError(err))
		return
	}

	m := req.Formulas
	if req.SolutionID != "" {
		sol, err := s.solution(r.Context(), req.SolutionID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		m = sol.Formulas()
	}
	for name := range m {
		if err := apperrors.ValidateFormulaName(name); err != nil {
			s.writeAppError(w, r, err)
			return
		}
	}

	opts := req.Options
	s.applyDefaults(&opts)
	result, err := s.runner.Execute(r.Context(), m, opts)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	resp := analyzeResponse{Result: result}
	if len(result.Artifacts) > 0 {
		resp.Artifacts = make(map[string]string, len(result.Artifacts))
		for f, data := range result.Artifacts {
			resp.Artifacts[f] = string(data)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request body")
}

// =============================================================================
// Request parsing
// =============================================================================

// solutionAnalysis loads the solution named by the {id} path parameter and
// parses the analysis options from the query. The root must have a
// formula in the solution.
func (s *Server) solutionAnalysis(r *http.Request) (formula.Map, analysis.Options, error) {
	opts, err := s.queryOptions(r)
	if err != nil {
		return nil, opts, err
	}
	sol, err := s.solution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, opts, err
	}
	m := sol.Formulas()
	if _, ok := m.Lookup(opts.Root); !ok {
		return nil, opts, apperrors.New(apperrors.ErrCodeFormulaNotFound, "solution %s has no formula named %q", sol.ID, opts.Root)
	}
	return m, opts, nil
}

// queryOptions reads root, expand, max_depth, method, center_x and refresh.
// "expand" may be repeated or comma-separated.
func (s *Server) queryOptions(r *http.Request) (analysis.Options, error) {
	q := r.URL.Query()
	opts := analysis.Options{
		Root:     q.Get("root"),
		Method:   q.Get("method"),
		Expanded: splitList(q["expand"]),
		Refresh:  q.Get("refresh") == "true",
	}
	if v := q.Get("max_depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, apperrors.New(apperrors.ErrCodeInvalidInput, "max_depth must be an integer")
		}
		opts.MaxDepth = analysis.Depth(n)
	}
	if v := q.Get("center_x"); v != "" {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, apperrors.New(apperrors.ErrCodeInvalidInput, "center_x must be a number")
		}
		opts.CenterX = x
	}
	s.applyDefaults(&opts)
	return opts, opts.ValidateAndSetDefaults()
}

func (s *Server) applyDefaults(opts *analysis.Options) {
	if opts.MaxDepth == nil && s.maxDepth != nil {
		opts.MaxDepth = analysis.Depth(*s.maxDepth)
	}
	if opts.Method == "" {
		opts.Method = s.method
	}
	opts.Logger = s.logger
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
