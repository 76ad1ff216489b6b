package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/buildinfo"
	"github.com/matzehuels/formulascope/pkg/cache"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/solution"
)

const (
	coldStorageID = "64f1c0ffee0000000000beef"
	missingID     = "64f1c0ffee0000000000dead"
	industryID    = "64f1c0ffee00000000000001"
	technologyID  = "64f1c0ffee00000000000002"
	userID        = "64f1c0ffee00000000000003"
)

const fixture = `
solutions:
  - _id: 64f1c0ffee0000000000beef
    solution_name: Cold Storage Retrofit
    industry_id: 64f1c0ffee00000000000001
    technology_id: 64f1c0ffee00000000000002
    created_by: 64f1c0ffee00000000000003
    updated_at: 2024-06-15T12:00:00Z
    parameters:
      - {name: Capex}
      - {name: Opex}
      - {name: Years}
    calculations:
      - {name: Total_Cost, formula: "Capex + Opex * Years"}
      - {name: Annual_Cost, formula: "Total_Cost / Years"}
  - _id: 64f1c0ffee0000000000cafe
    solution_name: Heat Pump
    updated_at: 2024-01-02T00:00:00Z
entities:
  - {_id: 64f1c0ffee00000000000001, kind: industry, name: Food Retail}
  - {_id: 64f1c0ffee00000000000003, kind: user, first_name: Ada, last_name: Lovelace}
`

func testStore(t *testing.T) *solution.MemoryStore {
	t.Helper()
	st, err := solution.Load([]byte(fixture))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return st
}

func testServer(t *testing.T, st solution.Store) *Server {
	t.Helper()
	logger := log.New(io.Discard)
	logger.SetLevel(log.FatalLevel)
	return New(Config{
		Store:  st,
		Runner: analysis.NewRunner(cache.NewMemoryCache(), nil, logger),
		Cache:  cache.NewMemoryCache(),
		Logger: logger,
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body apiError
	decodeBody(t, w, &body)
	return body.Error.Code
}

func TestHealth(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()
	w := do(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
	if body["version"] != buildinfo.Version || body["commit"] == "" {
		t.Errorf("build info = %v, want version %q", body, buildinfo.Version)
	}
}

func TestRequestID(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	w := do(t, h, http.MethodGet, "/healthz", "")
	if id := w.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Errorf("generated request id = %q, want a UUID", id)
	}

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("echoed request id = %q, want abc-123", got)
	}
}

func TestListSolutions(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	w := do(t, h, http.MethodGet, "/api/formulas", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var body struct {
		Formulas []solution.Solution `json:"formulas"`
	}
	decodeBody(t, w, &body)
	if len(body.Formulas) != 2 {
		t.Fatalf("len(formulas) = %d, want 2", len(body.Formulas))
	}
	if body.Formulas[0].ID != coldStorageID {
		t.Errorf("first solution = %s, want most recently updated %s", body.Formulas[0].ID, coldStorageID)
	}

	w = do(t, h, http.MethodGet, "/api/formulas?view=summary", "")
	var summaries struct {
		Formulas []solution.Summary `json:"formulas"`
	}
	decodeBody(t, w, &summaries)
	if got := summaries.Formulas[0].Calculations; got != 2 {
		t.Errorf("summary calculations = %d, want 2", got)
	}
}

func TestGetSolution(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	tests := []struct {
		name   string
		id     string
		status int
		code   string
	}{
		{"found", coldStorageID, http.StatusOK, ""},
		{"malformed id", "not-an-id", http.StatusBadRequest, "INVALID_ID"},
		{"missing", missingID, http.StatusNotFound, "SOLUTION_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/formulas/"+tt.id, "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body)
			}
			if tt.code != "" {
				if got := errorCode(t, w); got != tt.code {
					t.Errorf("code = %q, want %q", got, tt.code)
				}
				return
			}
			var sol solution.Solution
			decodeBody(t, w, &sol)
			if sol.Name != "Cold Storage Retrofit" {
				t.Errorf("name = %q", sol.Name)
			}
		})
	}
}

func TestNames(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()
	w := do(t, h, http.MethodGet, "/api/formulas/"+coldStorageID+"/names", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var names solution.Names
	decodeBody(t, w, &names)
	want := solution.Names{
		Industry:   "Food Retail",
		Technology: technologyID,
		CreatedBy:  "Ada Lovelace",
	}
	if names != want {
		t.Errorf("names = %+v, want %+v", names, want)
	}
}

func TestEntity(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	tests := []struct {
		name   string
		target string
		status int
		want   string
	}{
		{"industry", "/api/industry?id=" + industryID, http.StatusOK, "Food Retail"},
		{"user", "/api/user?id=" + userID, http.StatusOK, "Ada Lovelace"},
		{"missing technology", "/api/technology?id=" + technologyID, http.StatusNotFound, ""},
		{"no id", "/api/industry", http.StatusBadRequest, ""},
		{"malformed id", "/api/user?id=123", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.target, "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body)
			}
			if tt.want == "" {
				return
			}
			var body map[string]any
			decodeBody(t, w, &body)
			if body["display_name"] != tt.want {
				t.Errorf("display_name = %v, want %q", body["display_name"], tt.want)
			}
		})
	}
}

func TestTree(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	w := do(t, h, http.MethodGet, "/api/formulas/"+coldStorageID+"/tree?root=Annual_Cost", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var body treeResponse
	decodeBody(t, w, &body)
	if body.Stats.Formulas != 2 || body.Stats.Leaves != 4 {
		t.Errorf("stats = %+v, want 2 formulas and 4 leaves", body.Stats)
	}
	if body.CacheHit {
		t.Error("first request reported a cache hit")
	}

	w = do(t, h, http.MethodGet, "/api/formulas/"+coldStorageID+"/tree?root=Annual_Cost", "")
	decodeBody(t, w, &body)
	if !body.CacheHit {
		t.Error("second request missed the cache")
	}
}

func TestTreeDepth(t *testing.T) {
	tests := []struct {
		name     string
		depth    *int
		query    string
		circular int
		formulas int
	}{
		{"explicit zero", nil, "&max_depth=0", 2, 1},
		{"zero server default", analysis.Depth(0), "", 2, 1},
		{"request overrides server", analysis.Depth(0), "&max_depth=5", 0, 2},
		{"unset uses default", nil, "", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, testStore(t))
			srv.maxDepth = tt.depth
			w := do(t, srv.Handler(), http.MethodGet, "/api/formulas/"+coldStorageID+"/tree?root=Annual_Cost"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body)
			}
			var body treeResponse
			decodeBody(t, w, &body)
			if body.Stats.Circular != tt.circular || body.Stats.Formulas != tt.formulas {
				t.Errorf("stats = %+v, want %d circular and %d formulas", body.Stats, tt.circular, tt.formulas)
			}
		})
	}
}

func TestTreeErrors(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"no root", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown root", "?root=Capex", http.StatusNotFound, "FORMULA_NOT_FOUND"},
		{"bad depth", "?root=Total_Cost&max_depth=x", http.StatusBadRequest, "INVALID_INPUT"},
		{"negative depth", "?root=Total_Cost&max_depth=-1", http.StatusBadRequest, "INVALID_INPUT"},
		{"bad method", "?root=Total_Cost&method=numeric", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/formulas/"+coldStorageID+"/tree"+tt.query, "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body)
			}
			if got := errorCode(t, w); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestGraph(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()
	base := "/api/formulas/" + coldStorageID + "/graph?root=Annual_Cost"

	w := do(t, h, http.MethodGet, base, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var collapsed graphResponse
	decodeBody(t, w, &collapsed)
	if len(collapsed.Expandable) != 1 || collapsed.Expandable[0] != "Total_Cost" {
		t.Errorf("expandable = %v, want [Total_Cost]", collapsed.Expandable)
	}

	w = do(t, h, http.MethodGet, base+"&expand=Total_Cost", "")
	var expanded graphResponse
	decodeBody(t, w, &expanded)
	if len(expanded.Graph.Nodes) <= len(collapsed.Graph.Nodes) {
		t.Errorf("expanded graph has %d nodes, collapsed %d; want more when expanded",
			len(expanded.Graph.Nodes), len(collapsed.Graph.Nodes))
	}
	if len(expanded.Expanded) != 1 {
		t.Errorf("expanded = %v", expanded.Expanded)
	}

	w = do(t, h, http.MethodGet, base+"&expand=Total%20Cost", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid expand name: status = %d, want 400", w.Code)
	}
}

func TestDerivatives(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()
	w := do(t, h, http.MethodGet, "/api/formulas/"+coldStorageID+"/derivatives?root=Total_Cost", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var body struct {
		Expression string `json:"expression"`
		Method     string `json:"method"`
		Partials   []struct {
			Variable       string `json:"variable"`
			Expression     string `json:"expression"`
			Multiplicative bool   `json:"multiplicative"`
		} `json:"partials"`
	}
	decodeBody(t, w, &body)
	if body.Expression != "Capex + Opex * Years" {
		t.Errorf("expression = %q", body.Expression)
	}
	if body.Method != "structural" {
		t.Errorf("method = %q, want structural", body.Method)
	}
	if len(body.Partials) != 3 {
		t.Fatalf("len(partials) = %d, want 3", len(body.Partials))
	}
	for _, p := range body.Partials {
		if p.Variable == "Capex" && (p.Expression != "1" || p.Multiplicative) {
			t.Errorf("d/dCapex = %+v, want additive 1", p)
		}
		if p.Variable == "Opex" && !p.Multiplicative {
			t.Errorf("d/dOpex = %+v, want multiplicative", p)
		}
	}
}

func TestAnalyze(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	body := `{"formulas": {"Total_Cost": "a * b", "a": "c + 1"}, "root": "Total_Cost", "expanded": ["a"], "formats": ["dot"]}`
	w := do(t, h, http.MethodPost, "/api/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Root      string            `json:"root"`
		Artifacts map[string]string `json:"artifacts"`
		Partials  []json.RawMessage `json:"partials"`
	}
	decodeBody(t, w, &resp)
	if resp.Root != "Total_Cost" {
		t.Errorf("root = %q", resp.Root)
	}
	if !strings.HasPrefix(resp.Artifacts["dot"], "digraph G {") {
		t.Errorf("dot artifact = %q", resp.Artifacts["dot"])
	}
	if len(resp.Partials) != 2 {
		t.Errorf("len(partials) = %d, want 2", len(resp.Partials))
	}

	w = do(t, h, http.MethodPost, "/api/analyze", `{"solution_id": "`+coldStorageID+`", "root": "Annual_Cost"}`)
	if w.Code != http.StatusOK {
		t.Errorf("analyze by solution id: status = %d: %s", w.Code, w.Body)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{"root":`, http.StatusBadRequest},
		{"unknown root", `{"formulas": {"a": "b + c"}, "root": "x"}`, http.StatusNotFound},
		{"bad format", `{"formulas": {"a": "b + c"}, "root": "a", "formats": ["png"]}`, http.StatusBadRequest},
		{"bad name", `{"formulas": {"": "b + c"}, "root": "a"}`, http.StatusBadRequest},
		{"missing solution", `{"solution_id": "` + missingID + `", "root": "a"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/analyze", tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body)
			}
		})
	}
}

func TestMaxBody(t *testing.T) {
	logger := log.New(io.Discard)
	logger.SetLevel(log.FatalLevel)
	h := New(Config{Store: testStore(t), MaxBody: 16, Logger: logger}).Handler()

	w := do(t, h, http.MethodPost, "/api/analyze", `{"formulas": {"a": "b + c + d + e"}, "root": "a"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

// countingStore counts Get calls.
type countingStore struct {
	solution.Store
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, id string) (*solution.Solution, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, id)
}

func TestSolutionCache(t *testing.T) {
	st := &countingStore{Store: testStore(t)}
	h := testServer(t, st).Handler()

	for range 3 {
		w := do(t, h, http.MethodGet, "/api/formulas/"+coldStorageID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	if got := st.gets.Load(); got != 1 {
		t.Errorf("store Get calls = %d, want 1", got)
	}
}

func TestNoStore(t *testing.T) {
	h := testServer(t, nil).Handler()

	w := do(t, h, http.MethodGet, "/api/formulas", "")
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotImplemented)
	}

	w = do(t, h, http.MethodPost, "/api/analyze", `{"formulas": {"a": "b * c"}, "root": "a"}`)
	if w.Code != http.StatusOK {
		t.Errorf("analyze without store: status = %d: %s", w.Code, w.Body)
	}
}

func TestRouting(t *testing.T) {
	h := testServer(t, testStore(t)).Handler()

	if w := do(t, h, http.MethodGet, "/api/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown route: status = %d, want 404", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/formulas", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE: status = %d, want 405", w.Code)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.New(apperrors.ErrCodeInvalidID, "x"), http.StatusBadRequest},
		{apperrors.New(apperrors.ErrCodeInvalidFormula, "x"), http.StatusBadRequest},
		{apperrors.New(apperrors.ErrCodeSolutionNotFound, "x"), http.StatusNotFound},
		{apperrors.New(apperrors.ErrCodeFormulaNotFound, "x"), http.StatusNotFound},
		{apperrors.New(apperrors.ErrCodeStore, "x"), http.StatusServiceUnavailable},
		{apperrors.New(apperrors.ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{apperrors.New(apperrors.ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
