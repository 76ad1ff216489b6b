package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/formulascope/pkg/cache"
	"github.com/matzehuels/formulascope/pkg/derivative"
	"github.com/matzehuels/formulascope/pkg/deptree"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/exprgraph"
	"github.com/matzehuels/formulascope/pkg/formula"
	"github.com/matzehuels/formulascope/pkg/observability"
)

// Runner runs engine stages with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// MapHash returns the content hash of m used in cache keys.
func MapHash(m formula.Map) string {
	if m == nil {
		m = formula.Map{}
	}
	h, _ := cache.HashJSON(m)
	return h
}

// Execute runs every stage for opts.Root. The root must have a formula in
// m; its dependencies need not.
func (r *Runner) Execute(ctx context.Context, m formula.Map, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if _, ok := m.Lookup(opts.Root); !ok {
		return nil, apperrors.New(apperrors.ErrCodeFormulaNotFound, "no formula named %q", opts.Root)
	}
	logger := r.logger(opts)

	result := &Result{Root: opts.Root, MapHash: MapHash(m)}

	// Stage 1: Tree
	start := time.Now()
	tree, hit, err := r.TreeWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	result.Tree = tree
	result.TreeStats = deptree.Summarize(tree)
	result.Stats.TreeTime = time.Since(start)
	result.CacheInfo.TreeHit = hit
	logger.Info("built dependency tree",
		"root", opts.Root,
		"nodes", result.TreeStats.Nodes(),
		"circular", result.TreeStats.Circular,
		"duration", result.Stats.TreeTime)

	// Stage 2: Layout
	start = time.Now()
	g, hit, err := r.LayoutWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.LayoutTime = time.Since(start)
	result.CacheInfo.LayoutHit = hit
	logger.Info("computed layout",
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"expanded", len(opts.Expanded),
		"duration", result.Stats.LayoutTime)

	// Stage 3: Derivatives
	start = time.Now()
	partials, hit, err := r.DerivativesWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	result.Partials = partials
	result.Stats.DerivativeTime = time.Since(start)
	result.CacheInfo.DerivativeHit = hit
	logger.Info("differentiated",
		"variables", len(partials),
		"method", opts.Method,
		"duration", result.Stats.DerivativeTime)

	// Stage 4: Render
	if len(opts.Formats) > 0 {
		start = time.Now()
		artifacts, hit, err := r.RenderWithCacheInfo(ctx, g, opts)
		if err != nil {
			return nil, err
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(start)
		result.CacheInfo.RenderHit = hit
		logger.Info("rendered outputs",
			"formats", opts.Formats,
			"duration", result.Stats.RenderTime)
	}
	return result, nil
}

// TreeWithCacheInfo builds the dependency tree and reports whether it came
// from the cache.
func (r *Runner) TreeWithCacheInfo(ctx context.Context, m formula.Map, opts Options) (*deptree.Node, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.TreeKey(MapHash(m), opts.Root, cache.TreeKeyOpts{MaxDepth: opts.depth()})
	return cached(ctx, r, "tree", key, opts.Refresh, cache.TTLTree, func() (*deptree.Node, error) {
		hooks := observability.Engine()
		hooks.OnTreeStart(ctx, opts.Root)
		start := time.Now()
		tree := deptree.Build(opts.Root, m, deptree.WithMaxDepth(opts.depth()))
		hooks.OnTreeComplete(ctx, opts.Root, deptree.Summarize(tree).Nodes(), time.Since(start), nil)
		return tree, nil
	})
}

// Tree is TreeWithCacheInfo without the cache information.
func (r *Runner) Tree(ctx context.Context, m formula.Map, opts Options) (*deptree.Node, error) {
	tree, _, err := r.TreeWithCacheInfo(ctx, m, opts)
	return tree, err
}

// LayoutWithCacheInfo lays out the expression graph.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, m formula.Map, opts Options) (exprgraph.Graph, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return exprgraph.Graph{}, false, err
	}
	key := r.Keyer.LayoutKey(MapHash(m), opts.Root, cache.LayoutKeyOpts{
		Expanded: opts.Expanded,
		CenterX:  opts.CenterX,
	})
	return cached(ctx, r, "layout", key, opts.Refresh, cache.TTLLayout, func() (exprgraph.Graph, error) {
		hooks := observability.Engine()
		hooks.OnLayoutStart(ctx, opts.Root, len(opts.Expanded))
		start := time.Now()
		g := exprgraph.Layout(opts.Root, m, opts.Expanded, opts.layoutOptions()...)
		err := exprgraph.Validate(g)
		hooks.OnLayoutComplete(ctx, opts.Root, len(g.Nodes), time.Since(start), err)
		if err != nil {
			return exprgraph.Graph{}, apperrors.Wrap(apperrors.ErrCodeInternal, err, "layout %s", opts.Root)
		}
		return g, nil
	})
}

// Layout is LayoutWithCacheInfo without the cache information.
func (r *Runner) Layout(ctx context.Context, m formula.Map, opts Options) (exprgraph.Graph, error) {
	g, _, err := r.LayoutWithCacheInfo(ctx, m, opts)
	return g, err
}

// DerivativesWithCacheInfo differentiates the root formula with respect to
// each of its variables.
func (r *Runner) DerivativesWithCacheInfo(ctx context.Context, m formula.Map, opts Options) ([]derivative.Partial, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	expr, ok := m.Lookup(opts.Root)
	if !ok {
		return nil, false, apperrors.New(apperrors.ErrCodeFormulaNotFound, "no formula named %q", opts.Root)
	}
	key := r.Keyer.DerivativeKey(MapHash(m), opts.Root, opts.Method)
	return cached(ctx, r, "derivative", key, opts.Refresh, cache.TTLDerivative, func() ([]derivative.Partial, error) {
		hooks := observability.Engine()
		hooks.OnDerivativeStart(ctx, opts.Root, opts.Method)
		start := time.Now()
		partials := derivative.Partials(expr, opts.method())
		hooks.OnDerivativeComplete(ctx, opts.Root, opts.Method, len(partials), time.Since(start), nil)
		return partials, nil
	})
}

// Derivatives is DerivativesWithCacheInfo without the cache information.
func (r *Runner) Derivatives(ctx context.Context, m formula.Map, opts Options) ([]derivative.Partial, error) {
	p, _, err := r.DerivativesWithCacheInfo(ctx, m, opts)
	return p, err
}

// RenderWithCacheInfo renders g in every format of opts.Formats. The hit
// flag is set only when every format came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g exprgraph.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}
	data, err := exprgraph.Marshal(g)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrCodeInternal, err, "serialize graph for cache key")
	}
	graphHash := cache.Hash(data)

	artifacts := make(map[string][]byte, len(opts.Formats))
	allHit := true
	for _, format := range opts.Formats {
		key := r.Keyer.RenderKey(graphHash, cache.RenderKeyOpts{Format: format})
		out, hit, err := cached(ctx, r, "render", key, opts.Refresh, cache.TTLRender, func() ([]byte, error) {
			return render(ctx, g, format, data)
		})
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = out
		allHit = allHit && hit
	}
	return artifacts, allHit && len(opts.Formats) > 0, nil
}

// Render is RenderWithCacheInfo without the cache information.
func (r *Runner) Render(ctx context.Context, g exprgraph.Graph, opts Options) (map[string][]byte, error) {
	a, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return a, err
}

func render(ctx context.Context, g exprgraph.Graph, format string, graphJSON []byte) ([]byte, error) {
	hooks := observability.Engine()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()

	var (
		out []byte
		err error
	)
	switch format {
	case FormatSVG:
		out, err = exprgraph.RenderSVG(ctx, g)
	case FormatDOT:
		out = []byte(exprgraph.ToDOT(g))
	case FormatJSON:
		out = graphJSON
	}
	hooks.OnRenderComplete(ctx, format, len(out), time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render %s", format)
	}
	return out, nil
}

// cached returns the value under key, computing and storing it on a miss.
// Undecodable entries and cache errors count as misses; the cache never
// fails a run.
func cached[T any](ctx context.Context, r *Runner, keyType, key string, refresh bool, ttl time.Duration, compute func() (T, error)) (T, bool, error) {
	hooks := observability.Cache()
	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var v T
			if err := decode(data, &v); err == nil {
				hooks.OnCacheHit(ctx, keyType)
				return v, true, nil
			}
		} else if err != nil {
			r.Logger.Debug("cache read failed", "key_type", keyType, "error", err)
		}
		hooks.OnCacheMiss(ctx, keyType)
	}

	v, err := compute()
	if err != nil {
		var zero T
		return zero, false, err
	}
	data, err := encode(v)
	if err != nil {
		return v, false, nil
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key_type", keyType, "error", err)
	} else {
		hooks.OnCacheSet(ctx, keyType, len(data))
	}
	return v, false, nil
}

// encode stores raw bytes as they are and everything else as JSON.
func encode(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return json.Marshal(v)
}

func decode(data []byte, v any) error {
	if b, ok := v.(*[]byte); ok {
		*b = data
		return nil
	}
	return json.Unmarshal(data, v)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
