// Package analysis runs the formula engine stages with caching.
//
// The engine packages (deptree, exprgraph, derivative) are pure functions
// of a formula map. This package composes them into one run that the CLI
// and the HTTP server share, so both see the same defaults, validation and
// cache keys.
//
// # Stages
//
//  1. Tree: the dependency tree of the root formula
//  2. Layout: the expression graph, with the caller's expansion set
//  3. Derivatives: partial derivatives of the root formula
//  4. Render: SVG and DOT output of the expression graph
//
// Each stage can be run on its own or as part of [Runner.Execute].
//
// # Caching
//
// Every stage result is cached under a key derived from the content hash
// of the formula map and the options that affect it (see pkg/cache). An
// edited map therefore never returns a stale result, and two viewers of the
// same solution share cache entries.
//
// # Usage
//
//	runner := analysis.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, sol.Formulas(), analysis.Options{
//	    Root:     "Total_Cost",
//	    Expanded: []string{"Capex"},
//	    Formats:  []string{analysis.FormatSVG},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts[analysis.FormatSVG]
package analysis

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/formulascope/pkg/derivative"
	"github.com/matzehuels/formulascope/pkg/deptree"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/exprgraph"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMaxDepth is the dependency-tree depth budget.
	DefaultMaxDepth = deptree.DefaultMaxDepth

	// DefaultMethod is the default differentiation method.
	DefaultMethod = "structural"
)

// Format constants for rendered outputs.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures a run. It decodes from API request bodies.
type Options struct {
	// Root is the formula to analyse.
	Root string `json:"root"`

	// Tree options. A nil MaxDepth means DefaultMaxDepth; zero keeps only
	// the root's direct references.
	MaxDepth *int `json:"max_depth,omitempty"`

	// Layout options
	Expanded []string `json:"expanded,omitempty"`
	CenterX  float64  `json:"center_x,omitempty"`

	// Derivative options
	Method string `json:"method,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`

	// Refresh bypasses cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks every field and fills in defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := apperrors.ValidateFormulaName(o.Root); err != nil {
		return err
	}
	if o.MaxDepth == nil {
		o.MaxDepth = Depth(DefaultMaxDepth)
	}
	if *o.MaxDepth < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "max_depth must not be negative")
	}
	if err := apperrors.ValidateExpandList(o.Expanded); err != nil {
		return err
	}
	if o.Method == "" {
		o.Method = DefaultMethod
	}
	m, err := derivative.ParseMethod(o.Method)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid method")
	}
	o.Method = m.String()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Depth returns a MaxDepth value for [Options].
func Depth(n int) *int { return &n }

// depth returns the tree depth budget. Options must be validated.
func (o *Options) depth() int { return *o.MaxDepth }

// method returns the parsed derivative method. Options must be validated.
func (o *Options) method() derivative.Method {
	m, _ := derivative.ParseMethod(o.Method)
	return m
}

func (o *Options) layoutOptions() []exprgraph.Option {
	if o.CenterX == 0 {
		return nil
	}
	return []exprgraph.Option{exprgraph.WithCenterX(o.CenterX)}
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a run.
type Result struct {
	Root string `json:"root"`

	// MapHash is the content hash of the formula map.
	MapHash string `json:"map_hash"`

	Tree      *deptree.Node        `json:"tree"`
	TreeStats deptree.Stats        `json:"tree_stats"`
	Graph     exprgraph.Graph      `json:"graph"`
	Partials  []derivative.Partial `json:"partials"`

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte `json:"-"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// Stats contains run timings.
type Stats struct {
	TreeTime       time.Duration `json:"tree_ns"`
	LayoutTime     time.Duration `json:"layout_ns"`
	DerivativeTime time.Duration `json:"derivative_ns"`
	RenderTime     time.Duration `json:"render_ns"`
}

// Total returns the summed stage time.
func (s Stats) Total() time.Duration {
	return s.TreeTime + s.LayoutTime + s.DerivativeTime + s.RenderTime
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	TreeHit       bool `json:"tree_hit"`
	LayoutHit     bool `json:"layout_hit"`
	DerivativeHit bool `json:"derivative_hit"`
	RenderHit     bool `json:"render_hit"`
}
