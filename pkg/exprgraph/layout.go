package exprgraph

import (
	"fmt"
	"strings"

	"github.com/matzehuels/formulascope/pkg/formula"
)

// Config holds the layout geometry.
type Config struct {
	LevelHeight float64 // vertical distance between rows
	NodeSpacing float64 // horizontal distance between neighbours in the main tree
	RootY       float64 // y of the result node
	CenterX     float64 // x of the result node and centre of every main-tree row
	// SubSpacing scales NodeSpacing inside expanded sub-forests.
	SubSpacing float64
	// MaxExpandDepth bounds how many expansions may nest.
	MaxExpandDepth int
}

// DefaultConfig returns the standard geometry.
func DefaultConfig() Config {
	return Config{
		LevelHeight:    120,
		NodeSpacing:    120,
		RootY:          60,
		CenterX:        400,
		SubSpacing:     0.7,
		MaxExpandDepth: 6,
	}
}

// Option adjusts the Config used by Layout.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(dst *Config) { *dst = c }
}

// WithCenterX moves the horizontal anchor.
func WithCenterX(x float64) Option {
	return func(c *Config) { c.CenterX = x }
}

// WithMaxExpandDepth sets the nesting ceiling for expansions.
func WithMaxExpandDepth(d int) Option {
	return func(c *Config) {
		if d >= 0 {
			c.MaxExpandDepth = d
		}
	}
}

var binaryLabels = map[formula.BinaryKind]string{
	formula.OpAdd:      "+",
	formula.OpSubtract: "−",
	formula.OpMultiply: "×",
	formula.OpDivide:   "÷",
	formula.OpPower:    "^",
}

var unaryLabels = map[formula.UnaryKind]string{
	formula.OpPlus:  "+",
	formula.OpMinus: "−",
}

// Layout lays out the formula stored under name.
//
// The result node sits at (CenterX, RootY). The formula's AST hangs below
// it, one row per tree level, and each row is centred on CenterX after the
// walk. Identifier nodes whose name is in expanded and resolves to a
// formula get that formula laid out as a narrower sub-forest under them,
// recursively, as long as the name is not already on the expansion path
// and the nesting stays within MaxExpandDepth. A sub-forest is centred on
// its anchor's x but starts below the deepest row placed so far, so nodes
// of different forests never share a position.
//
// Edges are emitted forest by forest: a forest's input edges, then its
// output edge, then the forests expanded from it.
//
// A formula that does not parse is drawn flat: its scanned variables on
// one row, each joined to the result by a direct edge. An unknown name
// yields an empty graph. Layout is deterministic for equal inputs.
func Layout(name string, r formula.Resolver, expanded []string, opts ...Option) Graph {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	g := Graph{Root: name, Nodes: []Node{}, Edges: []Edge{}}
	expr, ok := r.Lookup(name)
	if !ok {
		return g
	}

	b := &builder{cfg: cfg, r: r, g: &g, expanded: make(map[string]bool, len(expanded))}
	for _, e := range expanded {
		b.expanded[e] = true
	}

	g.Nodes = append(g.Nodes, Node{
		ID:    name,
		Label: name,
		Kind:  KindResult,
		X:     cfg.CenterX,
		Y:     cfg.RootY,
		Ref:   name,
	})

	ast, err := formula.ParseString(expr)
	if err != nil {
		b.flat(name, expr)
		return g
	}

	root := &forest{
		scope:   name,
		anchorX: cfg.CenterX,
		anchorY: cfg.RootY,
		spacing: cfg.NodeSpacing,
	}
	b.grow(root, ast, name, map[string]bool{name: true}, 0)
	return g
}

type builder struct {
	cfg      Config
	r        formula.Resolver
	expanded map[string]bool
	g        *Graph
	edges    int
	deepest  int // lowest level occupied by any node
}

// forest is one laid-out AST: the main tree or an expansion.
type forest struct {
	scope            string // id prefix, the anchor node id
	anchorX, anchorY float64
	baseLevel        int
	spacing          float64

	rows   [][]int // node indices per relative level, level 1 at rows[0]
	ops    int
	leaves map[string]int // leaf id -> node index
	idents []int          // identifier node indices in creation order
	rootID string
}

// grow walks ast into f, recentres its rows, joins its root to target and
// then expands its identifiers.
func (b *builder) grow(f *forest, ast formula.Node, target string, path map[string]bool, depth int) {
	f.leaves = make(map[string]int)
	f.rootID = b.place(f, ast, 1)

	for _, row := range f.rows {
		n := float64(len(row))
		for j, idx := range row {
			b.g.Nodes[idx].X = f.anchorX + (float64(j)-(n-1)/2)*f.spacing
		}
	}
	b.edge(f.rootID, target, EdgeOutput, "")

	for _, idx := range f.idents {
		b.expand(b.g.Nodes[idx], path, depth+1)
	}
}

func (b *builder) expand(anchor Node, path map[string]bool, depth int) {
	name := anchor.Ref
	if !b.expanded[name] || path[name] || depth > b.cfg.MaxExpandDepth {
		return
	}
	expr, ok := b.r.Lookup(name)
	if !ok {
		return
	}
	ast, err := formula.ParseString(expr)
	if err != nil {
		return
	}

	next := make(map[string]bool, len(path)+1)
	for k := range path {
		next[k] = true
	}
	next[name] = true

	sub := &forest{
		scope:     anchor.ID,
		anchorX:   anchor.X,
		anchorY:   b.cfg.RootY + float64(b.deepest)*b.cfg.LevelHeight,
		baseLevel: b.deepest,
		spacing:   b.cfg.NodeSpacing * b.cfg.SubSpacing,
	}
	b.grow(sub, ast, anchor.ID, next, depth)
}

// place adds n and its operands to f at relative level lvl and returns the
// id of the node representing n.
func (b *builder) place(f *forest, n formula.Node, lvl int) string {
	switch v := n.(type) {
	case *formula.Ident:
		id := f.scope + "." + v.Name
		if _, ok := f.leaves[id]; ok {
			return id
		}
		idx := b.add(f, lvl, Node{ID: id, Label: v.Name, Kind: KindVariable, Ref: v.Name})
		f.leaves[id] = idx
		f.idents = append(f.idents, idx)
		return id

	case *formula.Number:
		text := v.String()
		id := f.scope + "#c" + text
		if _, ok := f.leaves[id]; ok {
			return id
		}
		f.leaves[id] = b.add(f, lvl, Node{ID: id, Label: text, Kind: KindVariable})
		return id

	case *formula.Binary:
		label := binaryLabels[v.Op]
		id := b.op(f, lvl, label)
		left := b.place(f, v.Left, lvl+1)
		right := b.place(f, v.Right, lvl+1)
		b.edge(left, id, EdgeInput, label)
		b.edge(right, id, EdgeInput, label)
		return id

	case *formula.Unary:
		label := unaryLabels[v.Op]
		id := b.op(f, lvl, label)
		operand := b.place(f, v.Operand, lvl+1)
		b.edge(operand, id, EdgeInput, label)
		return id
	}
	panic(fmt.Sprintf("exprgraph: unexpected node %T", n))
}

func (b *builder) op(f *forest, lvl int, label string) string {
	id := fmt.Sprintf("%s#op%d", f.scope, f.ops)
	f.ops++
	b.add(f, lvl, Node{ID: id, Label: label, Kind: KindOperation})
	return id
}

// add appends n on relative level lvl of f and returns its index.
func (b *builder) add(f *forest, lvl int, n Node) int {
	for len(f.rows) < lvl {
		f.rows = append(f.rows, nil)
	}
	n.Level = f.baseLevel + lvl
	n.Y = f.anchorY + float64(lvl)*b.cfg.LevelHeight
	b.deepest = max(b.deepest, n.Level)
	idx := len(b.g.Nodes)
	b.g.Nodes = append(b.g.Nodes, n)
	f.rows[lvl-1] = append(f.rows[lvl-1], idx)
	return idx
}

func (b *builder) edge(from, to string, kind EdgeKind, op string) {
	b.g.Edges = append(b.g.Edges, Edge{
		ID:        fmt.Sprintf("edge_%d", b.edges),
		From:      from,
		To:        to,
		Kind:      kind,
		Operation: op,
	})
	b.edges++
}

// flat builds the fallback layout for a formula that does not parse.
func (b *builder) flat(name, expr string) {
	b.g.Fallback = true
	vars := formula.ScanVariables(expr)
	op := fallbackOperation(expr)
	n := float64(len(vars))
	for i, v := range vars {
		id := name + "." + v
		b.g.Nodes = append(b.g.Nodes, Node{
			ID:    id,
			Label: v,
			Kind:  KindVariable,
			X:     b.cfg.CenterX + (float64(i)-(n-1)/2)*b.cfg.NodeSpacing,
			Y:     b.cfg.RootY + 2*b.cfg.LevelHeight,
			Level: 2,
			Ref:   v,
		})
		b.edge(id, name, EdgeDirect, op)
	}
}

// fallbackOperation labels direct edges after the first operator character
// in expr.
func fallbackOperation(expr string) string {
	i := strings.IndexAny(expr, "*/-+")
	if i < 0 {
		return "+"
	}
	switch expr[i] {
	case '*':
		return "×"
	case '/':
		return "÷"
	case '-':
		return "−"
	}
	return "+"
}
