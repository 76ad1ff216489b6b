package deptree

import (
	"fmt"

	"github.com/matzehuels/formulascope/pkg/formula"
)

// DefaultMaxDepth is the depth beyond which nodes are cut off as circular.
const DefaultMaxDepth = 10

// Kind classifies a tree node.
type Kind int

const (
	// KindLeaf is a name with no formula: a parameter or an unresolved reference.
	KindLeaf Kind = iota
	// KindFormula is a name whose formula was expanded into children.
	KindFormula
	// KindCircular is a name that recurs on its ancestor path or exceeds the
	// depth budget. It has no children.
	KindCircular
)

var kindNames = map[Kind]string{
	KindLeaf:     "leaf",
	KindFormula:  "formula",
	KindCircular: "circular",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("deptree: unknown kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("deptree: unknown kind %q", b)
}

// Node is one name in a dependency tree. Trees are built fresh per call and
// owned by the caller.
type Node struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// Expression is the raw formula; empty unless Kind is KindFormula.
	Expression string `json:"expression,omitempty"`
	// Operators are the distinct operator symbols used in Expression.
	Operators []string `json:"operators,omitempty"`
	// Children follow the order in which the formula's variables are first
	// discovered.
	Children []*Node `json:"children,omitempty"`
	Depth    int     `json:"depth"`
	// Fallback is set when Expression did not parse and the children come
	// from a text scan.
	Fallback bool `json:"fallback,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Option configures Build.
type Option func(*options)

type options struct {
	maxDepth int
}

// WithMaxDepth sets the depth budget. Values below zero are ignored.
func WithMaxDepth(d int) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxDepth = d
		}
	}
}

// Build expands root into a dependency tree using r to look up formulas.
//
// Rules are applied in order: a name already on the current path is
// circular; a node deeper than the depth budget is circular; a name r
// cannot resolve is a leaf; anything else is a formula node whose children
// are built with the path extended by its name.
func Build(root string, r formula.Resolver, opts ...Option) *Node {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return build(root, r, o.maxDepth, 0, nil)
}

func build(name string, r formula.Resolver, maxDepth, depth int, path map[string]bool) *Node {
	if path[name] || depth > maxDepth {
		return &Node{Name: name, Kind: KindCircular, Depth: depth}
	}
	expr, ok := r.Lookup(name)
	if !ok {
		return &Node{Name: name, Kind: KindLeaf, Depth: depth}
	}

	info := formula.Inspect(expr)
	n := &Node{
		Name:       name,
		Kind:       KindFormula,
		Expression: expr,
		Operators:  info.Operators,
		Depth:      depth,
		Fallback:   info.Fallback,
	}

	next := make(map[string]bool, len(path)+1)
	for k := range path {
		next[k] = true
	}
	next[name] = true

	for _, v := range info.Variables {
		n.Children = append(n.Children, build(v, r, maxDepth, depth+1, next))
	}
	return n
}
