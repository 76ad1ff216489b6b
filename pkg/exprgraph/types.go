package exprgraph

// =============================================================================
// Kinds
// =============================================================================

// NodeKind classifies a graph node.
type NodeKind string

// Node kinds.
const (
	KindVariable  NodeKind = "variable"  // identifier or numeric literal
	KindOperation NodeKind = "operation" // operator applied to its inputs
	KindResult    NodeKind = "result"    // the formula being laid out
)

// EdgeKind classifies a graph edge.
type EdgeKind string

// Edge kinds.
const (
	EdgeInput  EdgeKind = "input"  // operand into operator
	EdgeOutput EdgeKind = "output" // expression root into the name it computes
	EdgeDirect EdgeKind = "direct" // variable straight into the result (fallback layout)
)

// =============================================================================
// Graph
// =============================================================================

// Graph is a laid-out expression graph. Every edge endpoint names a node in
// Nodes and node ids are unique; see [Validate].
type Graph struct {
	Root  string `json:"root,omitempty" bson:"root,omitempty"`
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
	// Fallback is set when the root formula did not parse and the graph is
	// the flat one-row approximation.
	Fallback bool `json:"fallback,omitempty" bson:"fallback,omitempty"`
}

// Node is a positioned graph vertex. Y grows downwards.
type Node struct {
	ID    string   `json:"id" bson:"id"`
	Label string   `json:"label" bson:"label"`
	Kind  NodeKind `json:"kind" bson:"kind"`
	X     float64  `json:"x" bson:"x"`
	Y     float64  `json:"y" bson:"y"`
	// Level is the row index below the result node (which is level 0).
	Level int `json:"level" bson:"level"`
	// Ref is the formula name a result or identifier node stands for. It is
	// empty for operations and literals.
	Ref string `json:"ref,omitempty" bson:"ref,omitempty"`
}

// Edge is a directed connection from an input towards what it feeds.
type Edge struct {
	ID        string   `json:"id" bson:"id"`
	From      string   `json:"from" bson:"from"`
	To        string   `json:"to" bson:"to"`
	Kind      EdgeKind `json:"kind" bson:"kind"`
	Operation string   `json:"operation,omitempty" bson:"operation,omitempty"`
}

// IsEmpty reports whether g has no nodes.
func (g Graph) IsEmpty() bool { return len(g.Nodes) == 0 }

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Bounds returns the bounding box of all node centres.
func (g Graph) Bounds() (minX, minY, maxX, maxY float64) {
	for i, n := range g.Nodes {
		if i == 0 {
			minX, maxX, minY, maxY = n.X, n.X, n.Y, n.Y
			continue
		}
		minX, maxX = min(minX, n.X), max(maxX, n.X)
		minY, maxY = min(minY, n.Y), max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY
}

// Expandable returns the Ref of every identifier node for which has reports
// a formula, deduplicated, in node order. Viewers use it to offer expansion
// toggles.
func (g Graph) Expandable(has func(name string) bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range g.Nodes {
		if n.Kind != KindVariable || n.Ref == "" || seen[n.Ref] {
			continue
		}
		seen[n.Ref] = true
		if has(n.Ref) {
			out = append(out, n.Ref)
		}
	}
	return out
}
