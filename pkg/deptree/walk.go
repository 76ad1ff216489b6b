package deptree

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// FindPath returns the nodes from root down to the first node named target
// in depth-first order, or nil if target does not occur. The result is the
// ancestor chain a viewer highlights when target is selected.
func FindPath(root *Node, target string) []*Node {
	if root == nil {
		return nil
	}
	if root.Name == target {
		return []*Node{root}
	}
	for _, c := range root.Children {
		if p := FindPath(c, target); p != nil {
			return append([]*Node{root}, p...)
		}
	}
	return nil
}

// Leaves returns the distinct names of leaf nodes in depth-first order.
// Circular nodes are not leaves.
func Leaves(root *Node) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(root, func(n *Node) bool {
		if n.Kind == KindLeaf && !seen[n.Name] {
			seen[n.Name] = true
			out = append(out, n.Name)
		}
		return true
	})
	return out
}

// Stats summarises a tree.
type Stats struct {
	Formulas int `json:"formulas"`
	Leaves   int `json:"leaves"`
	Circular int `json:"circular"`
	MaxDepth int `json:"max_depth"`
}

// Nodes returns the total node count.
func (s Stats) Nodes() int { return s.Formulas + s.Leaves + s.Circular }

// Summarize counts the nodes of each kind and the deepest depth reached.
func Summarize(root *Node) Stats {
	var s Stats
	Walk(root, func(n *Node) bool {
		switch n.Kind {
		case KindFormula:
			s.Formulas++
		case KindLeaf:
			s.Leaves++
		case KindCircular:
			s.Circular++
		}
		s.MaxDepth = max(s.MaxDepth, n.Depth)
		return true
	})
	return s
}
