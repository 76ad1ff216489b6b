package exprgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateNode is returned by Validate when two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrOrphanEdge is returned by Validate when an edge endpoint is not a node.
	ErrOrphanEdge = errors.New("edge references unknown node")
)

// Validate checks that node ids are unique and every edge connects two
// nodes of g.
func Validate(g Graph) error {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if ids[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		ids[n.ID] = true
	}
	for _, e := range g.Edges {
		if !ids[e.From] {
			return fmt.Errorf("%w: %s from %s", ErrOrphanEdge, e.ID, e.From)
		}
		if !ids[e.To] {
			return fmt.Errorf("%w: %s to %s", ErrOrphanEdge, e.ID, e.To)
		}
	}
	return nil
}
