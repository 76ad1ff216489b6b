package deptree

import (
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/formulascope/pkg/formula"
)

func childNames(n *Node) []string {
	var out []string
	for _, c := range n.Children {
		out = append(out, c.Name)
	}
	return out
}

func TestBuildTotalCost(t *testing.T) {
	formulas := formula.Map{"Total_Cost": "(Capex + Opex) * (1 + Inflation_Rate)"}
	tree := Build("Total_Cost", formulas)

	if tree.Kind != KindFormula {
		t.Fatalf("Kind = %v, want formula", tree.Kind)
	}
	if got, want := childNames(tree), []string{"Capex", "Opex", "Inflation_Rate"}; !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
	for _, c := range tree.Children {
		if c.Kind != KindLeaf {
			t.Errorf("%s.Kind = %v, want leaf", c.Name, c.Kind)
		}
		if c.Depth != 1 {
			t.Errorf("%s.Depth = %d, want 1", c.Name, c.Depth)
		}
	}
	s := Summarize(tree)
	if s.Leaves != 3 || s.Circular != 0 || s.Formulas != 1 {
		t.Errorf("Summarize = %+v, want 3 leaves, 0 circular, 1 formula", s)
	}
	if got, want := tree.Operators, []string{"+", "*"}; !slices.Equal(got, want) {
		t.Errorf("Operators = %v, want %v", got, want)
	}
}

func TestBuildCycle(t *testing.T) {
	tree := Build("A", formula.Map{"A": "B + 1", "B": "A + 1"})

	if len(tree.Children) != 1 || tree.Children[0].Name != "B" {
		t.Fatalf("A children = %v, want [B]", childNames(tree))
	}
	b := tree.Children[0]
	if b.Kind != KindFormula {
		t.Fatalf("B.Kind = %v, want formula", b.Kind)
	}
	if len(b.Children) != 1 || b.Children[0].Kind != KindCircular {
		t.Fatalf("B's child = %+v, want circular A", b.Children)
	}
	if b.Children[0].Name != "A" || len(b.Children[0].Children) != 0 {
		t.Errorf("circular node = %+v", b.Children[0])
	}
}

func TestBuildSelfReference(t *testing.T) {
	tree := Build("X", formula.Map{"X": "X * 2"})
	if len(tree.Children) != 1 || tree.Children[0].Kind != KindCircular {
		t.Errorf("children = %+v, want one circular X", tree.Children)
	}
}

func TestBuildUnresolved(t *testing.T) {
	tree := Build("X", formula.Map{})
	if tree.Kind != KindLeaf || tree.Name != "X" || len(tree.Children) != 0 {
		t.Errorf("Build(X, {}) = %+v, want single leaf X", tree)
	}
}

func TestBuildSiblingsExpandIndependently(t *testing.T) {
	formulas := formula.Map{
		"Root":   "Left + Right",
		"Left":   "Shared * 2",
		"Right":  "Shared / 2",
		"Shared": "Base + 1",
	}
	tree := Build("Root", formulas)
	for _, side := range tree.Children {
		shared := side.Children[0]
		if shared.Name != "Shared" || shared.Kind != KindFormula {
			t.Errorf("%s -> %s is %v, want formula", side.Name, shared.Name, shared.Kind)
		}
		if len(shared.Children) != 1 || shared.Children[0].Name != "Base" {
			t.Errorf("%s -> Shared children = %v", side.Name, childNames(shared))
		}
	}
	if got := Summarize(tree).Circular; got != 0 {
		t.Errorf("Circular = %d, want 0", got)
	}
}

func TestBuildDepthGuard(t *testing.T) {
	// F0 -> F1 -> ... -> F20 with no cycle.
	formulas := formula.Map{}
	for i := range 20 {
		formulas[fmt.Sprintf("F%d", i)] = fmt.Sprintf("F%d + 1", i+1)
	}

	tree := Build("F0", formulas)
	s := Summarize(tree)
	if s.MaxDepth != DefaultMaxDepth+1 {
		t.Errorf("MaxDepth = %d, want %d", s.MaxDepth, DefaultMaxDepth+1)
	}
	if s.Circular != 1 {
		t.Errorf("Circular = %d, want 1", s.Circular)
	}

	shallow := Build("F0", formulas, WithMaxDepth(2))
	path := FindPath(shallow, "F3")
	if len(path) != 4 {
		t.Fatalf("FindPath(F3) len = %d, want 4", len(path))
	}
	if last := path[len(path)-1]; last.Kind != KindCircular || last.Depth != 3 {
		t.Errorf("F3 = %v at depth %d, want circular at 3", last.Kind, last.Depth)
	}
}

func TestBuildMalformedFormulaFallsBack(t *testing.T) {
	tree := Build("Bad", formula.Map{"Bad": "(Price * Qty", "Price": "Base + Tax"})
	if !tree.Fallback {
		t.Error("Fallback = false, want true")
	}
	if got, want := childNames(tree), []string{"Price", "Qty"}; !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
	if tree.Children[0].Kind != KindFormula {
		t.Errorf("Price.Kind = %v, want formula", tree.Children[0].Kind)
	}
}

func TestBuildDoesNotMutateResolver(t *testing.T) {
	m := formula.Map{"A": "B + C", "B": "C * 2"}
	before := m.Clone()
	Build("A", m)
	if len(m) != len(before) || m["A"] != before["A"] || m["B"] != before["B"] {
		t.Errorf("map changed: %v, was %v", m, before)
	}
}

func TestFindPathAndLeaves(t *testing.T) {
	tree := Build("Total", formula.Map{
		"Total": "Sub + Tax",
		"Sub":   "Price * Qty",
		"Tax":   "Sub * Rate",
	})

	path := FindPath(tree, "Rate")
	var names []string
	for _, n := range path {
		names = append(names, n.Name)
	}
	if want := []string{"Total", "Tax", "Rate"}; !slices.Equal(names, want) {
		t.Errorf("FindPath(Rate) = %v, want %v", names, want)
	}
	if FindPath(tree, "Nope") != nil {
		t.Error("FindPath(Nope) != nil")
	}

	if got, want := Leaves(tree), []string{"Price", "Qty", "Rate"}; !slices.Equal(got, want) {
		t.Errorf("Leaves = %v, want %v", got, want)
	}
}

func TestKindJSON(t *testing.T) {
	tree := Build("A", formula.Map{"A": "A + b"})
	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatal(err)
	}
	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Kind != KindFormula || back.Children[0].Kind != KindCircular || back.Children[1].Kind != KindLeaf {
		t.Errorf("round trip kinds = %v, %v, %v", back.Kind, back.Children[0].Kind, back.Children[1].Kind)
	}

	var k Kind
	if err := k.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText(bogus) error = nil")
	}
}
