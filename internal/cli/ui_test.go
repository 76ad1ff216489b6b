package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/formulascope/pkg/derivative"
	"github.com/matzehuels/formulascope/pkg/deptree"
	"github.com/matzehuels/formulascope/pkg/formula"
)

func TestRenderTree(t *testing.T) {
	m := formula.Map{
		"Total":    "Subtotal + Fee",
		"Subtotal": "Price * Qty",
		"Loop":     "Total + 1",
	}
	root := deptree.Build("Total", m)
	got := renderTree(root, nil)

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("renderTree lines = %d, want 5:\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "Total") || !strings.Contains(lines[0], "= Subtotal + Fee") {
		t.Errorf("root line = %q", lines[0])
	}
	for i, want := range []string{"├── Subtotal", "│   ├── Price", "│   └── Qty", "└── Fee"} {
		if !strings.Contains(lines[i+1], want) {
			t.Errorf("line %d = %q, want it to contain %q", i+1, lines[i+1], want)
		}
	}
}

func TestRenderTreeCircular(t *testing.T) {
	m := formula.Map{"A": "B + 1", "B": "A * 2"}
	got := renderTree(deptree.Build("A", m), nil)
	if !strings.Contains(got, iconCircular+" A") {
		t.Errorf("circular reference not marked:\n%s", got)
	}
}

func TestRenderTreeHighlight(t *testing.T) {
	m := formula.Map{"Total": "Subtotal + Fee", "Subtotal": "Price * Qty"}
	root := deptree.Build("Total", m)
	got := renderTree(root, deptree.FindPath(root, "Qty"))

	if n := strings.Count(got, "▸"); n != 3 {
		t.Errorf("highlighted %d nodes, want 3:\n%s", n, got)
	}
	var feeLine string
	for _, line := range strings.Split(got, "\n") {
		if strings.Contains(line, "└── Fee") {
			feeLine = line
		}
	}
	if feeLine == "" {
		t.Fatalf("no leaf line for Fee:\n%s", got)
	}
	if strings.Contains(feeLine, "▸") {
		t.Errorf("Fee is off the path but highlighted: %q", feeLine)
	}
	for _, name := range []string{"Total", "Subtotal", "Qty"} {
		if !strings.Contains(got, "▸ "+name) {
			t.Errorf("%s is on the path but not highlighted:\n%s", name, got)
		}
	}
}

func TestRenderPartials(t *testing.T) {
	got := renderPartials(derivative.Partials("a * b + c", derivative.Structural))
	for _, want := range []string{"Variable", "a", "Multiplicative", "Additive", "Direct impact"} {
		if !strings.Contains(got, want) {
			t.Errorf("renderPartials missing %q:\n%s", want, got)
		}
	}
}

func TestPrintStats(t *testing.T) {
	buf := captureOutput(t)
	printStats([]string{"3 formulas", "4 inputs"}, true)
	got := buf.String()
	for _, want := range []string{"3 formulas", "4 inputs", iconCached} {
		if !strings.Contains(got, want) {
			t.Errorf("printStats output %q missing %q", got, want)
		}
	}

	buf.Reset()
	printStats(nil, false)
	if !strings.Contains(buf.String(), iconFresh) {
		t.Errorf("printStats(fresh) = %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much longer text", 5, "much…"},
		{"ÄÖÜäöü", 4, "ÄÖÜ…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
