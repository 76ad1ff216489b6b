package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/formulascope/pkg/analysis"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "dot", []string{"dot"}},
		{"multiple formats", "svg,dot,json", []string{"svg", "dot", "json"}},
		{"blanks dropped", " svg, ,dot ", []string{"svg", "dot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("parseFormats(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
				return
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"valid svg", []string{"svg"}, false},
		{"valid dot", []string{"dot"}, false},
		{"valid json", []string{"json"}, false},
		{"valid all", []string{"svg", "dot", "json"}, false},
		{"png unsupported", []string{"png"}, true},
		{"mixed valid invalid", []string{"svg", "invalid"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := analysis.ValidateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "Total_Cost", "Total_Cost"},
		{"", "graphs/Total_Cost.graph.json", "graphs/Total_Cost"},
		{"out/cost.svg", "Total_Cost", "out/cost"},
		{"out/cost.dot", "Total_Cost", "out/cost"},
		{"out/cost", "Total_Cost", "out/cost"},
		{"out/cost.v2", "Total_Cost", "out/cost.v2"},
	}

	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "graph")
	artifacts := map[string][]byte{
		"dot": []byte("digraph G {}"),
		"svg": []byte("<svg/>"),
	}

	paths, err := writeArtifacts(artifacts, []string{"svg", "dot", "json"}, base)
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}
	if len(paths) != 2 || paths[0] != base+".svg" || paths[1] != base+".dot" {
		t.Errorf("paths = %v, want [%s.svg %s.dot]", paths, base, base)
	}
	data, err := os.ReadFile(base + ".dot")
	if err != nil || string(data) != "digraph G {}" {
		t.Errorf("dot file = %q, %v", data, err)
	}
}
