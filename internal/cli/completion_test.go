package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteFormulaNames(t *testing.T) {
	path := writeFile(t, "costs.yaml", costsYAML)

	tests := []struct {
		name       string
		flags      sourceFlags
		args       []string
		toComplete string
		want       []string
	}{
		{"all names from file", sourceFlags{file: path}, nil, "", []string{"Shipping", "Subtotal", "Total_Cost"}},
		{"prefix", sourceFlags{file: path}, nil, "Sub", []string{"Subtotal"}},
		{"formula flag layered", sourceFlags{file: path, formulas: []string{"Rate=Base * 2"}}, nil, "R", []string{"Rate"}},
		{"unreadable file", sourceFlags{file: path + ".missing"}, nil, "", nil},
		{"argument already given", sourceFlags{file: path}, []string{"Total_Cost"}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, directive := tt.flags.completeFormulaNames(nil, tt.args, tt.toComplete)
			if directive != cobra.ShellCompDirectiveNoFileComp {
				t.Errorf("directive = %v, want NoFileComp", directive)
			}
			names := make([]string, len(got))
			for i, c := range got {
				names[i], _, _ = strings.Cut(c, "\t")
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("completions = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestCompletionCommand(t *testing.T) {
	c := testCLI(t)
	root := c.RootCommand()
	var buf strings.Builder
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatalf("completion bash: %v", err)
	}
	if !strings.Contains(buf.String(), "formulascope") {
		t.Error("bash completion does not mention formulascope")
	}

	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Error("completion tcsh should fail")
	}
}
