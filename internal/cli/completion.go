package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/formula"
	fio "github.com/matzehuels/formulascope/pkg/io"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for formulascope.

To load completions:

Bash:
  $ source <(formulascope completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ formulascope completion bash > /etc/bash_completion.d/formulascope
  # macOS:
  $ formulascope completion bash > $(brew --prefix)/etc/bash_completion.d/formulascope

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ formulascope completion zsh > "${fpath[1]}/_formulascope"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ formulascope completion fish | source

  # To load completions for each session, execute once:
  $ formulascope completion fish > ~/.config/fish/completions/formulascope.fish

PowerShell:
  PS> formulascope completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> formulascope completion powershell > formulascope.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(w)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}

	return cmd
}

// completeFormulaFiles limits --file completion to formula map extensions.
func completeFormulaFiles(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml", "toml", "json"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeFormulaNames completes the [formula] argument with the names
// defined in --file and --formula. Stored solutions are not queried.
func (s *sourceFlags) completeFormulaNames(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	m := formula.Map{}
	if s.file != "" {
		if doc, err := fio.Import(s.file); err == nil {
			m = doc.Formulas
		}
	}
	for _, f := range s.formulas {
		if name, expr, err := parseFormulaFlag(f); err == nil {
			m[name] = expr
		}
	}

	var names []string
	for name, expr := range m {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name+"\t"+truncate(expr, 40))
		}
	}
	sort.Strings(names)
	return names, cobra.ShellCompDirectiveNoFileComp
}
