package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/formula"
	fio "github.com/matzehuels/formulascope/pkg/io"
)

// parseOpts holds the command-line flags for the parse command.
type parseOpts struct {
	json   bool   // print a JSON report instead of the styled one
	export string // write the formula to this formula map file
	name   string // formula name used with --export
}

// parseReport is what parse prints with --json.
type parseReport struct {
	Formula   string   `json:"formula"`
	Valid     bool     `json:"valid"`
	Error     string   `json:"error,omitempty"`
	Tokens    []string `json:"tokens,omitempty"`
	AST       string   `json:"ast,omitempty"`
	Variables []string `json:"variables"`
	Operators []string `json:"operators"`
	Fallback  bool     `json:"fallback"`
	IsFormula bool     `json:"is_formula"`
}

// parseCommand creates the parse command, which tokenizes and parses a
// single expression and reports what the engine sees in it.
func (c *CLI) parseCommand() *cobra.Command {
	var opts parseOpts

	cmd := &cobra.Command{
		Use:   "parse <expression>",
		Short: "Tokenize and parse a formula",
		Long: `Tokenize and parse a formula.

Prints the tokens, the fully parenthesised syntax tree, and the variables and
operators the formula uses. A formula that does not parse is still described
by a text scan, which is how every other command treats it.

Examples:
  formulascope parse "Unit_Price * Quantity + Shipping"
  formulascope parse "a ^ 2 / b" --json
  formulascope parse "Labor_Hours * Rate" --export cost.yaml --name Labor_Cost`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print a JSON report")
	cmd.Flags().StringVar(&opts.export, "export", "", "write the formula to a formula map file (.yaml, .toml, .json)")
	cmd.Flags().StringVar(&opts.name, "name", "Result", "formula name for --export")

	return cmd
}

func (c *CLI) runParse(expr string, opts parseOpts) error {
	rep := inspect(expr)

	if opts.export != "" {
		if err := exportFormula(expr, opts); err != nil {
			return err
		}
	}

	if opts.json {
		return encodeJSON(rep)
	}

	if rep.Valid {
		printSuccess("Parsed formula")
	} else {
		printWarning("Formula did not parse; showing the text scan")
		printDetail("%s", rep.Error)
	}
	printKeyValue("Formula", expr)
	if len(rep.Tokens) > 0 {
		printKeyValue("Tokens", strings.Join(rep.Tokens, " "))
	}
	if rep.AST != "" {
		printKeyValue("Parsed", rep.AST)
	}
	printKeyValue("Variables", listOrNone(rep.Variables))
	printKeyValue("Operators", listOrNone(rep.Operators))
	if !rep.IsFormula {
		printDetail("No operator: treated as a plain value, not a formula")
	}
	if opts.export != "" {
		printNewline()
		printFile(opts.export)
		printNextStep("Explore", fmt.Sprintf("%s tree -f %s", appName, opts.export))
	}
	return nil
}

// inspect builds the parse report for expr. Validation failures and lex
// errors are reported, not returned.
func inspect(expr string) parseReport {
	info := formula.Inspect(expr)
	rep := parseReport{
		Formula:   expr,
		Valid:     !info.Fallback,
		Variables: nonNil(info.Variables),
		Operators: nonNil(info.Operators),
		Fallback:  info.Fallback,
		IsFormula: formula.HasOperator(expr),
	}
	if err := formula.Validate(expr); err != nil {
		rep.Valid = false
		rep.Error = err.Error()
	} else if info.Err != nil {
		rep.Error = info.Err.Error()
	}
	if toks, err := formula.Tokenize(expr); err == nil {
		for _, t := range toks {
			rep.Tokens = append(rep.Tokens, t.String())
		}
	}
	if info.AST != nil {
		rep.AST = info.AST.String()
	}
	return rep
}

func exportFormula(expr string, opts parseOpts) error {
	if !formula.IsIdentifier(opts.name) {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "--name %q is not an identifier", opts.name)
	}
	doc := fio.Document{Root: opts.name, Formulas: formula.Seed(opts.name, expr)}
	if err := fio.Export(doc, opts.export); err != nil {
		return fmt.Errorf("export %s: %w", opts.export, err)
	}
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return StyleDim.Render("none")
	}
	return strings.Join(items, ", ")
}
