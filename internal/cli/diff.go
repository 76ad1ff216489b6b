package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/derivative"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
)

// diffOpts holds the command-line flags for the diff command.
type diffOpts struct {
	source   sourceFlags
	method   string
	variable string // only show the partial for this variable
	expr     string // differentiate a raw expression instead of a named formula
	json     bool
	noCache  bool
	refresh  bool
}

// diffCommand creates the diff command, which prints the partial derivative
// of a formula with respect to each of its variables.
func (c *CLI) diffCommand() *cobra.Command {
	opts := diffOpts{method: analysis.DefaultMethod}

	cmd := &cobra.Command{
		Use:   "diff [formula]",
		Short: "Partial derivatives of a formula",
		Long: `Partial derivatives of a formula.

Differentiates the formula with respect to each variable it references and
classifies the result: whether the variable has a direct impact and whether
its effect is additive or scaled by other inputs.

The structural method differentiates the parsed expression and simplifies
the result; it falls back to the textual method for formulas it cannot
handle. The textual method works on the formula text directly.

Examples:
  formulascope diff Total_Cost -f costs.yaml
  formulascope diff --expr "a * b + c" --var a
  formulascope diff Revenue -f model.toml --method textual`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiff(cmd.Context(), args, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVarP(&opts.method, "method", "m", opts.method, "differentiation method: structural (default), textual")
	cmd.Flags().StringVar(&opts.variable, "var", "", "only show the derivative with respect to this variable")
	cmd.Flags().StringVar(&opts.expr, "expr", "", "differentiate this expression instead of a named formula")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the partials as JSON")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if cached")

	return cmd
}

func (c *CLI) runDiff(ctx context.Context, args []string, opts diffOpts) error {
	method, err := derivative.ParseMethod(opts.method)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid --method")
	}

	var (
		expr     string
		label    string
		partials []derivative.Partial
		cacheHit bool
	)
	if opts.expr != "" {
		expr, label = opts.expr, "expression"
		if err := apperrors.ValidateFormula(expr); err != nil {
			return err
		}
		partials = derivative.Partials(expr, method)
	} else {
		src, err := c.load(ctx, opts.source, args)
		if err != nil {
			return err
		}
		runner, err := c.newRunner(ctx, opts.noCache)
		if err != nil {
			return fmt.Errorf("initialize runner: %w", err)
		}
		defer runner.Close()

		aopts := analysis.Options{Root: src.Root, Method: method.String(), Refresh: opts.refresh, Logger: c.Logger}
		if err := aopts.ValidateAndSetDefaults(); err != nil {
			return err
		}
		prog := newProgress(c.Logger, "Computed partial derivatives", src.Root)
		partials, cacheHit, err = runner.DerivativesWithCacheInfo(ctx, src.Formulas, aopts)
		if err != nil {
			return fmt.Errorf("differentiate: %w", err)
		}
		prog.done(cacheHit, "method", aopts.Method)
		expr, _ = src.Formulas.Lookup(src.Root)
		label = src.Root
	}

	if opts.variable != "" {
		partials = selectPartial(partials, opts.variable)
		if len(partials) == 0 {
			return apperrors.New(apperrors.ErrCodeNotFound, "%s does not reference %q", label, opts.variable)
		}
	}

	if opts.json {
		return encodeJSON(nonNil(partials))
	}

	printKeyValue(label, expr)
	if len(partials) == 0 {
		printInfo("No variables: the formula is constant")
		return nil
	}
	fmt.Fprintln(out, renderPartials(partials))

	impact := 0
	fellBack := false
	for _, p := range partials {
		if p.Impact {
			impact++
		}
		if p.Method != method {
			fellBack = true
		}
	}
	printStats([]string{
		fmt.Sprintf("%d variables", len(partials)),
		fmt.Sprintf("%d with impact", impact),
		method.String(),
	}, cacheHit)
	if fellBack {
		printDetail("Some derivatives used the textual method: the formula did not parse")
	}
	return nil
}

func selectPartial(partials []derivative.Partial, variable string) []derivative.Partial {
	for _, p := range partials {
		if p.Variable == variable {
			return []derivative.Partial{p}
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
