package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/exprgraph"
)

// layoutCommand creates the layout command for computing expression graphs.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		source  sourceFlags
		output  string
		expand  string
		centerX float64
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "layout [formula]",
		Short: "Compute the expression graph of a formula",
		Long: `Compute the expression graph of a formula.

The graph has one node per operand and operation, laid out in rows below
the result. Variables named with --expand are replaced by their own
formula's subgraph, placed to the side of the main tree. The output is a
graph.json file that 'render --graph' turns into SVG or DOT.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.load(cmd.Context(), source, args)
			if err != nil {
				return err
			}
			opts := analysis.Options{
				Root:     src.Root,
				Expanded: splitList(expand),
				CenterX:  centerX,
				Refresh:  refresh,
			}
			return c.runLayout(cmd.Context(), src, opts, output, noCache)
		},
	}

	source.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <formula>.graph.json)")
	cmd.Flags().StringVarP(&expand, "expand", "e", "", "variables to expand into their formulas (comma-separated)")
	cmd.Flags().Float64Var(&centerX, "center-x", 0, "x coordinate of the result node")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even if cached")

	return cmd
}

// runLayout computes the graph and writes it as JSON.
func (c *CLI) runLayout(ctx context.Context, src formulaSource, opts analysis.Options, output string, noCache bool) error {
	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger, "Laid out graph", src.Root)
	var cacheHit bool
	g, err := spin(ctx, fmt.Sprintf("Laying out %s...", src.Root), "Layout failed", func() (exprgraph.Graph, error) {
		g, hit, err := runner.LayoutWithCacheInfo(ctx, src.Formulas, opts)
		cacheHit = hit
		return g, err
	})
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	prog.done(cacheHit, "expanded", len(opts.Expanded))

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = src.Root + ".graph.json"
	}
	if err := exprgraph.WriteFile(g, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(graphCounts(g), cacheHit)
	if g.Fallback {
		printWarning("%s did not parse; the graph is a flat approximation", src.Root)
	}
	if more := g.Expandable(src.Formulas.Has); len(more) > 0 {
		printDetail("Expandable: %s", listOrNone(more))
	}
	printNewline()
	printNextStep("Render", appName+" render --graph "+outputPath)

	return nil
}

func graphCounts(g exprgraph.Graph) []string {
	return []string{
		fmt.Sprintf("%d nodes", len(g.Nodes)),
		fmt.Sprintf("%d edges", len(g.Edges)),
	}
}
