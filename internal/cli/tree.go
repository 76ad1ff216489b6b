package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/deptree"
)

// treeOpts holds the command-line flags for the tree command.
type treeOpts struct {
	source   sourceFlags
	maxDepth int
	path     string // highlight the chain from the root to this name
	json     bool
	noCache  bool
	refresh  bool
}

// treeCommand creates the tree command, which prints the dependency tree of
// a formula down to its input parameters.
func (c *CLI) treeCommand() *cobra.Command {
	opts := treeOpts{maxDepth: analysis.DefaultMaxDepth}

	cmd := &cobra.Command{
		Use:   "tree [formula]",
		Short: "Print the dependency tree of a formula",
		Long: `Print the dependency tree of a formula.

Every variable a formula references is expanded into its own formula until
only input parameters remain. Circular references are marked and not
followed, and expansion stops at --max-depth.

Examples:
  formulascope tree Total_Cost -f costs.yaml
  formulascope tree Total_Cost -f costs.yaml --path Unit_Price
  formulascope tree Net_Savings --solution 64b7f0c2a1e4d5f6a7b8c9d0 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd.Context(), args, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", opts.maxDepth, "maximum expansion depth")
	cmd.Flags().StringVar(&opts.path, "path", "", "highlight the path from the root to this name")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the tree as JSON")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if cached")

	return cmd
}

func (c *CLI) runTree(ctx context.Context, args []string, opts treeOpts) error {
	src, err := c.load(ctx, opts.source, args)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	aopts := analysis.Options{Root: src.Root, MaxDepth: analysis.Depth(opts.maxDepth), Refresh: opts.refresh, Logger: c.Logger}
	if err := aopts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	prog := newProgress(c.Logger, "Built dependency tree", src.Root)
	root, cacheHit, err := runner.TreeWithCacheInfo(ctx, src.Formulas, aopts)
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}
	prog.done(cacheHit, "max_depth", *aopts.MaxDepth)

	if opts.json {
		return encodeJSON(root)
	}

	var highlight []*deptree.Node
	if opts.path != "" {
		highlight = deptree.FindPath(root, opts.path)
		if highlight == nil {
			printWarning("%s does not occur in the tree of %s", opts.path, src.Root)
		}
	}

	fmt.Fprint(out, renderTree(root, highlight))
	printNewline()

	stats := deptree.Summarize(root)
	printStats(treeCounts(stats), cacheHit)
	if leaves := deptree.Leaves(root); len(leaves) > 0 {
		printKeyValue("Inputs", strings.Join(leaves, ", "))
	}
	if stats.Circular > 0 {
		printWarning("%d circular reference(s)", stats.Circular)
	}
	if len(highlight) > 0 {
		names := make([]string, len(highlight))
		for i, n := range highlight {
			names[i] = n.Name
		}
		printKeyValue("Path", strings.Join(names, " "+iconArrow+" "))
	}
	return nil
}

func treeCounts(s deptree.Stats) []string {
	return []string{
		fmt.Sprintf("%d formulas", s.Formulas),
		fmt.Sprintf("%d inputs", s.Leaves),
		fmt.Sprintf("depth %d", s.MaxDepth),
	}
}
