package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/analysis"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/exprgraph"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	source  sourceFlags
	output  string   // output file (single format) or base path (multiple)
	formats []string // output formats: "svg", "dot", "json"
	graph   string   // render a graph.json written by 'layout' instead of a formula
	expand  []string
	noCache bool
	refresh bool
}

// renderCommand creates the render command for drawing expression graphs.
// A formula is laid out first; --graph renders an existing layout as is.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr, expandStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [formula]",
		Short: "Render the expression graph of a formula to SVG or DOT",
		Long: `Render the expression graph of a formula to SVG or DOT.

SVG output is produced by Graphviz using the computed node positions. DOT
output can be fed to any Graphviz tool, and JSON is the graph itself.

Examples:
  formulascope render Total_Cost -f costs.yaml
  formulascope render Total_Cost -f costs.yaml --format svg,dot --expand Subtotal
  formulascope render --graph Total_Cost.graph.json -o cost.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			opts.expand = splitList(expandStr)
			if err := analysis.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVar(&formatsStr, "format", "", "output format(s): svg (default), dot, json (comma-separated)")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "render this graph.json instead of laying out a formula")
	cmd.Flags().StringVarP(&expandStr, "expand", "e", "", "variables to expand into their formulas (comma-separated)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if cached")
	cmd.MarkFlagsMutuallyExclusive("graph", "file")
	cmd.MarkFlagsMutuallyExclusive("graph", "solution")

	return cmd
}

// runRender obtains the graph, renders every requested format and writes
// one file per format.
func (c *CLI) runRender(ctx context.Context, args []string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var (
		g     exprgraph.Graph
		input string
	)
	if opts.graph != "" {
		if g, err = exprgraph.ReadFile(opts.graph); err != nil {
			return fmt.Errorf("load graph %s: %w", opts.graph, err)
		}
		input = opts.graph
		logger.Info("Loaded graph", "path", opts.graph, "nodes", len(g.Nodes), "edges", len(g.Edges))
	} else {
		src, err := c.load(ctx, opts.source, args)
		if err != nil {
			return err
		}
		aopts := analysis.Options{Root: src.Root, Expanded: opts.expand, Refresh: opts.refresh, Logger: c.Logger}
		if err := aopts.ValidateAndSetDefaults(); err != nil {
			return err
		}
		if g, err = runner.Layout(ctx, src.Formulas, aopts); err != nil {
			return fmt.Errorf("compute layout: %w", err)
		}
		input = src.Root
	}
	if g.IsEmpty() {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "graph %s has no nodes", input)
	}

	prog := newProgress(logger, "Rendered graph", g.Root)
	var cacheHit bool
	artifacts, err := spin(ctx, "Rendering...", "Render failed", func() (map[string][]byte, error) {
		a, hit, err := runner.RenderWithCacheInfo(ctx, g, analysis.Options{
			Root:    g.Root,
			Formats: opts.formats,
			Refresh: opts.refresh,
			Logger:  c.Logger,
		})
		cacheHit = hit
		return a, err
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	prog.done(cacheHit, "formats", strings.Join(opts.formats, ","))

	paths, err := writeArtifacts(artifacts, opts.formats, basePath(opts.output, input))
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", input)
	for _, p := range paths {
		printFile(p)
	}
	printStats(graphCounts(g), cacheHit)
	return nil
}

// writeArtifacts writes each format to base.<format>, in the order given.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := base + "." + format
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// basePath derives the base output path from the output and input names.
// If output is empty, it strips the extension from input. A format
// extension on output (.svg, .dot, .json) is stripped too.
func basePath(output, input string) string {
	if output == "" {
		input = strings.TrimSuffix(input, filepath.Ext(input))
		return strings.TrimSuffix(input, ".graph")
	}
	ext := filepath.Ext(output)
	if slices.Contains([]string{".svg", ".dot", ".json"}, ext) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
