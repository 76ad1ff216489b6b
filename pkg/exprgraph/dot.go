package exprgraph

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts g to Graphviz DOT with every node pinned at its layout
// position. Graphviz measures y upwards, so rows are flipped around the
// lowest node.
func ToDOT(g Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  notranslate=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  edge [dir=back, fontsize=12];\n")
	buf.WriteString("\n")

	_, _, _, maxY := g.Bounds()
	for _, n := range g.Nodes {
		x, y := n.X, maxY-n.Y
		attrs := []string{
			fmt.Sprintf("label=%q", n.Label),
			fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(x), fmtFloat(y)),
		}
		attrs = append(attrs, kindAttrs(n.Kind)...)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		// Arrows point from the consumer down to its inputs, matching the
		// top-down reading order of the tree.
		attrs := []string{}
		if e.Kind == EdgeDirect && e.Operation != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Operation))
		}
		if e.Kind == EdgeOutput {
			attrs = append(attrs, "style=bold")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.To, e.From)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.To, e.From, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func kindAttrs(k NodeKind) []string {
	switch k {
	case KindResult:
		return []string{"fillcolor=\"#dbeafe\"", "penwidth=2"}
	case KindOperation:
		return []string{"shape=circle", "fillcolor=\"#fef3c7\""}
	}
	return nil
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderSVG renders g through Graphviz with node positions pinned.
func RenderSVG(ctx context.Context, g Graph) ([]byte, error) {
	return RenderDOT(ctx, ToDOT(g))
}

// RenderDOT renders a DOT document to SVG using the neato engine.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	pg, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer pg.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, pg, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's fixed-size svg header with one that
// scales with its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
