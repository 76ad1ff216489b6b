// Package pkg provides the core libraries for Formulascope formula analysis.
//
// # Overview
//
// Formulascope reads named arithmetic formulas (a solution's calculations),
// parses them into syntax trees, and answers three questions about them:
// what a formula depends on, how sensitive it is to each input, and what it
// looks like as a graph. The pkg directory is organized into four areas:
//
//  1. Domain logic: [formula], [deptree], [derivative], [exprgraph]
//  2. Orchestration: [analysis] (parse → tree/derive → layout → render)
//  3. Persistence: [solution], [io], [cache]
//  4. Surfaces: [server], [config], [observability], [errors]
//
// # Architecture
//
// The typical data flow:
//
//	Solution store or formula file
//	         ↓
//	    [formula] package (tokenize + parse, with textual fallback)
//	         ↓
//	    [deptree] / [derivative] packages (expand names, partial derivatives)
//	         ↓
//	    [exprgraph] package (node/edge layout, Graphviz rendering)
//	         ↓
//	    JSON / DOT / SVG output
//
// # Quick Start
//
// Expand a formula's dependencies and differentiate it:
//
//	import (
//	    "github.com/matzehuels/formulascope/pkg/deptree"
//	    "github.com/matzehuels/formulascope/pkg/derivative"
//	    "github.com/matzehuels/formulascope/pkg/formula"
//	)
//
//	m := formula.Map{
//	    "Total_Cost": "Subtotal + Shipping",
//	    "Subtotal":   "Price * Quantity",
//	}
//
//	// 1. Dependency tree
//	root := deptree.Build("Total_Cost", m)
//	fmt.Println(deptree.Leaves(root)) // [Price Quantity Shipping]
//
//	// 2. Partial derivatives
//	for _, p := range derivative.Partials(m["Subtotal"], derivative.Structural) {
//	    fmt.Println(p.Variable, p.Expression)
//	}
//
// Lay out and render a graph:
//
//	g := exprgraph.Layout("Total_Cost", m, []string{"Subtotal"})
//	svg, _ := exprgraph.RenderSVG(ctx, g)
//
// # Main Packages
//
// [formula] - Tokenizer, recursive-descent parser and AST for infix
// arithmetic. Malformed formulas never abort an analysis; callers get a
// textual fallback instead.
//
// [deptree] - Expands referenced names against a [formula.Resolver] with
// cycle detection and a depth guard.
//
// [derivative] - Symbolic partial derivatives (structural, over the AST)
// and a textual approximation for formulas that do not parse.
//
// [exprgraph] - Deterministic graph layout for the AST of a formula, with
// optional in-place expansion of referenced formulas.
//
// [analysis] - Cached orchestration used by the CLI and the HTTP server.
// Ensures consistent behavior across both entry points.
//
// [solution] - Solutions and their entities, with memory/file, SQLite and
// MongoDB stores.
//
// [cache] - File, memory and Redis caches plus the key scheme shared by
// every cached stage.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                # All tests
//	go test ./pkg/formula/...        # Specific package
//	go test -run Example ./pkg/...   # Examples only
//
// [formula]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/formula
// [formula.Resolver]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/formula#Resolver
// [deptree]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/deptree
// [derivative]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/derivative
// [exprgraph]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/exprgraph
// [analysis]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/analysis
// [solution]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/solution
// [io]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/io
// [cache]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/cache
// [server]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/server
// [config]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/formulascope/pkg/errors
package pkg
