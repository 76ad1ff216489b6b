// Package exprgraph lays out formula ASTs as positioned node/edge graphs.
//
// [Layout] produces a [Graph] whose nodes carry explicit coordinates, ready
// to draw without a layout engine:
//
//	g := exprgraph.Layout("Total_Cost", formulas, nil)
//
// The result node is at the top, operators and operands hang below it one
// row per AST level, and each row is centred horizontally. Passing names in
// the expanded list inlines their formulas as sub-forests under the
// corresponding identifier nodes. Node ids are namespaced by the id of the
// node they hang under ("Total_Cost.Capex", "Total_Cost#op0"), so the same
// name may appear in several branches.
//
// Graphs serialise to JSON ([Marshal], [Read]) and to Graphviz DOT with
// pinned positions ([ToDOT]); [RenderSVG] renders them through Graphviz.
package exprgraph
