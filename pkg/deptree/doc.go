// Package deptree expands a formula's referenced names into a dependency tree.
//
// [Build] resolves each variable of a formula through a [formula.Resolver]
// and recurses into the ones that have formulas of their own. Names without
// a formula become [KindLeaf] nodes. A name that reappears on its own
// ancestor path, or any node deeper than the depth budget, becomes a
// [KindCircular] terminal instead of being expanded again. Building never
// fails: formulas that do not parse are expanded from a text scan of their
// variables.
//
// The visited set is copied per branch, so a name shared by two sibling
// subtrees is expanded under both:
//
//	tree := deptree.Build("Total_Cost", formula.Map{
//	    "Total_Cost": "(Capex + Opex) * (1 + Inflation_Rate)",
//	    "Capex":      "Hardware + Install",
//	})
//	deptree.Summarize(tree) // {Formulas:2 Leaves:4 Circular:0 MaxDepth:2}
package deptree
