// Package io reads and writes formula maps.
//
// # Overview
//
// A formula map assigns an expression to each calculation name. It is the
// input of every engine operation, and this package lets the CLI take one
// from a file instead of a solution store:
//
//	doc, err := io.Import("costs.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree := deptree.Build(doc.Root, doc.Formulas)
//
// # Formats
//
// Three encodings carry the same document. YAML:
//
//	root: Total_Cost
//	formulas:
//	  Total_Cost: Capex + Opex * Years
//	  Opex: Energy + Maintenance
//
// TOML:
//
//	root = "Total_Cost"
//
//	[formulas]
//	Total_Cost = "Capex + Opex * Years"
//	Opex = "Energy + Maintenance"
//
// and JSON with the same two keys. The format is picked from the file
// extension by [FormatFromPath].
//
// # Validation
//
// Reading checks that every name is usable (non-empty, no control
// characters) and that root, when given, names a formula. Formulas
// themselves are not parsed: a formula that does not parse still has a
// dependency tree, built by the fallback scan.
package io
