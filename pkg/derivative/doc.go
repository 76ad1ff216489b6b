// Package derivative computes partial derivatives of formulas.
//
// Two methods are available. [DifferentiateNode] walks the parsed AST and
// applies the sum, product, quotient and constant-exponent power rules,
// folding trivial 0 and 1 terms as it goes. [Differentiate] works on the
// formula text instead: it splits on top-level additive and multiplicative
// operators and falls back to the unresolved form "d(expr)/d(var)" for
// shapes it does not simplify. The textual method never fails and accepts
// formulas that do not parse.
//
// [Partials] runs one of them for every variable of a formula and
// annotates each result the way the derivative panel of a viewer does.
package derivative
