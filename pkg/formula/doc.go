// Package formula turns infix arithmetic formulas into syntax trees.
//
// A formula is built from identifiers ([A-Za-z_][A-Za-z0-9_]*), decimal
// literals, the operators + - * / ^ ** and parentheses:
//
//	(Capex + Opex) * (1 + Inflation_Rate)
//
// [Tokenize] splits the text, [Parse] builds a [Node] tree by recursive
// descent, and [Variables] lists the names the formula depends on:
//
//	ast, err := formula.ParseString("(Capex + Opex) * (1 + Inflation_Rate)")
//	if err != nil {
//	    return err
//	}
//	formula.Variables(ast) // [Capex Opex Inflation_Rate]
//
// # Precedence
//
// From tightest to loosest: power (^ and **), unary + and -, multiplication
// and division, addition and subtraction. Every binary tier folds left to
// right, power included, so "2 ^ 3 ^ 2" is (2 ^ 3) ^ 2.
//
// # Degraded input
//
// Parse errors wrap [ErrUnexpectedToken], [ErrMissingCloseParen] or
// [ErrTrailingTokens]. Callers that must always show something use
// [Inspect], which falls back to [ScanVariables] and [ScanOperators] instead
// of failing.
//
// # Resolution
//
// Names are resolved by the caller through a [Resolver]; [Map] is the usual
// snapshot implementation. Nothing in this package looks names up.
package formula
