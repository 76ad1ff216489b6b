package formula

import (
	"strings"
)

// Walk visits n and its descendants in post-order, left operand before right.
func Walk(n Node, fn func(Node)) {
	switch v := n.(type) {
	case *Binary:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *Unary:
		Walk(v.Operand, fn)
	}
	if n != nil {
		fn(n)
	}
}

// Variables returns the distinct identifiers referenced by n, in the order
// they are first reached by a post-order, left-to-right walk. Numeric leaves
// are ignored.
func Variables(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(n, func(n Node) {
		if id, ok := n.(*Ident); ok && !seen[id.Name] {
			seen[id.Name] = true
			out = append(out, id.Name)
		}
	})
	return out
}

// VariableSet returns Variables(n) as a set.
func VariableSet(n Node) map[string]struct{} {
	set := make(map[string]struct{})
	for _, v := range Variables(n) {
		set[v] = struct{}{}
	}
	return set
}

// Operators returns the distinct binary operator symbols used in n, in
// discovery order. Power is reported as "**" regardless of spelling.
func Operators(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(n, func(n Node) {
		if b, ok := n.(*Binary); ok {
			sym := b.Op.Symbol()
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	})
	return out
}

// scanStopWords are tokens that look like identifiers but are never variables.
var scanStopWords = map[string]bool{"and": true, "or": true, "not": true}

// ScanVariables extracts identifier-shaped words from a formula without
// parsing it. It is the degraded path for formulas Parse rejects, so it
// tolerates any input and may over- or under-report.
func ScanVariables(expr string) []string {
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || strings.ContainsRune(operatorChars, r)
	})
	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if !IsIdentifier(f) || scanStopWords[strings.ToLower(f)] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ScanOperators returns the distinct operator characters in expr in the
// order they first appear. "**" is reported as a single operator.
func ScanOperators(expr string) []string {
	var out []string
	seen := make(map[string]bool)
	for i := 0; i < len(expr); i++ {
		var op string
		switch c := expr[i]; {
		case c == '*' && i+1 < len(expr) && expr[i+1] == '*':
			op = "**"
			i++
		case strings.IndexByte("+-*/^", c) >= 0:
			op = string(c)
		default:
			continue
		}
		if !seen[op] {
			seen[op] = true
			out = append(out, op)
		}
	}
	return out
}

// Expression is the result of [Inspect].
type Expression struct {
	Source    string
	AST       Node // nil when Fallback is set
	Variables []string
	Operators []string
	// Fallback is set when the formula did not parse and Variables and
	// Operators come from the text scan.
	Fallback bool
	// Err is the parse error behind a fallback.
	Err error
}

// Inspect parses expr and extracts its variables and operators. It never
// fails: a formula that does not parse is described by the text scan with
// Fallback set.
func Inspect(expr string) Expression {
	ast, err := ParseString(expr)
	if err != nil {
		return Expression{
			Source:    expr,
			Variables: ScanVariables(expr),
			Operators: ScanOperators(expr),
			Fallback:  true,
			Err:       err,
		}
	}
	return Expression{
		Source:    expr,
		AST:       ast,
		Variables: Variables(ast),
		Operators: Operators(ast),
	}
}
