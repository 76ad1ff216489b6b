package derivative

import (
	"strings"
	"unicode"
)

// Differentiate returns the partial derivative of expr with respect to
// variable, computed on the formula text.
//
// Whitespace is removed first. The result is "0" when variable does not
// occur as a whole identifier and "1" when expr is exactly variable.
// Otherwise the first applicable rule wins:
//
//  1. A sum or difference at the outermost level is differentiated term by
//     term, dropping zero terms and keeping signs.
//  2. A product of exactly two outermost factors uses the product rule,
//     omitting zero branches and trivial factors of 1.
//  3. A parenthesised group holding every occurrence of variable is
//     differentiated inside; surrounding multiplicative factors are kept as
//     a coefficient.
//  4. Anything else is returned as "d(expr)/d(variable)".
func Differentiate(expr, variable string) string {
	return diffText(stripSpace(expr), variable)
}

func diffText(e, v string) string {
	if v == "" || !containsIdent(e, v) {
		return "0"
	}
	if e == v {
		return "1"
	}

	terms := splitTerms(e)
	switch {
	case len(terms) > 1 || terms[0].neg:
		return diffSum(terms, v)
	case terms[0].text != e:
		return diffText(terms[0].text, v)
	}

	if factors := splitAt(e, productSplits(e)); len(factors) == 2 {
		return diffProduct(factors[0], factors[1], v)
	}

	if d, ok := diffGroup(e, v); ok {
		return d
	}

	return unresolved(e, v)
}

func unresolved(e, v string) string {
	return "d(" + e + ")/d(" + v + ")"
}

type term struct {
	text string
	neg  bool
}

func splitTerms(e string) []term {
	var terms []term
	neg := false
	start := 0
	if e != "" && (e[0] == '-' || e[0] == '+') {
		neg = e[0] == '-'
		start = 1
	}
	for _, i := range additiveSplits(e) {
		terms = append(terms, term{text: e[start:i], neg: neg})
		neg = e[i] == '-'
		start = i + 1
	}
	return append(terms, term{text: e[start:], neg: neg})
}

func diffSum(terms []term, v string) string {
	var b strings.Builder
	for _, t := range terms {
		d := diffText(t.text, v)
		if d == "0" {
			continue
		}
		switch {
		case b.Len() == 0 && t.neg:
			b.WriteString("-" + groupIfSigned(d))
		case b.Len() == 0:
			b.WriteString(d)
		case t.neg:
			b.WriteString(" - " + groupIfSigned(d))
		default:
			b.WriteString(" + " + d)
		}
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

func diffProduct(a, b, v string) string {
	da := diffText(a, v)
	db := diffText(b, v)
	switch {
	case da == "0" && db == "0":
		return "0"
	case da == "0":
		return scale(a, db)
	case db == "0":
		return scale(b, da)
	}
	return scale(a, db) + " + " + scale(b, da)
}

// scale renders coefficient c times derivative d, dropping a factor of 1.
func scale(c, d string) string {
	if d == "1" {
		return c
	}
	return c + " * " + groupIfSigned(d)
}

// diffGroup applies rule 3 to the first balanced parenthesised group of e.
func diffGroup(e, v string) (string, bool) {
	open := strings.IndexByte(e, '(')
	if open < 0 {
		return "", false
	}
	end := matchParen(e, open)
	if end < 0 {
		return "", false
	}
	before, inner, after := e[:open], e[open+1:end], e[end+1:]
	if containsIdent(before+" "+after, v) {
		return "", false
	}
	d := diffText(inner, v)
	if d == "0" {
		return "0", true
	}

	const hole = "\x00"
	rest := before + hole + after
	if rest == hole {
		return d, true
	}
	var coef []string
	found := false
	for _, f := range splitAt(rest, productSplits(rest)) {
		if f == hole {
			found = true
			continue
		}
		if strings.Contains(f, hole) {
			return "", false
		}
		coef = append(coef, f)
	}
	if !found {
		return "", false
	}
	c := strings.Join(coef, "*")
	if d == "1" {
		return c, true
	}
	return c + " * (" + d + ")", true
}

// groupIfSigned parenthesises d when it is a sum or starts with a sign, so
// it can follow '-' or '*'.
func groupIfSigned(d string) string {
	s := stripSpace(d)
	if strings.HasPrefix(s, "-") || len(additiveSplits(s)) > 0 {
		return "(" + d + ")"
	}
	return d
}

// additiveSplits returns the offsets of binary '+' and '-' outside any
// parentheses. Signs that follow another operator, an opening parenthesis
// or a numeric exponent marker are unary.
func additiveSplits(s string) []int {
	var out []int
	depth := 0
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-':
			if depth == 0 && prev != 0 && strings.IndexByte("+-*/^(", prev) < 0 && !isExponentSign(s, i) {
				out = append(out, i)
			}
		}
		prev = c
	}
	return out
}

// productSplits returns the offsets of '*' outside parentheses that are not
// part of "**".
func productSplits(s string) []int {
	var out []int
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '*':
			if depth != 0 {
				continue
			}
			if (i+1 < len(s) && s[i+1] == '*') || (i > 0 && s[i-1] == '*') {
				continue
			}
			out = append(out, i)
		}
	}
	return out
}

func splitAt(s string, at []int) []string {
	out := make([]string, 0, len(at)+1)
	start := 0
	for _, i := range at {
		out = append(out, s[start:i])
		start = i + 1
	}
	return append(out, s[start:])
}

// matchParen returns the index of the ')' closing the '(' at open, or -1.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// isExponentSign reports whether the sign at i belongs to a literal such as
// "1e-5".
func isExponentSign(s string, i int) bool {
	if i < 2 || (s[i-1] != 'e' && s[i-1] != 'E') {
		return false
	}
	j := i - 2
	digits := 0
	for j >= 0 && (isDigit(s[j]) || s[j] == '.') {
		if isDigit(s[j]) {
			digits++
		}
		j--
	}
	return digits > 0 && (j < 0 || !isIdentByte(s[j]))
}

// containsIdent reports whether name occurs in s as a whole identifier.
func containsIdent(s, name string) bool {
	for off := 0; ; {
		i := strings.Index(s[off:], name)
		if i < 0 {
			return false
		}
		i += off
		end := i + len(name)
		if (i == 0 || !isIdentByte(s[i-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return true
		}
		off = i + 1
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
