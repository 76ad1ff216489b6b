package formula

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyFormula is returned by Validate for blank input.
	ErrEmptyFormula = errors.New("formula is empty")

	// ErrInvalidCharacter is returned by Validate for characters outside the
	// formula alphabet.
	ErrInvalidCharacter = errors.New("invalid character")

	// ErrUnbalancedParens is returned by Validate when parentheses do not pair up.
	ErrUnbalancedParens = errors.New("unbalanced parentheses")
)

// Validate checks that formula is non-blank, uses only letters, digits,
// underscores, dots, whitespace, operators and parentheses, has balanced
// parentheses, and parses.
func Validate(formula string) error {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return ErrEmptyFormula
	}

	depth := 0
	for i, r := range trimmed {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched ')' at offset %d", ErrUnbalancedParens, i)
			}
		case !isFormulaRune(r):
			return fmt.Errorf("%w %q at offset %d", ErrInvalidCharacter, r, i)
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed '('", ErrUnbalancedParens, depth)
	}

	_, err := ParseString(trimmed)
	return err
}

func isFormulaRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.':
		return true
	case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		return true
	}
	return strings.ContainsRune("+-*/^", r)
}

// HasOperator reports whether formula contains at least one arithmetic
// operator, i.e. whether it computes something rather than aliasing a
// single value.
func HasOperator(formula string) bool {
	return strings.ContainsAny(formula, "+-*/^")
}
