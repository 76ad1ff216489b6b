package formula

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrUnexpectedToken is returned when a token cannot start a factor,
	// including an expression that ends where an operand is required.
	ErrUnexpectedToken = errors.New("unexpected token")

	// ErrMissingCloseParen is returned when a "(" has no matching ")".
	ErrMissingCloseParen = errors.New("missing closing parenthesis")

	// ErrTrailingTokens is returned when tokens remain after a complete expression.
	ErrTrailingTokens = errors.New("unexpected tokens after expression")
)

// identRe is the identifier syntax accepted at factor position.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a valid formula identifier.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// ParseError describes where parsing stopped. Err is one of the sentinel
// errors above, so callers can use errors.Is.
type ParseError struct {
	Err   error
	Token Token
	// Index is the position of Token in the token sequence.
	Index int
	// Rest holds the unconsumed token text for ErrTrailingTokens.
	Rest []string
}

func (e *ParseError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTrailingTokens):
		return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Rest, " "))
	case e.Token.Kind == TokenEOF:
		return fmt.Sprintf("%v: %s", e.Err, e.Token)
	default:
		return fmt.Sprintf("%v %q at offset %d", e.Err, e.Token.Text, e.Token.Pos)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseString tokenizes and parses formula.
func ParseString(formula string) (Node, error) {
	tokens, err := Tokenize(formula)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// Parse builds an AST from tokens by recursive descent.
//
// Binary tiers fold left to right, so "a - b - c" is (a - b) - c and, because
// the power tier loops instead of recursing on its right operand, "a ^ b ^ c"
// is (a ^ b) ^ c as well. Identifiers are not resolved.
func Parse(tokens []Token) (Node, error) {
	p := &parser{tokens: tokens}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		rest := make([]string, 0, len(p.tokens)-p.pos)
		for _, t := range p.tokens[p.pos:] {
			rest = append(rest, t.Text)
		}
		return nil, &ParseError{Err: ErrTrailingTokens, Token: p.peek(), Index: p.pos, Rest: rest}
	}
	return n, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	end := 0
	if n := len(p.tokens); n > 0 {
		last := p.tokens[n-1]
		end = last.Pos + len(last.Text)
	}
	return Token{Kind: TokenEOF, Pos: end}
}

// accept consumes the next token if it is one of ops.
func (p *parser) accept(ops ...string) (string, bool) {
	t := p.peek()
	if t.Kind != TokenOperator {
		return "", false
	}
	for _, op := range ops {
		if t.Text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) expr() (Node, error) { return p.addSub() }

func (p *parser) addSub() (Node, error) {
	left, err := p.mulDiv()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.mulDiv()
		if err != nil {
			return nil, err
		}
		kind := OpAdd
		if op == "-" {
			kind = OpSubtract
		}
		left = Bin(kind, left, right)
	}
}

func (p *parser) mulDiv() (Node, error) {
	left, err := p.power()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("*", "/")
		if !ok {
			return left, nil
		}
		right, err := p.power()
		if err != nil {
			return nil, err
		}
		kind := OpMultiply
		if op == "/" {
			kind = OpDivide
		}
		left = Bin(kind, left, right)
	}
}

func (p *parser) power() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("^", "**"); !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = Bin(OpPower, left, right)
	}
}

func (p *parser) unary() (Node, error) {
	op, ok := p.accept("+", "-")
	if !ok {
		return p.factor()
	}
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	kind := OpPlus
	if op == "-" {
		kind = OpMinus
	}
	return &Unary{Op: kind, Operand: operand}, nil
}

func (p *parser) factor() (Node, error) {
	t := p.peek()
	switch t.Kind {
	case TokenLParen:
		p.pos++
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != TokenRParen {
			return nil, &ParseError{Err: ErrMissingCloseParen, Token: p.peek(), Index: p.pos}
		}
		p.pos++
		return n, nil
	case TokenNumber:
		p.pos++
		return &Number{Value: t.Value, Text: t.Text}, nil
	case TokenIdent:
		if IsIdentifier(t.Text) {
			p.pos++
			return &Ident{Name: t.Text}, nil
		}
	}
	return nil, &ParseError{Err: ErrUnexpectedToken, Token: t, Index: p.pos}
}
