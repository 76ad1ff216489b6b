package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrLex is returned by [Tokenize] when it produces an empty token. The
// accumulation rules make this unreachable for any input string; the check
// stays as an invariant guard.
var ErrLex = errors.New("lex error")

// TokenKind classifies a [Token].
type TokenKind int

const (
	// TokenEOF marks the end of input. Tokenize never emits it; the parser
	// uses it to report an expression that ends too early.
	TokenEOF TokenKind = iota
	TokenNumber
	TokenIdent
	TokenOperator
	TokenLParen
	TokenRParen
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:      "end of input",
	TokenNumber:   "number",
	TokenIdent:    "identifier",
	TokenOperator: "operator",
	TokenLParen:   "(",
	TokenRParen:   ")",
}

func (k TokenKind) String() string {
	if s, ok := tokenKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexeme of a formula.
//
// Value is only meaningful for TokenNumber. Pos is the byte offset of the
// token's first character in the input.
type Token struct {
	Kind  TokenKind
	Text  string
	Value float64
	Pos   int
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}
	return t.Text
}

// IsOperator reports whether t is the operator op.
func (t Token) IsOperator(op string) bool {
	return t.Kind == TokenOperator && t.Text == op
}

// operatorChars are the characters that always terminate a run.
const operatorChars = "+-*/^()"

// Tokenize splits input into tokens, preserving left-to-right order.
//
// Whitespace separates tokens and is otherwise ignored. The two-character
// operator "**" is matched before "*". Any maximal run of other characters
// becomes a single token: a number if it parses as a float, an identifier
// otherwise. Identifier syntax is not checked here; [Parse] rejects runs such
// as "3x" or "a.b" at factor position.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	start := -1

	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		tok, err := classify(input[start:end], start)
		start = -1
		if err != nil {
			return err
		}
		tokens = append(tokens, tok)
		return nil
	}

	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case isSpace(c):
			if err := flush(i); err != nil {
				return nil, err
			}
			i++
		case c == '*' && i+1 < len(input) && input[i+1] == '*':
			if err := flush(i); err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokenOperator, Text: "**", Pos: i})
			i += 2
		case strings.IndexByte(operatorChars, c) >= 0:
			if err := flush(i); err != nil {
				return nil, err
			}
			tokens = append(tokens, punct(c, i))
			i++
		default:
			if start < 0 {
				start = i
			}
			i++
		}
	}
	if err := flush(len(input)); err != nil {
		return nil, err
	}
	return tokens, nil
}

func classify(text string, pos int) (Token, error) {
	if text == "" {
		return Token{}, fmt.Errorf("%w: empty token at %d", ErrLex, pos)
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil && isNumericLiteral(text) {
		return Token{Kind: TokenNumber, Text: text, Value: v, Pos: pos}, nil
	}
	return Token{Kind: TokenIdent, Text: text, Pos: pos}, nil
}

// isNumericLiteral rejects spellings strconv accepts but formulas never mean
// as numbers ("Inf", "NaN", hex floats).
func isNumericLiteral(text string) bool {
	c := text[0]
	return (c >= '0' && c <= '9') || c == '.'
}

func punct(c byte, pos int) Token {
	switch c {
	case '(':
		return Token{Kind: TokenLParen, Text: "(", Pos: pos}
	case ')':
		return Token{Kind: TokenRParen, Text: ")", Pos: pos}
	default:
		return Token{Kind: TokenOperator, Text: string(c), Pos: pos}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
