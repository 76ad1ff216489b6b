package formula

import (
	"errors"
	"testing"
)

// shape renders an AST as prefix notation for structural assertions.
func shape(n Node) string {
	switch v := n.(type) {
	case *Binary:
		return v.Op.String() + "(" + shape(v.Left) + ", " + shape(v.Right) + ")"
	case *Unary:
		return v.Op.String() + "(" + shape(v.Operand) + ")"
	default:
		return n.String()
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a", "a"},
		{"42", "42"},
		{"a - b - c", "Subtract(Subtract(a, b), c)"},
		{"a + b * c", "Add(a, Multiply(b, c))"},
		{"a * b + c", "Add(Multiply(a, b), c)"},
		{"(a + b) * c", "Multiply(Add(a, b), c)"},
		{"a / b / c", "Divide(Divide(a, b), c)"},
		{"2 ^ 3 ^ 2", "Power(Power(2, 3), 2)"},
		{"2 ** 3", "Power(2, 3)"},
		{"-a", "Minus(a)"},
		{"--a", "Minus(Minus(a))"},
		{"+a", "Plus(a)"},
		{"-a ^ 2", "Power(Minus(a), 2)"},
		{"a * -b", "Multiply(a, Minus(b))"},
		{"((a))", "a"},
		{"(Capex + Opex) * (1 + Inflation_Rate)", "Multiply(Add(Capex, Opex), Add(1, Inflation_Rate))"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := ParseString(tt.input)
			if err != nil {
				t.Fatalf("ParseString(%q) error: %v", tt.input, err)
			}
			if got := shape(n); got != tt.want {
				t.Errorf("shape = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		want    error
		wantTok TokenKind
	}{
		{"", ErrUnexpectedToken, TokenEOF},
		{"a +", ErrUnexpectedToken, TokenEOF},
		{"* a", ErrUnexpectedToken, TokenOperator},
		{"3x", ErrUnexpectedToken, TokenIdent},
		{"a.b + 1", ErrUnexpectedToken, TokenIdent},
		{"(a + b", ErrMissingCloseParen, TokenEOF},
		{"a b", ErrTrailingTokens, TokenIdent},
		{"a)", ErrTrailingTokens, TokenRParen},
		{"()", ErrUnexpectedToken, TokenRParen},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseString(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseString(%q) error = %v, want %v", tt.input, err, tt.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.Token.Kind != tt.wantTok {
				t.Errorf("Token.Kind = %v, want %v", pe.Token.Kind, tt.wantTok)
			}
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := ParseString("a b c")
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := err.Error(), "unexpected tokens after expression: b c"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	_, err = ParseString("a + $")
	if got, want := err.Error(), `unexpected token "$" at offset 4`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNodeStringRoundTrip(t *testing.T) {
	inputs := []string{
		"a - (b - c)",
		"a - b - c",
		"a / (b * c)",
		"(a + b) * (c - d)",
		"-(a + b)",
		"-a ** 2",
		"(-a) ** 2",
		"-(a ** 2)",
		"2 ^ (3 ^ 2)",
		"a * -b",
		"(Capex + Opex) * (1 + Inflation_Rate)",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			n, err := ParseString(in)
			if err != nil {
				t.Fatal(err)
			}
			printed := n.String()
			again, err := ParseString(printed)
			if err != nil {
				t.Fatalf("reparse %q: %v", printed, err)
			}
			if shape(again) != shape(n) {
				t.Errorf("String() = %q reparses as %s, want %s", printed, shape(again), shape(n))
			}
		})
	}
}

func TestNodeStringMinimalParens(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Bin(OpAdd, Var("a"), Bin(OpMultiply, Var("b"), Var("c"))), "a + b * c"},
		{Bin(OpMultiply, Bin(OpAdd, Var("a"), Var("b")), Var("c")), "(a + b) * c"},
		{Bin(OpSubtract, Var("a"), Bin(OpSubtract, Var("b"), Var("c"))), "a - (b - c)"},
		{Bin(OpPower, Var("x"), Num(2)), "x ** 2"},
		{Bin(OpMultiply, Num(-3), Var("x")), "(-3) * x"},
		{Neg(Var("x")), "-x"},
	}
	for _, tt := range tests {
		if got := tt.node.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := map[string]bool{
		"a":              true,
		"_x1":            true,
		"Inflation_Rate": true,
		"1a":             false,
		"a.b":            false,
		"":               false,
		"a-b":            false,
	}
	for in, want := range tests {
		if got := IsIdentifier(in); got != want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", in, got, want)
		}
	}
}
