package derivative

import (
	"fmt"
	"strings"

	"github.com/matzehuels/formulascope/pkg/formula"
)

// Method selects how Partials differentiates.
type Method int

const (
	// Structural differentiates the AST and falls back to Textual for
	// formulas that do not parse or use unsupported shapes.
	Structural Method = iota
	// Textual always uses [Differentiate].
	Textual
)

func (m Method) String() string {
	if m == Textual {
		return "textual"
	}
	return "structural"
}

// ParseMethod converts a method name as accepted on the command line.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "", "structural", "ast":
		return Structural, nil
	case "textual", "text":
		return Textual, nil
	}
	return 0, fmt.Errorf("unknown differentiation method %q", s)
}

// Partial is the derivative of a formula with respect to one variable.
type Partial struct {
	Variable   string `json:"variable"`
	Expression string `json:"expression"`
	// Method is the method that produced Expression, which is Textual when
	// Structural fell back.
	Method Method `json:"method"`
	// Impact is false when the derivative is identically zero.
	Impact bool `json:"impact"`
	// Multiplicative is set when the derivative still references variables,
	// i.e. the variable's effect is scaled by other inputs. Unresolved
	// "d(expr)/d(var)" parts of Expression are not counted.
	Multiplicative bool `json:"multiplicative"`
}

// ImpactLabel describes Impact for display.
func (p Partial) ImpactLabel() string {
	if p.Impact {
		return "Direct impact"
	}
	return "No direct impact"
}

// SensitivityLabel describes whether the result responds to the variable.
func (p Partial) SensitivityLabel() string {
	if p.Impact {
		return "Sensitive"
	}
	return "Insensitive"
}

// TypeLabel is "Multiplicative" or "Additive".
func (p Partial) TypeLabel() string {
	if p.Multiplicative {
		return "Multiplicative"
	}
	return "Additive"
}

// Partials differentiates expr with respect to each of its variables, in
// discovery order. It never fails.
func Partials(expr string, method Method) []Partial {
	info := formula.Inspect(expr)
	out := make([]Partial, 0, len(info.Variables))
	for _, v := range info.Variables {
		out = append(out, partial(info, v, method))
	}
	return out
}

func partial(info formula.Expression, v string, method Method) Partial {
	p := Partial{Variable: v, Method: Textual}
	if method == Structural && info.AST != nil {
		if d, err := DifferentiateNode(info.AST, v); err == nil {
			p.Expression = d.String()
			p.Method = Structural
		}
	}
	if p.Method == Textual {
		p.Expression = Differentiate(info.Source, v)
	}
	p.Impact = p.Expression != "0"
	p.Multiplicative = len(formula.ScanVariables(dropUnresolved(p.Expression))) > 0
	return p
}

// dropUnresolved removes every "d(expr)/d(var)" produced by [Differentiate]
// from s.
func dropUnresolved(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if end := unresolvedEnd(s, i); end > 0 {
			i = end
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// unresolvedEnd returns the index just past a "d(expr)/d(var)" starting at
// i, or -1.
func unresolvedEnd(s string, i int) int {
	if !strings.HasPrefix(s[i:], "d(") || (i > 0 && isIdentByte(s[i-1])) {
		return -1
	}
	closing := matchParen(s, i+1)
	if closing < 0 || !strings.HasPrefix(s[closing+1:], "/d(") {
		return -1
	}
	open := closing + 3
	end := matchParen(s, open)
	if end < 0 {
		return -1
	}
	return end + 1
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
