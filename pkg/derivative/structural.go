package derivative

import (
	"errors"
	"fmt"
	"math"

	"github.com/matzehuels/formulascope/pkg/formula"
)

// ErrUnsupported is returned for expressions outside the supported rules,
// currently any power whose exponent depends on the variable.
var ErrUnsupported = errors.New("unsupported expression")

// DifferentiateNode returns d(n)/d(variable) as a new tree. n is not
// modified, although unchanged subtrees may be shared with the result.
func DifferentiateNode(n formula.Node, variable string) (formula.Node, error) {
	switch v := n.(type) {
	case *formula.Number:
		return zero, nil
	case *formula.Ident:
		if v.Name == variable {
			return one, nil
		}
		return zero, nil
	case *formula.Unary:
		d, err := DifferentiateNode(v.Operand, variable)
		if err != nil {
			return nil, err
		}
		if v.Op == formula.OpMinus {
			return neg(d), nil
		}
		return d, nil
	case *formula.Binary:
		return diffBinary(v, variable)
	}
	return nil, fmt.Errorf("%w: node %T", ErrUnsupported, n)
}

func diffBinary(b *formula.Binary, x string) (formula.Node, error) {
	u, w := b.Left, b.Right
	du, err := DifferentiateNode(u, x)
	if err != nil {
		return nil, err
	}
	if b.Op == formula.OpPower {
		if dependsOn(w, x) {
			return nil, fmt.Errorf("%w: exponent %s depends on %s", ErrUnsupported, w, x)
		}
		// n * u^(n-1) * u'
		return mul(mul(w, pow(u, sub(w, one))), du), nil
	}
	dw, err := DifferentiateNode(w, x)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case formula.OpAdd:
		return add(du, dw), nil
	case formula.OpSubtract:
		return sub(du, dw), nil
	case formula.OpMultiply:
		return add(mul(du, w), mul(u, dw)), nil
	case formula.OpDivide:
		if isNum(dw, 0) {
			return div(du, w), nil
		}
		return div(sub(mul(du, w), mul(u, dw)), pow(w, two)), nil
	}
	return nil, fmt.Errorf("%w: operator %v", ErrUnsupported, b.Op)
}

func dependsOn(n formula.Node, x string) bool {
	_, ok := formula.VariableSet(n)[x]
	return ok
}

var (
	zero = formula.Num(0)
	one  = formula.Num(1)
	two  = formula.Num(2)
)

// num returns a literal, normalising negative zero.
func num(v float64) formula.Node {
	if v == 0 {
		return zero
	}
	return formula.Num(v)
}

func isNum(n formula.Node, v float64) bool {
	c, ok := n.(*formula.Number)
	return ok && c.Value == v
}

func constant(n formula.Node) (float64, bool) {
	c, ok := n.(*formula.Number)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// The constructors below fold 0 and 1 identities and literal arithmetic.

func add(a, b formula.Node) formula.Node {
	if x, ok := constant(a); ok {
		if y, ok := constant(b); ok {
			return num(x + y)
		}
	}
	switch {
	case isNum(a, 0):
		return b
	case isNum(b, 0):
		return a
	}
	return formula.Bin(formula.OpAdd, a, b)
}

func sub(a, b formula.Node) formula.Node {
	if x, ok := constant(a); ok {
		if y, ok := constant(b); ok {
			return num(x - y)
		}
	}
	switch {
	case isNum(b, 0):
		return a
	case isNum(a, 0):
		return neg(b)
	}
	return formula.Bin(formula.OpSubtract, a, b)
}

func mul(a, b formula.Node) formula.Node {
	if x, ok := constant(a); ok {
		if y, ok := constant(b); ok {
			return num(x * y)
		}
	}
	switch {
	case isNum(a, 0), isNum(b, 0):
		return zero
	case isNum(a, 1):
		return b
	case isNum(b, 1):
		return a
	case isNum(a, -1):
		return neg(b)
	case isNum(b, -1):
		return neg(a)
	}
	return formula.Bin(formula.OpMultiply, a, b)
}

func div(a, b formula.Node) formula.Node {
	if x, ok := constant(a); ok {
		if y, ok := constant(b); ok && y != 0 {
			return num(x / y)
		}
	}
	switch {
	case isNum(a, 0):
		return zero
	case isNum(b, 1):
		return a
	}
	return formula.Bin(formula.OpDivide, a, b)
}

func pow(a, b formula.Node) formula.Node {
	if x, ok := constant(a); ok {
		if y, ok := constant(b); ok {
			if r := math.Pow(x, y); !math.IsNaN(r) && !math.IsInf(r, 0) {
				return num(r)
			}
		}
	}
	switch {
	case isNum(b, 0):
		return one
	case isNum(b, 1):
		return a
	}
	return formula.Bin(formula.OpPower, a, b)
}

func neg(a formula.Node) formula.Node {
	if x, ok := constant(a); ok {
		return num(-x)
	}
	if u, ok := a.(*formula.Unary); ok && u.Op == formula.OpMinus {
		return u.Operand
	}
	return formula.Neg(a)
}
