package formula

import (
	"fmt"
	"strconv"
)

// Node is an element of a parsed formula.
//
// The concrete types are [*Number], [*Ident], [*Binary] and [*Unary]. Trees
// produced by [Parse] are finite and acyclic; each child is owned by exactly
// one parent.
type Node interface {
	// String renders the node as infix text, parenthesising only where
	// precedence requires it.
	String() string
	node()
}

// BinaryKind identifies a binary operation.
type BinaryKind int

const (
	OpAdd BinaryKind = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpPower
)

var binaryNames = map[BinaryKind]string{
	OpAdd:      "Add",
	OpSubtract: "Subtract",
	OpMultiply: "Multiply",
	OpDivide:   "Divide",
	OpPower:    "Power",
}

var binarySymbols = map[BinaryKind]string{
	OpAdd:      "+",
	OpSubtract: "-",
	OpMultiply: "*",
	OpDivide:   "/",
	OpPower:    "**",
}

// String returns the operation name ("Add", "Power", ...).
func (k BinaryKind) String() string {
	if s, ok := binaryNames[k]; ok {
		return s
	}
	return fmt.Sprintf("BinaryKind(%d)", int(k))
}

// Symbol returns the canonical operator text. Power is spelled "**".
func (k BinaryKind) Symbol() string { return binarySymbols[k] }

// precedence is the binding tier: higher binds tighter.
func (k BinaryKind) precedence() int {
	switch k {
	case OpAdd, OpSubtract:
		return 1
	case OpMultiply, OpDivide:
		return 2
	default:
		return 4
	}
}

// UnaryKind identifies a prefix operation.
type UnaryKind int

const (
	OpPlus UnaryKind = iota
	OpMinus
)

func (k UnaryKind) String() string {
	if k == OpMinus {
		return "Minus"
	}
	return "Plus"
}

// Symbol returns "+" or "-".
func (k UnaryKind) Symbol() string {
	if k == OpMinus {
		return "-"
	}
	return "+"
}

const unaryPrecedence = 3

// Number is a numeric literal leaf.
type Number struct {
	Value float64
	// Text is the literal as written; empty for synthesized numbers.
	Text string
}

// Ident is a variable reference leaf. The name is opaque to the parser.
type Ident struct {
	Name string
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op          BinaryKind
	Left, Right Node
}

// Unary applies a prefix Op to Operand.
type Unary struct {
	Op      UnaryKind
	Operand Node
}

func (*Number) node() {}
func (*Ident) node()  {}
func (*Binary) node() {}
func (*Unary) node()  {}

// Num returns a synthesized numeric leaf.
func Num(v float64) *Number { return &Number{Value: v} }

// Var returns an identifier leaf.
func Var(name string) *Ident { return &Ident{Name: name} }

// Bin returns a binary node.
func Bin(op BinaryKind, left, right Node) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// Neg returns the unary negation of operand.
func Neg(operand Node) *Unary { return &Unary{Op: OpMinus, Operand: operand} }

func (n *Number) String() string {
	if n.Text != "" {
		return n.Text
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (n *Ident) String() string { return n.Name }

func (n *Binary) String() string {
	p := n.Op.precedence()
	left := wrap(n.Left, p, false)
	right := wrap(n.Right, p, true)
	if n.Op == OpPower {
		return left + " ** " + right
	}
	return left + " " + n.Op.Symbol() + " " + right
}

func (n *Unary) String() string {
	s := n.Operand.String()
	switch c := n.Operand.(type) {
	case *Binary:
		// Even power needs parentheses: the grammar reads "-a ** b" as (-a) ** b.
		s = "(" + s + ")"
	case *Number:
		if c.Value < 0 {
			s = "(" + s + ")"
		}
	}
	return n.Op.Symbol() + s
}

// wrap parenthesises child when printing it under a parent of precedence p.
// The grammar folds every binary tier to the left, so a right operand of
// equal precedence needs parentheses to survive a reparse.
func wrap(child Node, p int, right bool) string {
	s := child.String()
	var cp int
	switch c := child.(type) {
	case *Binary:
		cp = c.Op.precedence()
	case *Unary:
		cp = unaryPrecedence
	case *Number:
		if c.Value < 0 {
			return "(" + s + ")"
		}
		return s
	default:
		return s
	}
	if cp < p || (right && cp == p) {
		return "(" + s + ")"
	}
	return s
}
