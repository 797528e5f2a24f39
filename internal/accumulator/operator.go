package accumulator

import (
	"fmt"
	"math"
)

// Operator is a binary arithmetic operator, stored as its display symbol.
type Operator byte

const (
	Add      Operator = '+'
	Subtract Operator = '-'
	Multiply Operator = '*'
	Divide   Operator = '/'
)

// ParseOperator maps a token to an operator. Only the four symbols are accepted.
func ParseOperator(token string) (Operator, bool) {
	switch token {
	case "+":
		return Add, true
	case "-":
		return Subtract, true
	case "*":
		return Multiply, true
	case "/":
		return Divide, true
	}
	return 0, false
}

// OperatorFromName maps the HTTP operation names ("add", "subtract",
// "multiply", "divide") to operators.
func OperatorFromName(name string) (Operator, bool) {
	switch name {
	case "add":
		return Add, true
	case "subtract":
		return Subtract, true
	case "multiply":
		return Multiply, true
	case "divide":
		return Divide, true
	}
	return 0, false
}

// String returns the operator symbol.
func (o Operator) String() string {
	return string(rune(o))
}

// Name returns the lowercase operation name used in metrics and spans.
func (o Operator) Name() string {
	switch o {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Multiply:
		return "multiply"
	case Divide:
		return "divide"
	}
	return "unknown"
}

// Apply evaluates left <op> right.
func Apply(op Operator, left, right float64) (float64, error) {
	switch op {
	case Add:
		return left + right, nil
	case Subtract:
		return left - right, nil
	case Multiply:
		return left * right, nil
	case Divide:
		if right == 0 {
			return 0, fmt.Errorf("%w: %s / %s", ErrDivisionByZero, FormatNumber(left), FormatNumber(right))
		}
		return left / right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOperation, op.String())
}

// FormatNumber renders v in its shortest round-trip decimal form without an
// exponent: 10 becomes "10", 0.5 becomes "0.5". Infinities render as "inf" and
// "-inf" so the text parses back through ParseNumber.
func FormatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return formatFloat(v)
}
