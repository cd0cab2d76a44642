package value

import "math"

// BinaryOp applies a binary arithmetic operator. "+" concatenates when
// either operand is a string; every other combination coerces both
// sides numerically. Division and modulo by zero yield 0 so that
// scripts stay non-fatal.
func BinaryOp(op string, left, right Value) Value {
	if op == "+" && (left.kind == KindString || right.kind == KindString) {
		return NewString(ToString(left) + ToString(right))
	}

	l := ToNumber(left)
	r := ToNumber(right)

	switch op {
	case "+":
		return NewNumber(l + r)
	case "-":
		return NewNumber(l - r)
	case "*":
		return NewNumber(l * r)
	case "/":
		if r == 0 {
			return NewNumber(0)
		}
		return NewNumber(l / r)
	case "%":
		if r == 0 {
			return NewNumber(0)
		}
		return NewNumber(math.Mod(l, r))
	default:
		return Null
	}
}

// IsBinaryOp reports whether tok is one of the supported arithmetic
// operators.
func IsBinaryOp(tok string) bool {
	switch tok {
	case "+", "-", "*", "/", "%":
		return true
	default:
		return false
	}
}
