package interp

import (
	"strings"

	"github.com/morroware/retroscript/pkg/parser"
	"github.com/morroware/retroscript/pkg/value"
)

// evalCond evaluates a condition string. '||' binds loosest, then
// '&&', then a comparison or a bare truthy operand. Both operands of a
// comparison are resolved lazily against the live environment.
func (in *Interp) evalCond(cond string, line int) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false, nil
	}

	for _, orClause := range splitLogical(cond, "||") {
		all := true
		for _, andClause := range splitLogical(orClause, "&&") {
			ok, err := in.evalAtom(andClause, line)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func (in *Interp) evalAtom(atom string, line int) (bool, error) {
	atom = strings.TrimSpace(atom)
	if atom == "" {
		return false, nil
	}

	if wrapped(atom) {
		return in.evalCond(atom[1:len(atom)-1], line)
	}

	op, idx := findCompare(atom)
	if idx < 0 {
		v, err := in.resolveExpr(parser.ParseValue(atom), line)
		if err != nil {
			return false, err
		}
		return value.Truthy(v), nil
	}

	left, err := in.resolveExpr(parser.ParseValue(atom[:idx]), line)
	if err != nil {
		return false, err
	}
	right, err := in.resolveExpr(parser.ParseValue(atom[idx+len(op):]), line)
	if err != nil {
		return false, err
	}

	switch op {
	case "==":
		return compareEqual(left, right), nil
	case "!=":
		return !compareEqual(left, right), nil
	case ">":
		return value.ToNumber(left) > value.ToNumber(right), nil
	case "<":
		return value.ToNumber(left) < value.ToNumber(right), nil
	case ">=":
		return value.ToNumber(left) >= value.ToNumber(right), nil
	case "<=":
		return value.ToNumber(left) <= value.ToNumber(right), nil
	default:
		return false, in.errorf(line, "unknown comparison: %s", op)
	}
}

// compareEqual is the equality used by == and !=. Values of the same
// kind compare deeply; values of different kinds are never equal, so
// the string "5" stays distinct from the number 5.
func compareEqual(l, r value.Value) bool {
	return l.Kind() == r.Kind() && l.Equal(r)
}

// wrapped reports whether the whole atom is one balanced
// parenthesized group.
func wrapped(s string) bool {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// splitLogical splits on a two-character logical operator at the top
// nesting level, quote-aware.
func splitLogical(s, op string) []string {
	var parts []string
	var quote byte
	depth := 0
	start := 0

	for i := 0; i+1 < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[' || ch == '{' || ch == '(':
			depth++
		case ch == ']' || ch == '}' || ch == ')':
			depth--
		case depth == 0 && s[i:i+2] == op:
			parts = append(parts, s[start:i])
			start = i + 2
			i++
		}
	}
	parts = append(parts, s[start:])

	return parts
}

// findCompare locates the first top-level comparison operator. Longer
// operators are matched before their one-character prefixes.
func findCompare(s string) (string, int) {
	var quote byte
	depth := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			continue
		case ch == '"' || ch == '\'':
			quote = ch
			continue
		case ch == '[' || ch == '{' || ch == '(':
			depth++
			continue
		case ch == ']' || ch == '}' || ch == ')':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}

		if i+1 < len(s) {
			two := s[i : i+2]
			switch two {
			case "==", "!=", ">=", "<=":
				return two, i
			}
		}
		if ch == '>' || ch == '<' {
			return string(ch), i
		}
	}
	return "", -1
}
