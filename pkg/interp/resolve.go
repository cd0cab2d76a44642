package interp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/morroware/retroscript/pkg/parser"
	"github.com/morroware/retroscript/pkg/value"
)

var varRefRe = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*`)

// resolveExpr evaluates an unresolved expression against the live
// environment. Expressions stay lazy until this point so that a
// statement parsed once can observe different bindings on each run.
func (in *Interp) resolveExpr(e parser.Expr, line int) (value.Value, error) {
	switch e.Kind {
	case parser.ExprNone:
		return value.Null, nil

	case parser.ExprString:
		return value.NewString(in.interpolate(e.Text)), nil

	case parser.ExprRaw:
		return in.resolveRaw(e.Text, line)

	case parser.ExprBinary:
		left, err := in.resolveExpr(*e.Left, line)
		if err != nil {
			return value.Null, err
		}
		right, err := in.resolveExpr(*e.Right, line)
		if err != nil {
			return value.Null, err
		}
		return value.BinaryOp(e.Op, left, right), nil

	case parser.ExprCall:
		args, err := in.resolveArgs(e.Args, line)
		if err != nil {
			return value.Null, err
		}
		return in.callFunction(e.Name, args, line)

	case parser.ExprArray:
		return in.resolveArrayLiteral(e.Text, line)

	case parser.ExprObject:
		return in.resolveObjectLiteral(e.Text, line)

	default:
		return value.Null, in.errorf(line, "unresolvable expression")
	}
}

// resolveRaw resolves one unquoted token by literal recognition order:
// variable reference, number, boolean, null, then opaque string.
func (in *Interp) resolveRaw(tok string, line int) (value.Value, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return value.Null, nil
	}

	if strings.HasPrefix(tok, "$") && varRefRe.FindString(tok) == tok {
		// An unbound reference reads as null rather than erroring.
		v, ok := in.env.Get(tok[1:])
		if !ok {
			return value.Null, nil
		}
		return v, nil
	}

	if n, err := strconv.ParseFloat(tok, 64); err == nil {
		return value.NewNumber(n), nil
	}

	switch strings.ToLower(tok) {
	case "true":
		return value.NewBool(true), nil
	case "false":
		return value.NewBool(false), nil
	case "null":
		return value.Null, nil
	}

	if strings.HasPrefix(tok, "[") {
		return in.resolveArrayLiteral(tok, line)
	}
	if strings.HasPrefix(tok, "{") {
		return in.resolveObjectLiteral(tok, line)
	}

	return value.NewString(in.interpolate(tok)), nil
}

// interpolate substitutes $identifier references inside plain string
// text. Unbound references are left verbatim.
func (in *Interp) interpolate(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return varRefRe.ReplaceAllStringFunc(s, func(ref string) string {
		v, ok := in.env.Get(ref[1:])
		if !ok {
			return ref
		}
		return value.ToString(v)
	})
}

// resolveArrayLiteral parses "[a, b, c]" text. Elements are resolved
// eagerly: variable references inside a literal take their value at
// construction time.
func (in *Interp) resolveArrayLiteral(text string, line int) (value.Value, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return value.Null, in.errorf(line, "malformed array literal: %s", text)
	}

	inner := strings.TrimSpace(text[1 : len(text)-1])
	if inner == "" {
		return value.NewArray(nil), nil
	}

	var elems []value.Value
	for _, part := range parser.SplitTop(inner, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := in.resolveExpr(parser.ParseValue(part), line)
		if err != nil {
			return value.Null, err
		}
		elems = append(elems, v)
	}
	return value.NewArray(elems), nil
}

// resolveObjectLiteral parses "{key: value, …}" text.
func (in *Interp) resolveObjectLiteral(text string, line int) (value.Value, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return value.Null, in.errorf(line, "malformed object literal: %s", text)
	}

	inner := strings.TrimSpace(text[1 : len(text)-1])
	fields := make(map[string]value.Value)
	if inner == "" {
		return value.NewObject(fields), nil
	}

	for _, part := range parser.SplitTop(inner, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := parser.SplitTop(part, ':')
		if len(kv) < 2 {
			return value.Null, in.errorf(line, "malformed object field: %s", part)
		}
		key := strings.TrimSpace(kv[0])
		key = strings.Trim(key, `"'`)
		raw := strings.TrimSpace(strings.Join(kv[1:], ":"))

		v, err := in.resolveExpr(parser.ParseValue(raw), line)
		if err != nil {
			return value.Null, err
		}
		fields[key] = v
	}
	return value.NewObject(fields), nil
}
