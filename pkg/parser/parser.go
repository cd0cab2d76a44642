package parser

import (
	"regexp"
	"strings"
)

// Parse converts script source into a statement tree. The whole script
// fails on the first malformed statement; partial execution is never
// possible.
func Parse(src string) (*Script, error) {
	lines, err := LogicalLines(src)
	if err != nil {
		return nil, err
	}

	stmts, err := parseLines(lines, 0)
	if err != nil {
		return nil, err
	}

	return &Script{Statements: stmts}, nil
}

func parseLines(lines []Line, offset int) ([]Statement, error) {
	var out []Statement
	for _, ln := range lines {
		st, err := parseLogical(ln.Text, ln.Number+offset)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// parseLogical parses one logical line (possibly a folded brace block).
func parseLogical(text string, lineNo int) (Statement, error) {
	// Semicolons split a plain line into a block of statements.
	if !strings.ContainsAny(text, "{}") {
		parts := SplitTop(text, ';')
		if len(parts) > 1 {
			var body []Statement
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				st, err := parseLogical(p, lineNo)
				if err != nil {
					return Statement{}, err
				}
				body = append(body, st)
			}
			return Statement{Kind: KindBlock, Line: lineNo, Body: body}, nil
		}
	}

	tokens := TokenizeDetailed(text)
	if len(tokens) == 0 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "empty statement"}
	}

	keyword := strings.ToLower(tokens[0].Text)
	if tokens[0].Quoted {
		keyword = ""
	}

	switch keyword {
	case "launch", "open":
		return parseLaunch(text, tokens, lineNo)
	case "close":
		return parseClose(tokens, lineNo)
	case "wait", "sleep":
		return parseWait(text, tokens, lineNo)
	case "set":
		return parseSet(text, tokens, lineNo)
	case "print", "log":
		return Statement{
			Kind:  KindPrint,
			Line:  lineNo,
			Value: parseValueExpr(restAfter(text, tokens[0].Text)),
		}, nil
	case "emit":
		return parseEmit(tokens, lineNo)
	case "on":
		return parseOn(text, lineNo)
	case "if":
		return parseIf(text, lineNo)
	case "loop":
		return parseLoop(text, lineNo)
	case "foreach", "for":
		return parseForeach(text, lineNo)
	case "call":
		return parseCall(tokens, lineNo)
	case "return":
		return Statement{
			Kind:  KindReturn,
			Line:  lineNo,
			Value: parseValueExpr(restAfter(text, tokens[0].Text)),
		}, nil
	case "break":
		return Statement{Kind: KindBreak, Line: lineNo}, nil
	case "continue":
		return Statement{Kind: KindContinue, Line: lineNo}, nil
	case "alert", "confirm", "prompt", "notify":
		return parseDialog(text, keyword, lineNo)
	case "focus", "minimize", "maximize":
		return parseWindow(tokens, keyword, lineNo)
	case "play":
		return parsePlay(tokens, lineNo)
	case "write":
		return parseWrite(text, lineNo)
	case "read":
		return parseRead(text, lineNo)
	case "mkdir":
		return parsePath(KindMkdir, text, tokens, lineNo)
	case "delete", "rm":
		return parsePath(KindDelete, text, tokens, lineNo)
	case "def", "func", "function":
		return parseFunc(text, keyword, lineNo)
	case "try":
		return parseTry(text, lineNo)
	}

	// A line containing an unquoted '=' with no matching keyword is a
	// bare assignment.
	if idx := findAssign(text); idx >= 0 && !strings.ContainsAny(text, "{}") {
		name := strings.TrimSpace(text[:idx])
		name = strings.TrimPrefix(name, "$")
		if name != "" && !strings.ContainsAny(name, " \t") {
			return Statement{
				Kind:  KindSet,
				Line:  lineNo,
				Dest:  name,
				Value: parseValueExpr(text[idx+1:]),
			}, nil
		}
	}

	// Anything else is an opaque command forwarded verbatim at run time.
	st := Statement{
		Kind: KindCommand,
		Line: lineNo,
		Name: tokens[0].Text,
		Raw:  text,
		With: parseKV(tokens[1:]),
	}
	for _, t := range tokens[1:] {
		if strings.Contains(t.Text, "=") && !t.Quoted {
			continue
		}
		st.Args = append(st.Args, tokenExpr(t))
	}
	return st, nil
}

func parseLaunch(text string, tokens []Token, lineNo int) (Statement, error) {
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "launch requires an application name"}
	}
	st := Statement{Kind: KindLaunch, Line: lineNo, Name: tokens[1].Text}

	rest := tokens[2:]
	if len(rest) > 0 && strings.EqualFold(rest[0].Text, "with") {
		rest = rest[1:]
	}
	st.With = parseKV(rest)
	return st, nil
}

func parseClose(tokens []Token, lineNo int) (Statement, error) {
	st := Statement{Kind: KindClose, Line: lineNo}
	if len(tokens) > 1 {
		st.Target = tokenExpr(tokens[1])
	}
	return st, nil
}

func parseWait(text string, tokens []Token, lineNo int) (Statement, error) {
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "wait requires a duration in milliseconds"}
	}
	return Statement{Kind: KindWait, Line: lineNo, Target: tokenExpr(tokens[1])}, nil
}

func parseSet(text string, tokens []Token, lineNo int) (Statement, error) {
	idx := findAssign(text)
	if len(tokens) < 2 || idx < 0 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "set requires the form: set $name = value"}
	}
	name := strings.TrimPrefix(tokens[1].Text, "$")
	if name == "" || strings.Contains(name, "=") {
		return Statement{}, &ParseError{Line: lineNo, Msg: "set requires a variable name"}
	}
	return Statement{
		Kind:  KindSet,
		Line:  lineNo,
		Dest:  name,
		Value: parseValueExpr(text[idx+1:]),
	}, nil
}

func parseEmit(tokens []Token, lineNo int) (Statement, error) {
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "emit requires an event name"}
	}
	return Statement{
		Kind: KindEmit,
		Line: lineNo,
		Name: tokens[1].Text,
		With: parseKV(tokens[2:]),
	}, nil
}

func parseOn(text string, lineNo int) (Statement, error) {
	header, body, rest, bodyLine, _, ok := cutBlock(text, lineNo)
	if !ok {
		return Statement{}, &ParseError{Line: lineNo, Msg: "on requires a { } block"}
	}
	if strings.TrimSpace(rest) != "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after block"}
	}
	tokens := TokenizeDetailed(header)
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "on requires an event name"}
	}
	stmts, err := parseBody(body, bodyLine)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Kind: KindOn, Line: lineNo, Name: tokens[1].Text, Body: stmts}, nil
}

func parseIf(text string, lineNo int) (Statement, error) {
	header, body, rest, bodyLine, restLine, ok := cutBlock(text, lineNo)
	if !ok {
		return Statement{}, &ParseError{Line: lineNo, Msg: "if requires a { } block"}
	}

	thenIdx := findKeyword(header, "then")
	if thenIdx < 0 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "if requires 'then'"}
	}
	cond := strings.TrimSpace(header[len("if"):thenIdx])
	if cond == "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "if requires a condition"}
	}
	after := strings.TrimSpace(header[thenIdx+len("then"):])
	if after != "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text between 'then' and block"}
	}

	thenBody, err := parseBody(body, bodyLine)
	if err != nil {
		return Statement{}, err
	}

	st := Statement{Kind: KindIf, Line: lineNo, Cond: cond, Body: thenBody}

	rest = strings.TrimSpace(rest)
	if rest != "" {
		lowered := strings.ToLower(rest)
		if !strings.HasPrefix(lowered, "else") {
			return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after if block"}
		}
		elseHeader, elseBody, elseRest, elseLine, _, ok := cutBlock(rest, restLine)
		if !ok || strings.TrimSpace(elseHeader[len("else"):]) != "" {
			return Statement{}, &ParseError{Line: lineNo, Msg: "else requires a { } block"}
		}
		if strings.TrimSpace(elseRest) != "" {
			return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after else block"}
		}
		elseStmts, err := parseBody(elseBody, elseLine)
		if err != nil {
			return Statement{}, err
		}
		st.Else = elseStmts
	}

	return st, nil
}

func parseLoop(text string, lineNo int) (Statement, error) {
	header, body, rest, bodyLine, _, ok := cutBlock(text, lineNo)
	if !ok {
		return Statement{}, &ParseError{Line: lineNo, Msg: "loop requires a { } block"}
	}
	if strings.TrimSpace(rest) != "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after loop block"}
	}

	tokens := TokenizeDetailed(header)
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "loop requires a count or 'while'"}
	}

	stmts, err := parseBody(body, bodyLine)
	if err != nil {
		return Statement{}, err
	}

	if strings.EqualFold(tokens[1].Text, "while") && !tokens[1].Quoted {
		whileIdx := findKeyword(header, "while")
		cond := strings.TrimSpace(header[whileIdx+len("while"):])
		if cond == "" {
			return Statement{}, &ParseError{Line: lineNo, Msg: "loop while requires a condition"}
		}
		return Statement{Kind: KindWhile, Line: lineNo, Cond: cond, Body: stmts}, nil
	}

	return Statement{Kind: KindLoop, Line: lineNo, Target: tokenExpr(tokens[1]), Body: stmts}, nil
}

func parseForeach(text string, lineNo int) (Statement, error) {
	header, body, rest, bodyLine, _, ok := cutBlock(text, lineNo)
	if !ok {
		return Statement{}, &ParseError{Line: lineNo, Msg: "foreach requires a { } block"}
	}
	if strings.TrimSpace(rest) != "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after foreach block"}
	}

	tokens := TokenizeDetailed(header)
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "foreach requires a loop variable"}
	}
	inIdx := findKeyword(header, "in")
	if inIdx < 0 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "foreach requires 'in'"}
	}

	source := strings.TrimSpace(header[inIdx+len("in"):])
	if source == "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "foreach requires an array expression"}
	}

	stmts, err := parseBody(body, bodyLine)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		Kind:   KindForeach,
		Line:   lineNo,
		Dest:   strings.TrimPrefix(tokens[1].Text, "$"),
		Target: parseValueExpr(source),
		Body:   stmts,
	}, nil
}

func parseCall(tokens []Token, lineNo int) (Statement, error) {
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "call requires a function name"}
	}
	st := Statement{Kind: KindCall, Line: lineNo, Name: tokens[1].Text}
	for _, t := range tokens[2:] {
		st.Args = append(st.Args, tokenExpr(t))
	}
	return st, nil
}

func parseDialog(text, action string, lineNo int) (Statement, error) {
	rest := restAfter(text, action)
	st := Statement{Kind: KindDialog, Line: lineNo, Action: action}

	// Optional result binding: confirm "Sure?" into $answer
	if idx := findKeyword(rest, "into"); idx >= 0 {
		tail := strings.TrimSpace(rest[idx+len("into"):])
		if strings.HasPrefix(tail, "$") && !strings.ContainsAny(tail, " \t") {
			st.Dest = strings.TrimPrefix(tail, "$")
			rest = rest[:idx]
		}
	}

	st.Value = parseValueExpr(rest)
	return st, nil
}

func parseWindow(tokens []Token, action string, lineNo int) (Statement, error) {
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: action + " requires a target"}
	}
	return Statement{Kind: KindWindow, Line: lineNo, Action: action, Target: tokenExpr(tokens[1])}, nil
}

func parsePlay(tokens []Token, lineNo int) (Statement, error) {
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "play requires a sound name"}
	}
	return Statement{Kind: KindPlay, Line: lineNo, Name: tokens[1].Text}, nil
}

func parseWrite(text string, lineNo int) (Statement, error) {
	rest := restAfter(text, "write")
	idx := findKeywordLast(rest, "to")
	if idx < 0 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "write requires 'to'"}
	}
	content := strings.TrimSpace(rest[:idx])
	path := strings.TrimSpace(rest[idx+len("to"):])
	if content == "" || path == "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "write requires content and a path"}
	}
	return Statement{
		Kind:   KindWrite,
		Line:   lineNo,
		Value:  parseValueExpr(content),
		Target: parseValueExpr(path),
	}, nil
}

func parseRead(text string, lineNo int) (Statement, error) {
	rest := restAfter(text, "read")
	idx := findKeywordLast(rest, "into")
	if idx < 0 {
		return Statement{}, &ParseError{Line: lineNo, Msg: "read requires 'into'"}
	}
	path := strings.TrimSpace(rest[:idx])
	dest := strings.TrimSpace(rest[idx+len("into"):])
	if path == "" || !strings.HasPrefix(dest, "$") {
		return Statement{}, &ParseError{Line: lineNo, Msg: "read requires the form: read path into $var"}
	}
	return Statement{
		Kind:   KindRead,
		Line:   lineNo,
		Target: parseValueExpr(path),
		Dest:   strings.TrimPrefix(dest, "$"),
	}, nil
}

func parsePath(kind Kind, text string, tokens []Token, lineNo int) (Statement, error) {
	if len(tokens) < 2 {
		return Statement{}, &ParseError{Line: lineNo, Msg: string(kind) + " requires a path"}
	}
	return Statement{Kind: kind, Line: lineNo, Target: tokenExpr(tokens[1])}, nil
}

func parseFunc(text, keyword string, lineNo int) (Statement, error) {
	header, body, rest, bodyLine, _, ok := cutBlock(text, lineNo)
	if !ok {
		return Statement{}, &ParseError{Line: lineNo, Msg: "function definition requires a { } block"}
	}
	if strings.TrimSpace(rest) != "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after function block"}
	}

	sig := strings.TrimSpace(restAfter(header, keyword))
	if sig == "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "function definition requires a name"}
	}

	name := sig
	var params []string
	if open := strings.IndexByte(sig, '('); open >= 0 {
		closeIdx := strings.LastIndexByte(sig, ')')
		if closeIdx < open {
			return Statement{}, &ParseError{Line: lineNo, Msg: "unbalanced parentheses in function signature"}
		}
		name = strings.TrimSpace(sig[:open])
		for _, p := range SplitTop(sig[open+1:closeIdx], ',') {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			params = append(params, strings.TrimPrefix(p, "$"))
		}
	}
	if name == "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "function definition requires a name"}
	}

	stmts, err := parseBody(body, bodyLine)
	if err != nil {
		return Statement{}, err
	}

	return Statement{Kind: KindFunc, Line: lineNo, Name: name, Params: params, Body: stmts}, nil
}

func parseTry(text string, lineNo int) (Statement, error) {
	header, body, rest, bodyLine, restLine, ok := cutBlock(text, lineNo)
	if !ok {
		return Statement{}, &ParseError{Line: lineNo, Msg: "try requires a { } block"}
	}
	if strings.TrimSpace(restAfter(header, "try")) != "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after 'try'"}
	}

	tryBody, err := parseBody(body, bodyLine)
	if err != nil {
		return Statement{}, err
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(strings.ToLower(rest), "catch") {
		return Statement{}, &ParseError{Line: lineNo, Msg: "try requires 'catch'"}
	}

	catchHeader, catchBody, catchRest, catchLine, _, ok := cutBlock(rest, restLine)
	if !ok {
		return Statement{}, &ParseError{Line: lineNo, Msg: "catch requires a { } block"}
	}
	if strings.TrimSpace(catchRest) != "" {
		return Statement{}, &ParseError{Line: lineNo, Msg: "unexpected text after catch block"}
	}

	catchVar := "error"
	if v := strings.TrimSpace(restAfter(catchHeader, "catch")); v != "" {
		if !strings.HasPrefix(v, "$") {
			return Statement{}, &ParseError{Line: lineNo, Msg: "catch variable must start with '$'"}
		}
		catchVar = strings.TrimPrefix(v, "$")
	}

	catchStmts, err := parseBody(catchBody, catchLine)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		Kind:     KindTry,
		Line:     lineNo,
		CatchVar: catchVar,
		Body:     tryBody,
		Else:     catchStmts,
	}, nil
}

// parseBody parses the inner text of a brace block. startLine is the
// source line the body text begins on, so nested parse errors stay
// tagged with real line numbers.
func parseBody(body string, startLine int) ([]Statement, error) {
	lines, err := LogicalLines(body)
	if err != nil {
		var pe *ParseError
		if pErr, ok := err.(*ParseError); ok {
			pe = &ParseError{Line: pErr.Line + startLine - 1, Msg: pErr.Msg}
			return nil, pe
		}
		return nil, err
	}
	return parseLines(lines, startLine-1)
}

// cutBlock splits a logical line into the header before the first '{',
// the balanced block body, and any trailing text. bodyLine and restLine
// are the source lines the body and the trailing text begin on.
func cutBlock(text string, lineNo int) (header, body, rest string, bodyLine, restLine int, ok bool) {
	open := strings.IndexByte(text, '{')
	if open < 0 {
		return "", "", "", 0, 0, false
	}

	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				header = strings.TrimSpace(text[:open])
				body = text[open+1 : i]
				rest = text[i+1:]
				bodyLine = lineNo + strings.Count(text[:open+1], "\n")
				restLine = lineNo + strings.Count(text[:i+1], "\n")
				// The body usually starts on the next physical line.
				if strings.HasPrefix(body, "\n") {
					body = body[1:]
					bodyLine++
				}
				return header, body, rest, bodyLine, restLine, true
			}
		}
	}

	return "", "", "", 0, 0, false
}

var funcCallRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)

// ParseValue parses raw operand text into an unresolved expression. The
// resolver uses it for array elements and object field values, which
// are plain value positions.
func ParseValue(raw string) Expr {
	return parseValueExpr(raw)
}

// parseValueExpr parses the raw right-hand side of an assignment or an
// operand position into an unresolved expression.
func parseValueExpr(raw string) Expr {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Expr{}
	}
	if strings.HasPrefix(raw, "[") {
		return Expr{Kind: ExprArray, Text: raw}
	}
	if strings.HasPrefix(raw, "{") {
		return Expr{Kind: ExprObject, Text: raw}
	}

	if m := funcCallRe.FindStringSubmatch(raw); m != nil {
		call := Expr{Kind: ExprCall, Name: m[1]}
		inner := strings.TrimSpace(m[2])
		if inner != "" {
			for _, part := range SplitTop(inner, ',') {
				call.Args = append(call.Args, parseValueExpr(part))
			}
		}
		return call
	}

	tokens := TokenizeDetailed(raw)
	switch {
	case len(tokens) == 0:
		return Expr{}
	case len(tokens) >= 2 && !tokens[0].Quoted && strings.EqualFold(tokens[0].Text, "call"):
		call := Expr{Kind: ExprCall, Name: tokens[1].Text}
		for _, t := range tokens[2:] {
			call.Args = append(call.Args, tokenExpr(t))
		}
		return call
	case len(tokens) == 1:
		return tokenExpr(tokens[0])
	}

	// Binary expression: operands alternating with + - * / %, folded
	// left to right.
	if len(tokens)%2 == 1 {
		binary := true
		for i := 1; i < len(tokens); i += 2 {
			if tokens[i].Quoted || !isBinaryOp(tokens[i].Text) {
				binary = false
				break
			}
		}
		if binary {
			expr := tokenExpr(tokens[0])
			for i := 1; i < len(tokens); i += 2 {
				left := expr
				right := tokenExpr(tokens[i+1])
				expr = Expr{Kind: ExprBinary, Op: tokens[i].Text, Left: &left, Right: &right}
			}
			return expr
		}
	}

	// A multi-word value with no recognizable structure is an opaque
	// string, interpolated at resolution time.
	return Expr{Kind: ExprRaw, Text: raw}
}

// tokenExpr converts one token into an operand expression.
func tokenExpr(t Token) Expr {
	if t.Quoted {
		return Expr{Kind: ExprString, Text: t.Text}
	}
	if m := funcCallRe.FindStringSubmatch(t.Text); m != nil {
		return parseValueExpr(t.Text)
	}
	return Expr{Kind: ExprRaw, Text: t.Text}
}

// parseKV collects k=v tokens into a keyed expression map.
func parseKV(tokens []Token) map[string]Expr {
	var kv map[string]Expr
	for _, t := range tokens {
		eq := strings.IndexByte(t.Text, '=')
		if eq <= 0 {
			continue
		}
		if kv == nil {
			kv = make(map[string]Expr)
		}
		kv[t.Text[:eq]] = Expr{Kind: ExprRaw, Text: t.Text[eq+1:]}
	}
	return kv
}

func isBinaryOp(tok string) bool {
	switch tok {
	case "+", "-", "*", "/", "%":
		return true
	}
	return false
}

// restAfter returns the text following the leading keyword.
func restAfter(text, keyword string) string {
	trimmed := strings.TrimSpace(text)
	return strings.TrimSpace(trimmed[len(keyword):])
}

// findAssign returns the index of the first unquoted '=' that is not
// part of a comparison operator, or -1.
func findAssign(text string) int {
	var quote byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '=':
			if i+1 < len(text) && text[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && (text[i-1] == '!' || text[i-1] == '<' || text[i-1] == '>' || text[i-1] == '=') {
				continue
			}
			return i
		}
	}
	return -1
}

// findKeyword returns the byte offset of the first unquoted,
// whitespace-delimited occurrence of kw (case-insensitive), or -1.
func findKeyword(text, kw string) int {
	return scanKeyword(text, kw, false)
}

// findKeywordLast is findKeyword for the last occurrence.
func findKeywordLast(text, kw string) int {
	return scanKeyword(text, kw, true)
}

func scanKeyword(text, kw string, last bool) int {
	found := -1
	var quote byte
	for i := 0; i+len(kw) <= len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			quote = ch
			continue
		}
		if !strings.EqualFold(text[i:i+len(kw)], kw) {
			continue
		}
		before := i == 0 || isSpace(text[i-1])
		after := i+len(kw) == len(text) || isSpace(text[i+len(kw)])
		if before && after {
			if !last {
				return i
			}
			found = i
		}
	}
	return found
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
