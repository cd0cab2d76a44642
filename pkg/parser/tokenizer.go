package parser

import (
	"strings"
)

// Token is a single tokenizer unit. Quoted records whether the token
// began with a quote character, which literal recognition needs to tell
// the string "5" apart from the number 5.
type Token struct {
	Text   string
	Quoted bool
}

// Line is one logical line: either a single source line or a balanced
// brace block spanning several source lines. Number is the source line
// number of its first physical line.
type Line struct {
	Text   string
	Number int
}

// Tokenize splits a line on unquoted whitespace. A single- or
// double-quoted run becomes part of one token with the quotes removed,
// so `launch notepad with file="a b.txt"` yields
// [launch notepad with file=a b.txt].
func Tokenize(line string) []string {
	detailed := TokenizeDetailed(line)
	out := make([]string, len(detailed))
	for i, t := range detailed {
		out[i] = t.Text
	}
	return out
}

// TokenizeDetailed is Tokenize with per-token quote information.
func TokenizeDetailed(line string) []Token {
	var tokens []Token
	var cur strings.Builder
	var quote byte
	started := false
	quoted := false

	flush := func() {
		if started {
			tokens = append(tokens, Token{Text: cur.String(), Quoted: quoted})
			cur.Reset()
			started = false
			quoted = false
		}
	}

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			if !started {
				quoted = true
			}
			started = true
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			flush()
		default:
			cur.WriteByte(ch)
			started = true
		}
	}
	flush()

	return tokens
}

// LogicalLines splits source text into logical lines. Multi-line brace
// blocks are folded into one line tracked by a brace-depth counter.
// Braces inside quoted strings are counted too; this mirrors the
// observed grouping behavior and is flagged in the design notes.
//
// Outside blocks: blank lines are skipped, a line whose trimmed form
// starts with '#' is dropped, and an inline '#' is stripped only when
// the line contains no quote character at all.
func LogicalLines(src string) ([]Line, error) {
	var out []Line
	var block []string
	depth := 0
	blockStart := 0

	lines := strings.Split(src, "\n")
	for i, raw := range lines {
		lineNo := i + 1

		if depth == 0 {
			line := strings.TrimSpace(raw)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if !strings.ContainsAny(line, "\"'") {
				if idx := strings.Index(line, "#"); idx >= 0 {
					line = strings.TrimSpace(line[:idx])
					if line == "" {
						continue
					}
				}
			}

			depth += braceDelta(line)
			if depth < 0 {
				return nil, &ParseError{Line: lineNo, Msg: "unexpected '}'"}
			}
			if depth > 0 {
				block = []string{line}
				blockStart = lineNo
				continue
			}
			out = append(out, Line{Text: line, Number: lineNo})
			continue
		}

		block = append(block, raw)
		depth += braceDelta(raw)
		if depth < 0 {
			return nil, &ParseError{Line: lineNo, Msg: "unexpected '}'"}
		}
		if depth == 0 {
			out = append(out, Line{Text: strings.Join(block, "\n"), Number: blockStart})
			block = nil
		}
	}

	if depth > 0 {
		return nil, &ParseError{Line: blockStart, Msg: "unterminated block: missing '}'"}
	}

	return out, nil
}

// braceDelta counts opening minus closing braces on a line. Quotes are
// deliberately not excluded (see the design notes).
func braceDelta(line string) int {
	d := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '{':
			d++
		case '}':
			d--
		}
	}
	return d
}

// SplitTop splits s on sep at the top nesting level. Separators inside
// quotes, brackets, or braces do not split. Used for array and object
// literal bodies and for semicolon statement splitting.
func SplitTop(s string, sep byte) []string {
	var parts []string
	var quote byte
	depth := 0
	start := 0

	for i := 0; i < len(s); i++ {
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
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])

	return parts
}
