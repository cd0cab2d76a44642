package parser

import "fmt"

// ParseError reports malformed syntax. It carries the source line of
// the offending statement; a script with any parse error does not
// execute at all.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Msg)
}
