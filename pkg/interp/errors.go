package interp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStopped aborts a run after Stop was called. It is not catchable
// by try/catch; cancellation always unwinds to the top.
var ErrStopped = errors.New("script stopped")

// RuntimeError is a recoverable script error: unknown function or
// command, an explicit throw, a failed assertion. It carries the
// source line and the call stack at the point it was raised.
type RuntimeError struct {
	Msg   string
	Line  int
	Stack []string
}

func (e *RuntimeError) Error() string {
	if len(e.Stack) > 0 {
		return fmt.Sprintf("runtime error at line %d: %s (in %s)", e.Line, e.Msg, strings.Join(e.Stack, " > "))
	}
	return fmt.Sprintf("runtime error at line %d: %s", e.Line, e.Msg)
}

// TimeoutError aborts the whole run when the script exceeds its
// configured limit. It is deliberately not catchable by try/catch.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("script timed out after %v", e.Limit)
}
