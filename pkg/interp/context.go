package interp

import (
	"sync"
	"time"
)

// execContext is the per-run state: cancellation, deadline, and the
// call stack used for diagnostics. One is created per Run and
// discarded when the run finishes.
type execContext struct {
	stop     chan struct{}
	stopOnce sync.Once
	start    time.Time
	timeout  time.Duration
	stack    []string
}

func newExecContext(timeout time.Duration) *execContext {
	return &execContext{
		stop:    make(chan struct{}),
		start:   time.Now(),
		timeout: timeout,
	}
}

// Stop requests cancellation. The running script observes it at its
// next checkpoint; a statement already mid-flight is not interrupted.
func (c *execContext) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// checkpoint is called between statements and at loop iteration
// boundaries. It surfaces cancellation and the script deadline.
func (c *execContext) checkpoint() error {
	select {
	case <-c.stop:
		return ErrStopped
	default:
	}
	if c.timeout > 0 && time.Since(c.start) > c.timeout {
		return &TimeoutError{Limit: c.timeout}
	}
	return nil
}

// push records a function entry on the call stack.
func (c *execContext) push(name string) {
	c.stack = append(c.stack, name)
}

// pop removes the most recent entry.
func (c *execContext) pop() {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// stackCopy returns the stack as it stands, for error reports.
func (c *execContext) stackCopy() []string {
	if len(c.stack) == 0 {
		return nil
	}
	out := make([]string, len(c.stack))
	copy(out, c.stack)
	return out
}
