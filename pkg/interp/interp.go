// Package interp executes parsed RetroScript statement trees. The
// interpreter is a single-threaded cooperative walker: statements run
// in strict program order, side effects go through the Host, and long
// operations suspend on channels instead of spinning.
package interp

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/morroware/retroscript/pkg/logger"
	"github.com/morroware/retroscript/pkg/parser"
	"github.com/morroware/retroscript/pkg/value"
)

const (
	// DefaultTimeout bounds a whole run unless the host overrides it.
	DefaultTimeout = 30 * time.Second

	defaultConfirmTimeout = 60 * time.Second
	defaultPromptTimeout  = 120 * time.Second
	defaultCommandTimeout = 10 * time.Second

	maxWhileIterations = 100000
	maxCallDepth       = 256
)

// Host is the interpreter's only window to the outside world. The
// engine implements it on top of the dispatch layer; tests implement
// it directly.
type Host interface {
	// Execute performs a command round trip and returns the result
	// data, or an error on failure or timeout.
	Execute(name string, payload map[string]any, timeout time.Duration) (any, error)
	// Post issues a fire-and-forget command.
	Post(name string, payload map[string]any)
	// Emit publishes an event on the bus.
	Emit(event string, payload map[string]any)
	// Subscribe registers a bus listener and returns its unsubscribe
	// function.
	Subscribe(pattern string, fn func(event string, payload map[string]any)) func()
	// Print delivers script output.
	Print(text string)
}

// HostFunc is a host-defined function callable from scripts.
type HostFunc func(args []value.Value) (value.Value, error)

type funcDef struct {
	params []string
	body   []parser.Statement
}

// flow is the control-flow signal a statement hands back up.
type flow int

const (
	flowNone flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// Interp executes one script at a time against one environment.
type Interp struct {
	host Host
	env  *Environment
	log  *slog.Logger

	funcs     map[string]funcDef
	hostFuncs map[string]HostFunc

	timeout        time.Duration
	confirmTimeout time.Duration
	promptTimeout  time.Duration
	commandTimeout time.Duration

	// execMu gives a run or an event handler body exclusive ownership
	// of the environment; the two never execute concurrently.
	execMu sync.Mutex

	mu         sync.Mutex
	ctx        *execContext
	unsubs     []func()
	pending    []handlerCall
	executing  bool
	draining   bool
	last       value.Value
	lastWindow string
}

// handlerCall is one queued on-block invocation.
type handlerCall struct {
	event   string
	payload map[string]any
	body    []parser.Statement
}

// Option configures an interpreter.
type Option func(*Interp)

// WithTimeout sets the whole-script deadline. Zero means unlimited.
func WithTimeout(d time.Duration) Option {
	return func(in *Interp) { in.timeout = d }
}

// WithDialogTimeouts overrides the confirm and prompt round-trip
// limits.
func WithDialogTimeouts(confirm, prompt time.Duration) Option {
	return func(in *Interp) {
		in.confirmTimeout = confirm
		in.promptTimeout = prompt
	}
}

// WithCommandTimeout sets the limit for ordinary command round trips.
func WithCommandTimeout(d time.Duration) Option {
	return func(in *Interp) { in.commandTimeout = d }
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(in *Interp) { in.log = log }
}

// New creates an interpreter bound to a host.
func New(host Host, opts ...Option) *Interp {
	in := &Interp{
		host:           host,
		env:            NewEnvironment(),
		log:            logger.Get(),
		funcs:          make(map[string]funcDef),
		hostFuncs:      make(map[string]HostFunc),
		timeout:        DefaultTimeout,
		confirmTimeout: defaultConfirmTimeout,
		promptTimeout:  defaultPromptTimeout,
		commandTimeout: defaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run executes a parsed script and returns its last result: the value
// of a top-level return, or of the most recent call statement. Every
// run gets a fresh execution context; variables and function
// definitions persist across runs. Entries in vars are bound into the
// environment before the first statement executes.
func (in *Interp) Run(script *parser.Script, vars map[string]value.Value) (value.Value, error) {
	var (
		f    flow
		v    value.Value
		last value.Value
		err  error
	)
	in.runExclusive(func() {
		in.last = value.Null
		for name, val := range vars {
			in.env.Set(name, val)
		}
		f, v, err = in.execStmts(script.Statements)
		last = in.last
	})
	if err != nil {
		return value.Null, err
	}
	if f == flowReturn {
		return v, nil
	}
	return last, nil
}

// runExclusive executes fn with exclusive ownership of the
// environment. Handler invocations arriving while it runs are queued;
// the queue is drained before ownership is released, on a fresh
// context so a stopped or timed-out run does not poison late
// handlers.
func (in *Interp) runExclusive(fn func()) {
	in.execMu.Lock()
	defer in.execMu.Unlock()

	in.mu.Lock()
	in.executing = true
	in.ctx = newExecContext(in.timeout)
	in.mu.Unlock()

	fn()

	in.mu.Lock()
	in.ctx = newExecContext(in.timeout)
	in.mu.Unlock()

	for {
		in.drainPending()

		// executing flips off only with the queue observed empty, so
		// an emitter either sees executing and appends in time to be
		// drained here, or runs its handler itself afterwards.
		in.mu.Lock()
		if len(in.pending) == 0 {
			in.executing = false
			in.mu.Unlock()
			return
		}
		in.mu.Unlock()
	}
}

// drainPending runs queued handler invocations. Called at statement
// boundaries so handlers interleave with the script instead of racing
// it. The guard keeps a handler body's own statements from re-entering
// the drain.
func (in *Interp) drainPending() {
	in.mu.Lock()
	if in.draining {
		in.mu.Unlock()
		return
	}
	in.draining = true
	in.mu.Unlock()

	for {
		in.mu.Lock()
		if len(in.pending) == 0 {
			in.draining = false
			in.mu.Unlock()
			return
		}
		call := in.pending[0]
		in.pending = in.pending[1:]
		in.mu.Unlock()
		in.runHandler(call)
	}
}

func (in *Interp) runHandler(c handlerCall) {
	in.env.Set("event", value.FromAny(c.payload))
	if _, _, err := in.execStmts(c.body); err != nil {
		in.log.Error("event handler failed", "event", c.event, "error", err)
	}
}

// Stop requests cancellation of the running script. It is observed at
// the next statement or iteration boundary.
func (in *Interp) Stop() {
	in.mu.Lock()
	ctx := in.ctx
	in.mu.Unlock()
	if ctx != nil {
		ctx.Stop()
	}
}

// SetTimeout changes the deadline applied to subsequent runs.
func (in *Interp) SetTimeout(d time.Duration) {
	in.timeout = d
}

// DefineFunction registers a host-defined function. Script-defined
// functions with the same name shadow it.
func (in *Interp) DefineFunction(name string, fn HostFunc) {
	in.hostFuncs[name] = fn
}

// GetVariable reads a binding; unbound names read as null.
func (in *Interp) GetVariable(name string) value.Value {
	v, ok := in.env.Get(name)
	if !ok {
		return value.Null
	}
	return v
}

// SetVariable writes a binding.
func (in *Interp) SetVariable(name string, v value.Value) {
	in.env.Set(name, v)
}

// Detach removes every on-handler subscription this interpreter has
// registered.
func (in *Interp) Detach() {
	in.mu.Lock()
	unsubs := in.unsubs
	in.unsubs = nil
	in.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

func (in *Interp) execStmts(stmts []parser.Statement) (flow, value.Value, error) {
	for i := range stmts {
		st := &stmts[i]
		if err := in.ctx.checkpoint(); err != nil {
			return flowNone, value.Null, err
		}
		in.drainPending()
		f, v, err := in.execStmt(st)
		if err != nil {
			return flowNone, value.Null, err
		}
		if f != flowNone {
			return f, v, nil
		}
	}
	return flowNone, value.Null, nil
}

func (in *Interp) execStmt(st *parser.Statement) (flow, value.Value, error) {
	switch st.Kind {
	case parser.KindBlock:
		return in.execStmts(st.Body)

	case parser.KindSet:
		v, err := in.resolveExpr(st.Value, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		in.env.Set(st.Dest, v)

	case parser.KindPrint:
		v, err := in.resolveExpr(st.Value, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		in.host.Print(value.ToString(v))

	case parser.KindEmit:
		payload, err := in.resolvePayload(st.With, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		in.host.Emit(st.Name, payload)

	case parser.KindOn:
		in.subscribeHandler(st)

	case parser.KindIf:
		ok, err := in.evalCond(st.Cond, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		if ok {
			return in.execStmts(st.Body)
		}
		return in.execStmts(st.Else)

	case parser.KindLoop:
		return in.execLoop(st)

	case parser.KindWhile:
		return in.execWhile(st)

	case parser.KindForeach:
		return in.execForeach(st)

	case parser.KindCall:
		args, err := in.resolveArgs(st.Args, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		v, err := in.callFunction(st.Name, args, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		in.last = v

	case parser.KindReturn:
		v, err := in.resolveExpr(st.Value, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		return flowReturn, v, nil

	case parser.KindBreak:
		return flowBreak, value.Null, nil

	case parser.KindContinue:
		return flowContinue, value.Null, nil

	case parser.KindFunc:
		in.funcs[st.Name] = funcDef{params: st.Params, body: st.Body}

	case parser.KindTry:
		return in.execTry(st)

	case parser.KindWait:
		v, err := in.resolveExpr(st.Target, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		ms := value.ToNumber(v)
		if ms > 0 {
			if err := in.suspend(time.Duration(ms) * time.Millisecond); err != nil {
				return flowNone, value.Null, err
			}
		}

	case parser.KindLaunch:
		return flowNone, value.Null, in.execLaunch(st)

	case parser.KindClose:
		return flowNone, value.Null, in.execClose(st)

	case parser.KindWindow:
		return flowNone, value.Null, in.execWindow(st)

	case parser.KindDialog:
		return flowNone, value.Null, in.execDialog(st)

	case parser.KindPlay:
		in.host.Post("sound:play", map[string]any{"sound": st.Name})

	case parser.KindWrite:
		return flowNone, value.Null, in.execWrite(st)

	case parser.KindRead:
		return flowNone, value.Null, in.execRead(st)

	case parser.KindMkdir:
		return flowNone, value.Null, in.execMkdir(st)

	case parser.KindDelete:
		return flowNone, value.Null, in.execDelete(st)

	case parser.KindCommand:
		return flowNone, value.Null, in.execCommand(st)

	default:
		return flowNone, value.Null, in.errorf(st.Line, "unsupported statement: %s", st.Kind)
	}

	return flowNone, value.Null, nil
}

func (in *Interp) execLoop(st *parser.Statement) (flow, value.Value, error) {
	countVal, err := in.resolveExpr(st.Target, st.Line)
	if err != nil {
		return flowNone, value.Null, err
	}
	count := int(value.ToNumber(countVal))

	for i := 0; i < count; i++ {
		if err := in.ctx.checkpoint(); err != nil {
			return flowNone, value.Null, err
		}
		in.env.Set("i", value.NewNumber(float64(i)))

		f, v, err := in.execStmts(st.Body)
		if err != nil {
			return flowNone, value.Null, err
		}
		switch f {
		case flowBreak:
			return flowNone, value.Null, nil
		case flowReturn:
			return flowReturn, v, nil
		}
	}
	return flowNone, value.Null, nil
}

func (in *Interp) execWhile(st *parser.Statement) (flow, value.Value, error) {
	for iterations := 0; ; iterations++ {
		if iterations >= maxWhileIterations {
			return flowNone, value.Null, in.errorf(st.Line, "while loop exceeded %d iterations", maxWhileIterations)
		}
		if err := in.ctx.checkpoint(); err != nil {
			return flowNone, value.Null, err
		}

		ok, err := in.evalCond(st.Cond, st.Line)
		if err != nil {
			return flowNone, value.Null, err
		}
		if !ok {
			return flowNone, value.Null, nil
		}

		f, v, err := in.execStmts(st.Body)
		if err != nil {
			return flowNone, value.Null, err
		}
		switch f {
		case flowBreak:
			return flowNone, value.Null, nil
		case flowReturn:
			return flowReturn, v, nil
		}
	}
}

func (in *Interp) execForeach(st *parser.Statement) (flow, value.Value, error) {
	src, err := in.resolveExpr(st.Target, st.Line)
	if err != nil {
		return flowNone, value.Null, err
	}
	// A non-array source iterates zero times rather than erroring.
	if src.Kind() != value.KindArray {
		return flowNone, value.Null, nil
	}

	for i, elem := range src.Arr() {
		if err := in.ctx.checkpoint(); err != nil {
			return flowNone, value.Null, err
		}
		in.env.Set(st.Dest, elem)
		in.env.Set("i", value.NewNumber(float64(i)))

		f, v, err := in.execStmts(st.Body)
		if err != nil {
			return flowNone, value.Null, err
		}
		switch f {
		case flowBreak:
			return flowNone, value.Null, nil
		case flowReturn:
			return flowReturn, v, nil
		}
	}
	return flowNone, value.Null, nil
}

func (in *Interp) execTry(st *parser.Statement) (flow, value.Value, error) {
	f, v, err := in.execStmts(st.Body)
	if err == nil {
		return f, v, nil
	}

	// Only script errors are recoverable; cancellation and the script
	// deadline always unwind to the top.
	var re *RuntimeError
	if !errors.As(err, &re) {
		return flowNone, value.Null, err
	}

	in.env.Set(st.CatchVar, value.NewString(re.Msg))
	return in.execStmts(st.Else)
}

// callFunction invokes a script-defined or host-defined function.
// Script functions use dynamic scoping: the whole environment is
// snapshotted, parameters are bound over the live environment, and the
// snapshot is restored on every exit path.
func (in *Interp) callFunction(name string, args []value.Value, line int) (value.Value, error) {
	def, ok := in.funcs[name]
	if !ok {
		if fn, ok := in.hostFuncs[name]; ok {
			v, err := fn(args)
			if err != nil {
				return value.Null, in.errorf(line, "%s: %v", name, err)
			}
			return v, nil
		}
		return value.Null, in.errorf(line, "unknown function: %s", name)
	}

	if len(in.ctx.stack) >= maxCallDepth {
		return value.Null, in.errorf(line, "call stack exceeded %d frames", maxCallDepth)
	}

	snapshot := in.env.Snapshot()
	in.ctx.push(name)
	defer func() {
		in.env.Restore(snapshot)
		in.ctx.pop()
	}()

	for i, param := range def.params {
		if i < len(args) {
			in.env.Set(param, args[i])
		} else {
			in.env.Set(param, value.Null)
		}
	}

	f, v, err := in.execStmts(def.body)
	if err != nil {
		return value.Null, err
	}
	if f == flowReturn {
		return v, nil
	}
	return value.Null, nil
}

// subscribeHandler wires an on-block to the bus. The body runs against
// the shared environment with the fired payload bound to $event, but
// never concurrently with the script: while a run (or another handler)
// owns the environment the invocation is queued and executed at the
// next statement boundary, otherwise it takes the same exclusive
// ownership a run takes. Handler errors are logged, never raised.
func (in *Interp) subscribeHandler(st *parser.Statement) {
	body := st.Body
	name := st.Name

	unsub := in.host.Subscribe(name, func(event string, payload map[string]any) {
		call := handlerCall{event: event, payload: payload, body: body}

		in.mu.Lock()
		if in.executing {
			in.pending = append(in.pending, call)
			in.mu.Unlock()
			return
		}
		in.mu.Unlock()

		in.runExclusive(func() { in.runHandler(call) })
	})

	in.mu.Lock()
	in.unsubs = append(in.unsubs, unsub)
	in.mu.Unlock()
}

// suspend blocks for d, racing cancellation and the script deadline.
func (in *Interp) suspend(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	var deadline <-chan time.Time
	if in.ctx.timeout > 0 {
		remaining := in.ctx.timeout - time.Since(in.ctx.start)
		dt := time.NewTimer(remaining)
		defer dt.Stop()
		deadline = dt.C
	}

	select {
	case <-timer.C:
		return nil
	case <-in.ctx.stop:
		return ErrStopped
	case <-deadline:
		return &TimeoutError{Limit: in.ctx.timeout}
	}
}

func (in *Interp) resolveArgs(exprs []parser.Expr, line int) ([]value.Value, error) {
	args := make([]value.Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := in.resolveExpr(e, line)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (in *Interp) resolvePayload(with map[string]parser.Expr, line int) (map[string]any, error) {
	payload := make(map[string]any, len(with))
	for k, e := range with {
		v, err := in.resolveExpr(e, line)
		if err != nil {
			return nil, err
		}
		payload[k] = value.ToAny(v)
	}
	return payload, nil
}

func (in *Interp) errorf(line int, format string, args ...any) *RuntimeError {
	var stack []string
	if in.ctx != nil {
		stack = in.ctx.stackCopy()
	}
	return &RuntimeError{
		Msg:   fmt.Sprintf(format, args...),
		Line:  line,
		Stack: stack,
	}
}
