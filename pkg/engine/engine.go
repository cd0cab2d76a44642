// Package engine ties the pieces together into the embedding surface
// hosts use: parse and run script text, route side effects through the
// dispatch layer, and convert every failure into a structured result.
// A script error never surfaces as a panic or an uncaught error.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/morroware/retroscript/pkg/config"
	"github.com/morroware/retroscript/pkg/dispatch"
	"github.com/morroware/retroscript/pkg/interp"
	"github.com/morroware/retroscript/pkg/logger"
	"github.com/morroware/retroscript/pkg/parser"
	"github.com/morroware/retroscript/pkg/script"
	"github.com/morroware/retroscript/pkg/value"
)

// Result is the outcome of one run. Success is false for parse,
// runtime, and timeout failures alike; Line and Stack are populated
// when the failure carries them.
type Result struct {
	Success bool
	Value   value.Value
	Error   string
	Line    int
	Stack   []string
}

// Engine is one scripting engine instance. The variable environment
// and function table belong to it alone; the bus, command registry,
// timers, and macro store are shared with the host through the
// dispatcher. Concurrent Run calls are serialized.
type Engine struct {
	bus        *dispatch.Bus
	dispatcher *dispatch.Dispatcher
	in         *interp.Interp
	log        *slog.Logger
	cfg        config.Config
	output     func(string)

	runMu sync.Mutex
}

// Option configures an engine.
type Option func(*Engine)

// WithConfig applies a loaded configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithOutput redirects print statements. The default writes to stdout.
func WithOutput(fn func(string)) Option {
	return func(e *Engine) { e.output = fn }
}

// WithDispatcher shares an existing dispatcher (and its bus) instead
// of creating a private one. Hosts running several engines against one
// command registry use this.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
		e.bus = d.Bus()
	}
}

// New constructs an engine. Hosts construct one instance and pass it
// by reference; tests construct fresh instances for isolation.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:    logger.Get(),
		cfg:    config.Default(),
		output: func(s string) { fmt.Fprintln(os.Stdout, s) },
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dispatcher == nil {
		e.bus = dispatch.NewBus()
		e.dispatcher = dispatch.NewDispatcher(e.bus)
	}

	e.in = interp.New(e,
		interp.WithTimeout(e.cfg.ScriptTimeout()),
		interp.WithDialogTimeouts(e.cfg.ConfirmTimeout(), e.cfg.PromptTimeout()),
		interp.WithCommandTimeout(e.cfg.CommandTimeout()),
	)

	e.in.DefineFunction("getstate", e.getState)

	return e
}

// Run parses and executes script text. Entries in context seed the
// run's variables before the first statement executes, atomically with
// starting the run.
func (e *Engine) Run(src string, context map[string]any) Result {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	parsed, err := parser.Parse(src)
	if err != nil {
		return e.fail(err)
	}

	vars := make(map[string]value.Value, len(context))
	for k, v := range context {
		vars[k] = value.FromAny(v)
	}

	v, err := e.in.Run(parsed, vars)
	if err != nil {
		return e.fail(err)
	}
	return Result{Success: true, Value: v}
}

// RunFile loads a script file and runs it.
func (e *Engine) RunFile(path string, context map[string]any) Result {
	src, err := script.Load(path)
	if err != nil {
		return e.fail(err)
	}
	return e.Run(src, context)
}

// Check parses script text without executing it.
func (e *Engine) Check(src string) error {
	_, err := parser.Parse(src)
	return err
}

// Stop cancels the running script at its next checkpoint.
func (e *Engine) Stop() {
	e.in.Stop()
}

// SetTimeout changes the run deadline. Zero means unlimited.
func (e *Engine) SetTimeout(d time.Duration) {
	e.in.SetTimeout(d)
}

// DefineFunction exposes a host function to scripts.
func (e *Engine) DefineFunction(name string, fn interp.HostFunc) {
	e.in.DefineFunction(name, fn)
}

// GetVariable reads a script variable; unbound names read as null.
func (e *Engine) GetVariable(name string) value.Value {
	return e.in.GetVariable(name)
}

// SetVariable writes a script variable.
func (e *Engine) SetVariable(name string, v value.Value) {
	e.in.SetVariable(name, v)
}

// Dispatcher returns the command router, for host-side registration.
func (e *Engine) Dispatcher() *dispatch.Dispatcher {
	return e.dispatcher
}

// Bus returns the shared event bus.
func (e *Engine) Bus() *dispatch.Bus {
	return e.bus
}

// Close detaches every on-handler the engine's scripts registered and
// cancels live timers.
func (e *Engine) Close() {
	e.in.Detach()
	e.dispatcher.StopTimers()
}

// fail converts any error into a structured result and announces it
// on the bus.
func (e *Engine) fail(err error) Result {
	res := Result{Success: false, Error: err.Error()}

	var pe *parser.ParseError
	var re *interp.RuntimeError
	var te *interp.TimeoutError
	switch {
	case errors.As(err, &pe):
		res.Line = pe.Line
	case errors.As(err, &re):
		res.Line = re.Line
		res.Stack = re.Stack
	case errors.As(err, &te):
	case errors.Is(err, interp.ErrStopped):
	}

	e.log.Warn("script failed", "error", err)
	payload := map[string]any{"error": res.Error, "line": res.Line}
	if len(res.Stack) > 0 {
		stack := make([]any, len(res.Stack))
		for i, s := range res.Stack {
			stack[i] = s
		}
		payload["stack"] = stack
	}
	e.bus.Emit("script:error", payload)

	return res
}

// getState is the built-in getstate(path) function, answered by the
// host's state store through the query contract.
func (e *Engine) getState(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null, fmt.Errorf("getstate requires a path")
	}
	data, err := e.dispatcher.Query("state", map[string]any{
		"path": value.ToString(args[0]),
	}, e.cfg.CommandTimeout())
	if err != nil {
		return value.Null, err
	}
	return value.FromAny(data), nil
}

// Execute implements interp.Host: a correlated command round trip.
func (e *Engine) Execute(name string, payload map[string]any, timeout time.Duration) (any, error) {
	res, err := e.dispatcher.ExecuteAsync(name, payload, timeout)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.New(res.Error)
	}
	return res.Data, nil
}

// Post implements interp.Host: a fire-and-forget command. Routing it
// over the bus keeps script-issued commands visible to macro
// recording and any other command:* listener.
func (e *Engine) Post(name string, payload map[string]any) {
	e.bus.Emit("command:"+name, payload)
}

// Emit implements interp.Host.
func (e *Engine) Emit(event string, payload map[string]any) {
	e.bus.Emit(event, payload)
}

// Subscribe implements interp.Host.
func (e *Engine) Subscribe(pattern string, fn func(event string, payload map[string]any)) func() {
	return e.bus.On(pattern, fn)
}

// Print implements interp.Host.
func (e *Engine) Print(text string) {
	e.output(text)
}
