package dispatch

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/morroware/retroscript/pkg/logger"
)

// CommandHandler executes a named command. Errors are caught at the
// dispatch boundary and converted to a failed Result; they never
// propagate past it.
type CommandHandler func(payload map[string]any) (any, error)

// QueryHandler answers a read-only query.
type QueryHandler func(payload map[string]any) (any, error)

// Result is the outcome of a command execution.
type Result struct {
	Success bool
	Data    any
	Error   string
}

// ResultEvent is the shared event carrying correlated command
// outcomes.
const ResultEvent = "action:result"

// Dispatcher routes commands and queries. It is process-wide: one
// instance is shared by every script and the host UI.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
	bus      *Bus
	timers   *timerTable
	macros   *macroStore
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher bound to the given bus. Incoming
// "command:<name>" events are routed to registered handlers, and the
// timer and macro commands are installed.
func NewDispatcher(bus *Bus) *Dispatcher {
	d := &Dispatcher{
		commands: make(map[string]CommandHandler),
		bus:      bus,
		log:      logger.Get(),
	}
	d.timers = newTimerTable(bus)
	d.macros = newMacroStore(bus)

	bus.On("command:*", func(event string, payload map[string]any) {
		name := strings.TrimPrefix(event, "command:")
		d.Execute(name, payload)
	})

	d.registerBuiltins()
	return d
}

// Bus returns the bus this dispatcher publishes on.
func (d *Dispatcher) Bus() *Bus { return d.bus }

// Register stores an async handler under a command name. Registering
// the same name again replaces the previous handler.
func (d *Dispatcher) Register(name string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands[name] = handler
}

// Unregister removes a command handler.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.commands, name)
}

// Execute invokes the handler registered under name. Unknown commands
// and handler errors or panics are caught here and reported as a
// failed Result. When the payload carries a requestId, the outcome is
// also published on the shared result event so correlated waiters wake
// for their own id only.
func (d *Dispatcher) Execute(name string, payload map[string]any) Result {
	d.mu.RLock()
	handler, ok := d.commands[name]
	d.mu.RUnlock()

	var res Result
	if !ok {
		res = Result{Success: false, Error: fmt.Sprintf("unknown command: %s", name)}
		d.log.Warn("command not registered", "command", name)
	} else {
		res = d.invoke(name, handler, payload)
	}

	if payload != nil {
		if reqID, ok := payload["requestId"].(string); ok && reqID != "" {
			out := map[string]any{
				"requestId": reqID,
				"success":   res.Success,
			}
			if res.Success {
				out["data"] = res.Data
			} else {
				out["error"] = res.Error
			}
			d.bus.Emit(ResultEvent, out)
		}
	}

	return res
}

func (d *Dispatcher) invoke(name string, handler CommandHandler, payload map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Success: false, Error: fmt.Sprintf("handler panic in %s: %v", name, r)}
			d.log.Error("command handler panicked", "command", name, "panic", r)
		}
	}()

	data, err := handler(payload)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Data: data}
}

// ExecuteAsync executes a command with a fresh request id and waits
// for the correlated result, racing it against the timeout. The result
// subscription is removed on every path; no listener dangles.
func (d *Dispatcher) ExecuteAsync(name string, payload map[string]any, timeout time.Duration) (Result, error) {
	reqID := uuid.NewString()

	if payload == nil {
		payload = make(map[string]any)
	} else {
		copied := make(map[string]any, len(payload)+1)
		for k, v := range payload {
			copied[k] = v
		}
		payload = copied
	}
	payload["requestId"] = reqID

	ch := make(chan Result, 1)
	unsub := d.bus.On(ResultEvent, func(event string, p map[string]any) {
		if id, _ := p["requestId"].(string); id != reqID {
			return
		}
		res := Result{}
		res.Success, _ = p["success"].(bool)
		res.Data = p["data"]
		res.Error, _ = p["error"].(string)
		select {
		case ch <- res:
		default:
		}
	})
	defer unsub()

	go d.bus.Emit("command:"+name, payload)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-timer.C:
		return Result{}, fmt.Errorf("command %s timed out after %v", name, timeout)
	}
}

// RegisterQuery wires a read-only query topic: an incoming
// "query:<topic>" event is answered on "query:<topic>:response" with
// the same request id. Query handlers never throw past the boundary.
func (d *Dispatcher) RegisterQuery(topic string, handler QueryHandler) {
	in := "query:" + topic
	out := in + ":response"

	d.bus.On(in, func(event string, payload map[string]any) {
		resp := map[string]any{}
		if payload != nil {
			if reqID, ok := payload["requestId"].(string); ok {
				resp["requestId"] = reqID
			}
		}

		data, err := d.answer(topic, handler, payload)
		if err != nil {
			resp["success"] = false
			resp["error"] = err.Error()
		} else {
			resp["success"] = true
			resp["data"] = data
		}
		d.bus.Emit(out, resp)
	})
}

func (d *Dispatcher) answer(topic string, handler QueryHandler, payload map[string]any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("query handler panic in %s: %v", topic, r)
			d.log.Error("query handler panicked", "topic", topic, "panic", r)
		}
	}()
	return handler(payload)
}

// Query publishes a query with a fresh request id and waits for the
// correlated response. The caller's payload map is not modified.
func (d *Dispatcher) Query(topic string, payload map[string]any, timeout time.Duration) (any, error) {
	reqID := uuid.NewString()

	if payload == nil {
		payload = make(map[string]any)
	} else {
		copied := make(map[string]any, len(payload)+1)
		for k, v := range payload {
			copied[k] = v
		}
		payload = copied
	}
	payload["requestId"] = reqID

	type answer struct {
		data any
		err  error
	}
	ch := make(chan answer, 1)

	unsub := d.bus.On("query:"+topic+":response", func(event string, p map[string]any) {
		if id, _ := p["requestId"].(string); id != reqID {
			return
		}
		var a answer
		if ok, _ := p["success"].(bool); ok {
			a.data = p["data"]
		} else {
			msg, _ := p["error"].(string)
			a.err = fmt.Errorf("query %s failed: %s", topic, msg)
		}
		select {
		case ch <- a:
		default:
		}
	})
	defer unsub()

	d.bus.Emit("query:"+topic, payload)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case a := <-ch:
		return a.data, a.err
	case <-timer.C:
		return nil, fmt.Errorf("query %s timed out after %v", topic, timeout)
	}
}

// registerBuiltins installs the timer and macro commands every host
// shares.
func (d *Dispatcher) registerBuiltins() {
	d.Register("timer:set", d.timers.handleSet)
	d.Register("timer:clear", d.timers.handleClear)
	d.Register("macro:record:start", d.macros.handleRecordStart)
	d.Register("macro:record:stop", d.macros.handleRecordStop)
	d.Register("macro:save", d.macros.handleSave)
	d.Register("macro:play", d.macros.handlePlay)
}

// ActiveTimers returns the ids of currently scheduled timers.
func (d *Dispatcher) ActiveTimers() []string { return d.timers.activeIDs() }

// StopTimers cancels every live timer. Used on shutdown.
func (d *Dispatcher) StopTimers() { d.timers.stopAll() }

// Macro returns the stored macro sequence for id, if any.
func (d *Dispatcher) Macro(id string) ([]MacroEvent, bool) { return d.macros.get(id) }
