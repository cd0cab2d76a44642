// Package dispatch provides the command and query router that scripts
// drive for side effects: a process-wide event bus with glob
// subscriptions, a name-to-handler command registry with correlated
// async results, named timers, and macro record/replay.
package dispatch

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/morroware/retroscript/pkg/logger"
)

// Handler receives a published event and its payload.
type Handler func(event string, payload map[string]any)

// subscription holds one listener. The pattern matcher is compiled
// once at subscribe time and checked on every publish.
type subscription struct {
	id      int
	pattern string
	match   func(string) bool
	fn      Handler
	once    bool
}

// Bus is a process-wide publish/subscribe bus. Patterns may contain
// '*' wildcards (for example "command:*"). Emission snapshots the
// listener list, so a listener added while an event is being delivered
// does not receive that event.
type Bus struct {
	mu     sync.Mutex
	subs   []*subscription
	nextID int
	log    *slog.Logger
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{log: logger.Get()}
}

// On subscribes fn to events matching pattern and returns an
// unsubscribe function that is safe to call more than once.
func (b *Bus) On(pattern string, fn Handler) func() {
	return b.subscribe(pattern, fn, false)
}

// Once subscribes fn for a single matching event.
func (b *Bus) Once(pattern string, fn Handler) func() {
	return b.subscribe(pattern, fn, true)
}

func (b *Bus) subscribe(pattern string, fn Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		id:      b.nextID,
		pattern: pattern,
		match:   compileGlob(pattern),
		fn:      fn,
		once:    once,
	}
	b.nextID++
	b.subs = append(b.subs, sub)

	id := sub.id
	return func() { b.remove(id) }
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Emit publishes an event to every listener registered at the moment
// of emission, in registration order. Panicking listeners are caught
// and logged; they never take the bus down.
func (b *Bus) Emit(event string, payload map[string]any) {
	b.mu.Lock()
	matched := make([]*subscription, 0, 4)
	for _, s := range b.subs {
		if s.match(event) {
			matched = append(matched, s)
		}
	}
	// Once-listeners are removed before delivery so a single event
	// can never be delivered to them twice.
	for _, s := range matched {
		if s.once {
			for i, cur := range b.subs {
				if cur.id == s.id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
		}
	}
	b.mu.Unlock()

	for _, s := range matched {
		b.deliver(s, event, payload)
	}
}

func (b *Bus) deliver(s *subscription, event string, payload map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event listener panicked", "event", event, "pattern", s.pattern, "panic", r)
		}
	}()
	s.fn(event, payload)
}

// ListenerCount returns the number of live subscriptions, used by
// tests to verify that correlated waiters always clean up.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// compileGlob compiles a '*' wildcard pattern into a matcher. A
// pattern without wildcards matches exactly.
func compileGlob(pattern string) func(string) bool {
	if !strings.Contains(pattern, "*") {
		return func(event string) bool { return event == pattern }
	}
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re := regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
	return re.MatchString
}
