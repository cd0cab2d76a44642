package dispatch

import (
	"fmt"
	"sync"
	"time"
)

// FiredEvent is published every time a scheduled timer goes off.
const FiredEvent = "timer:fired"

// timerEntry is one live timer. The cancel channel is closed exactly
// once, either by timer:clear, by replacement, or by a one-shot firing.
type timerEntry struct {
	id      string
	delay   time.Duration
	repeat  bool
	event   string
	payload map[string]any
	cancel  chan struct{}
}

// timerTable owns every named timer. Setting a timer under an id that
// already exists replaces it: the old goroutine is cancelled before
// the new one starts, so an id never fires twice per tick.
type timerTable struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
	bus    *Bus
}

func newTimerTable(bus *Bus) *timerTable {
	return &timerTable{
		timers: make(map[string]*timerEntry),
		bus:    bus,
	}
}

// handleSet implements the timer:set command. Payload: timerId,
// delay (milliseconds), repeat, and an optional event name published
// alongside timer:fired with the optional payload merged in.
func (t *timerTable) handleSet(payload map[string]any) (any, error) {
	id, _ := payload["timerId"].(string)
	if id == "" {
		return nil, fmt.Errorf("timer:set requires a timerId")
	}

	ms := toMillis(payload["delay"])
	if ms <= 0 {
		return nil, fmt.Errorf("timer:set requires a positive delay")
	}

	repeat, _ := payload["repeat"].(bool)
	event, _ := payload["event"].(string)
	extra, _ := payload["payload"].(map[string]any)

	entry := &timerEntry{
		id:      id,
		delay:   time.Duration(ms) * time.Millisecond,
		repeat:  repeat,
		event:   event,
		payload: extra,
		cancel:  make(chan struct{}),
	}

	t.mu.Lock()
	if old, ok := t.timers[id]; ok {
		close(old.cancel)
	}
	t.timers[id] = entry
	t.mu.Unlock()

	go t.run(entry)
	return map[string]any{"timerId": id}, nil
}

// handleClear implements the timer:clear command. Clearing an unknown
// id is not an error.
func (t *timerTable) handleClear(payload map[string]any) (any, error) {
	id, _ := payload["timerId"].(string)
	if id == "" {
		return nil, fmt.Errorf("timer:clear requires a timerId")
	}

	t.mu.Lock()
	entry, ok := t.timers[id]
	if ok {
		close(entry.cancel)
		delete(t.timers, id)
	}
	t.mu.Unlock()

	return map[string]any{"cleared": ok}, nil
}

func (t *timerTable) run(entry *timerEntry) {
	ticker := time.NewTicker(entry.delay)
	defer ticker.Stop()

	for {
		select {
		case <-entry.cancel:
			return
		case <-ticker.C:
			t.fire(entry)
			if !entry.repeat {
				t.mu.Lock()
				// Only drop the table slot if it still points at us;
				// a replacement may already have taken the id.
				if cur, ok := t.timers[entry.id]; ok && cur == entry {
					delete(t.timers, entry.id)
				}
				t.mu.Unlock()
				return
			}
		}
	}
}

func (t *timerTable) fire(entry *timerEntry) {
	payload := map[string]any{"timerId": entry.id}
	for k, v := range entry.payload {
		payload[k] = v
	}
	t.bus.Emit(FiredEvent, payload)
	if entry.event != "" {
		t.bus.Emit(entry.event, payload)
	}
}

func (t *timerTable) activeIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.timers))
	for id := range t.timers {
		ids = append(ids, id)
	}
	return ids
}

func (t *timerTable) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, entry := range t.timers {
		close(entry.cancel)
		delete(t.timers, id)
	}
}

// toMillis accepts the numeric shapes a delay may arrive in once
// payloads have crossed the script boundary.
func toMillis(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	default:
		return 0
	}
}
