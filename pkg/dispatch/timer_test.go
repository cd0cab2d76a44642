package dispatch

import (
	"sync"
	"testing"
	"time"
)

// collectEvents subscribes to an event and returns a thread-safe view
// of the payloads received.
func collectEvents(bus *Bus, event string) func() []map[string]any {
	var mu sync.Mutex
	var got []map[string]any
	bus.On(event, func(_ string, p map[string]any) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})
	return func() []map[string]any {
		mu.Lock()
		defer mu.Unlock()
		out := make([]map[string]any, len(got))
		copy(out, got)
		return out
	}
}

func TestTimerOneShotFires(t *testing.T) {
	d := newTestDispatcher()
	fired := collectEvents(d.Bus(), FiredEvent)

	res := d.Execute("timer:set", map[string]any{
		"timerId": "t1",
		"delay":   20,
	})
	if !res.Success {
		t.Fatalf("timer:set failed: %s", res.Error)
	}

	time.Sleep(80 * time.Millisecond)

	got := fired()
	if len(got) != 1 {
		t.Fatalf("timer fired %d times, want 1", len(got))
	}
	if got[0]["timerId"] != "t1" {
		t.Errorf("fired payload = %v", got[0])
	}
	if ids := d.ActiveTimers(); len(ids) != 0 {
		t.Errorf("one-shot timer still active: %v", ids)
	}
}

func TestTimerRepeating(t *testing.T) {
	d := newTestDispatcher()
	fired := collectEvents(d.Bus(), FiredEvent)

	d.Execute("timer:set", map[string]any{
		"timerId": "tick",
		"delay":   15,
		"repeat":  true,
	})

	time.Sleep(100 * time.Millisecond)
	d.Execute("timer:clear", map[string]any{"timerId": "tick"})

	n := len(fired())
	if n < 2 {
		t.Errorf("repeating timer fired %d times, want at least 2", n)
	}

	time.Sleep(50 * time.Millisecond)
	if len(fired()) != n {
		t.Error("timer kept firing after clear")
	}
}

func TestTimerSameIDReplacesPriorTimer(t *testing.T) {
	d := newTestDispatcher()
	fired := collectEvents(d.Bus(), "first:done")

	d.Execute("timer:set", map[string]any{
		"timerId": "t1",
		"delay":   30,
		"event":   "first:done",
	})
	d.Execute("timer:set", map[string]any{
		"timerId": "t1",
		"delay":   30,
		"event":   "second:done",
	})

	if ids := d.ActiveTimers(); len(ids) != 1 || ids[0] != "t1" {
		t.Fatalf("active timers = %v, want exactly [t1]", ids)
	}

	second := collectEvents(d.Bus(), "second:done")
	time.Sleep(100 * time.Millisecond)

	if len(fired()) != 0 {
		t.Error("replaced timer still fired")
	}
	if len(second()) != 1 {
		t.Errorf("replacement fired %d times, want 1", len(second()))
	}
}

func TestTimerCustomEventAndPayload(t *testing.T) {
	d := newTestDispatcher()
	custom := collectEvents(d.Bus(), "backup:due")

	d.Execute("timer:set", map[string]any{
		"timerId": "backup",
		"delay":   10,
		"event":   "backup:due",
		"payload": map[string]any{"target": "/docs"},
	})

	time.Sleep(60 * time.Millisecond)

	got := custom()
	if len(got) != 1 {
		t.Fatalf("custom event fired %d times, want 1", len(got))
	}
	if got[0]["target"] != "/docs" || got[0]["timerId"] != "backup" {
		t.Errorf("payload = %v", got[0])
	}
}

func TestTimerValidation(t *testing.T) {
	d := newTestDispatcher()

	if res := d.Execute("timer:set", map[string]any{"delay": 10}); res.Success {
		t.Error("timer:set without id succeeded")
	}
	if res := d.Execute("timer:set", map[string]any{"timerId": "x"}); res.Success {
		t.Error("timer:set without delay succeeded")
	}
	// Clearing an unknown id is not an error.
	if res := d.Execute("timer:clear", map[string]any{"timerId": "ghost"}); !res.Success {
		t.Errorf("timer:clear on unknown id failed: %s", res.Error)
	}
}

func TestStopTimersCancelsEverything(t *testing.T) {
	d := newTestDispatcher()

	d.Execute("timer:set", map[string]any{"timerId": "a", "delay": 1000})
	d.Execute("timer:set", map[string]any{"timerId": "b", "delay": 1000, "repeat": true})

	d.StopTimers()
	if ids := d.ActiveTimers(); len(ids) != 0 {
		t.Errorf("active timers after StopTimers: %v", ids)
	}
}
