package dispatch

import (
	"fmt"
	"sync"
	"time"
)

// MacroEvent is one captured command with the delay since the previous
// capture. Replaying a macro re-emits the command events with the same
// spacing, scaled by the playback speed.
type MacroEvent struct {
	Event   string
	Payload map[string]any
	Delay   time.Duration
}

// macroStore records command traffic off the bus. While recording is
// active a wildcard command:* listener captures every command emitted,
// whether issued by a script or by the host.
type macroStore struct {
	mu        sync.Mutex
	recording bool
	currentID string
	lastAt    time.Time
	current   []MacroEvent
	saved     map[string][]MacroEvent
	unsub     func()
	bus       *Bus
}

func newMacroStore(bus *Bus) *macroStore {
	return &macroStore{
		saved: make(map[string][]MacroEvent),
		bus:   bus,
	}
}

// handleRecordStart implements macro:record:start. Starting while
// already recording discards the in-progress capture and begins fresh.
func (m *macroStore) handleRecordStart(payload map[string]any) (any, error) {
	id, _ := payload["macroId"].(string)

	m.mu.Lock()
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	m.recording = true
	m.currentID = id
	m.current = nil
	m.lastAt = time.Now()
	m.unsub = m.bus.On("command:*", m.capture)
	m.mu.Unlock()

	m.bus.Emit("macro:recording", map[string]any{"macroId": id})
	return map[string]any{"recording": true}, nil
}

// handleRecordStop implements macro:record:stop. The capture is stored
// under the id given at record start, when one was given.
func (m *macroStore) handleRecordStop(payload map[string]any) (any, error) {
	m.mu.Lock()
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	m.recording = false
	id := m.currentID
	count := len(m.current)
	if id != "" {
		seq := make([]MacroEvent, count)
		copy(seq, m.current)
		m.saved[id] = seq
	}
	m.mu.Unlock()

	m.bus.Emit("macro:recorded", map[string]any{"macroId": id, "count": count})
	return map[string]any{"macroId": id, "count": count}, nil
}

// handleSave implements macro:save, storing either an explicit event
// list or the last capture under the given id.
func (m *macroStore) handleSave(payload map[string]any) (any, error) {
	id, _ := payload["macroId"].(string)
	if id == "" {
		return nil, fmt.Errorf("macro:save requires a macroId")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recording {
		return nil, fmt.Errorf("stop recording before saving")
	}

	var seq []MacroEvent
	if raw, ok := payload["events"].([]MacroEvent); ok {
		seq = make([]MacroEvent, len(raw))
		copy(seq, raw)
	} else {
		seq = make([]MacroEvent, len(m.current))
		copy(seq, m.current)
	}
	m.saved[id] = seq

	return map[string]any{"macroId": id, "count": len(seq)}, nil
}

// handlePlay implements macro:play. The optional speed factor divides
// the recorded delays, so speed 2 plays twice as fast. Playback runs
// on its own goroutine; the command returns immediately.
func (m *macroStore) handlePlay(payload map[string]any) (any, error) {
	id, _ := payload["macroId"].(string)
	if id == "" {
		return nil, fmt.Errorf("macro:play requires a macroId")
	}

	speed := 1.0
	if s, ok := payload["speed"].(float64); ok && s > 0 {
		speed = s
	}

	m.mu.Lock()
	seq, ok := m.saved[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown macro: %s", id)
	}

	go m.play(id, seq, speed)
	return map[string]any{"macroId": id, "count": len(seq)}, nil
}

func (m *macroStore) capture(event string, payload map[string]any) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording {
		return
	}

	delay := now.Sub(m.lastAt)
	m.lastAt = now

	copied := make(map[string]any, len(payload))
	for k, v := range payload {
		// Correlation ids belong to the original request, not the
		// replay.
		if k == "requestId" {
			continue
		}
		copied[k] = v
	}

	m.current = append(m.current, MacroEvent{
		Event:   event,
		Payload: copied,
		Delay:   delay,
	})
}

func (m *macroStore) play(id string, seq []MacroEvent, speed float64) {
	m.bus.Emit("macro:playing", map[string]any{"macroId": id})

	for _, ev := range seq {
		time.Sleep(time.Duration(float64(ev.Delay) / speed))
		m.bus.Emit(ev.Event, ev.Payload)
	}

	m.bus.Emit("macro:complete", map[string]any{"macroId": id})
}

func (m *macroStore) get(id string) ([]MacroEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, ok := m.saved[id]
	return seq, ok
}
