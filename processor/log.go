package processor

import "sync"

// ReplayMessage is the {type, data} pair the webview consumes, identical for
// live events and replayed ones.
type ReplayMessage struct {
	Type Kind `json:"type"`
	Data any  `json:"data"`
}

// Log is the ordered, replayable record of normalized events for one session.
// It is append-only during a live turn; truncation and replacement support the
// edit/regenerate and conversation-load flows. Writes come from a single
// processor; the mutex covers reads from the transport layer between turns.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an event at the tail.
func (l *Log) Append(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Len returns the number of events in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Truncate drops every event after index. Truncate(k) leaves events [0..k].
// Out-of-range indexes are clamped; a negative index clears the log.
func (l *Log) Truncate(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < -1 {
		index = -1
	}
	if index >= len(l.events)-1 {
		return
	}
	l.events = l.events[:index+1]
}

// Reset clears the log for a new session.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Replace swaps in a loaded event sequence wholesale.
func (l *Log) Replace(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = make([]Event, len(events))
	copy(l.events, events)
}

// Events returns a copy of the full event sequence.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// ReplayAll produces the ordered {type, data} sequence originally sent live.
// Feeding it back through the posting path reproduces the exact UI state.
func (l *Log) ReplayAll() []ReplayMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ReplayMessage, len(l.events))
	for i, ev := range l.events {
		out[i] = ReplayMessage{Type: ev.MessageType, Data: ev.Data}
	}
	return out
}

// LastToolUse returns the payload of the most recent toolUse event, walking
// back from the tail. Used as the positional fallback when a tool_result
// carries no correlation id.
func (l *Log) LastToolUse() (ToolUseData, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].MessageType != KindToolUse {
			continue
		}
		if data, ok := l.events[i].Data.(ToolUseData); ok {
			return data, true
		}
	}
	return ToolUseData{}, false
}
