package hub

import (
	"sync"
	"time"
)

// Event is one sequenced notification, kept so clients on the polling
// fallback can catch up incrementally.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"event"`
	Audience  Role      `json:"audience"`
	Data      any       `json:"data,omitempty"`
}

// History stores recent events and provides incremental reads.
type History struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewHistory creates a bounded in-memory event buffer.
func NewHistory(maxEvents int) *History {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &History{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Append records one event, assigning sequence and timestamp.
func (h *History) Append(event Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSeq++
	event.Seq = h.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.events = append(h.events, event)
	if len(h.events) > h.maxEvents {
		trim := len(h.events) - h.maxEvents
		h.events = append([]Event(nil), h.events[trim:]...)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (h *History) Since(seq int64) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Event, 0, len(h.events))
	for _, event := range h.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
