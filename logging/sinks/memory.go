package sinks

import (
	"context"
	"sync"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

// MemorySink keeps the most recent events for diagnostics and tests. A
// capacity of zero keeps everything.
type MemorySink struct {
	mu       sync.RWMutex
	capacity int
	events   []logging.Event
	start    int
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity < 0 {
		capacity = 0
	}
	return &MemorySink{capacity: capacity}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event = cloneEvent(event)
	if s.capacity == 0 || len(s.events) < s.capacity {
		s.events = append(s.events, event)
		return nil
	}
	s.events[s.start] = event
	s.start = (s.start + 1) % s.capacity
	return nil
}

// Events returns the retained events oldest first.
func (s *MemorySink) Events() []logging.Event {
	return s.filter(func(logging.Event) bool { return true })
}

// EventsOfType returns the retained events whose type matches.
func (s *MemorySink) EventsOfType(eventType logging.EventType) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Type == eventType })
}

// EventsForInstance returns the retained events stamped with the instance id.
func (s *MemorySink) EventsForInstance(instanceID string) []logging.Event {
	return s.filter(func(e logging.Event) bool {
		if e.Actor.Kind == logging.EntityKindInstance && e.Actor.ID == instanceID {
			return true
		}
		id, _ := e.Extra["instance"].(string)
		return id == instanceID
	})
}

func (s *MemorySink) filter(keep func(logging.Event) bool) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]logging.Event, 0, len(s.events))
	for i := range s.events {
		event := s.events[(s.start+i)%len(s.events)]
		if keep(event) {
			out = append(out, event)
		}
	}
	return out
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	s.start = 0
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}

func cloneEvent(event logging.Event) logging.Event {
	if len(event.Targets) > 0 {
		event.Targets = append([]logging.EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		event.Extra = copied
	}
	return event
}
