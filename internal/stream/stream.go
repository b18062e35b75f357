// Package stream fan-outs generation attempt lifecycle events to SSE
// subscribers so the review UI can show live progress.
package stream

import (
	"context"
	"sync"
	"time"
)

// AttemptEvent describes one state transition of a generation attempt.
type AttemptEvent struct {
	AttemptID  string    `json:"attempt_id"`
	IntakeID   string    `json:"intake_id"`
	State      string    `json:"state"`
	Detail     string    `json:"detail,omitempty"`
	Unresolved int       `json:"unresolved,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stream fan-outs attempt events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan AttemptEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan AttemptEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan AttemptEvent {
	ch := make(chan AttemptEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt AttemptEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
