// Package events publishes poll domain events to a Redis stream.
package events

import (
	"sync"
	"time"
)

// Event types.
const (
	TypeVoteCast   = "vote_cast"
	TypePollClosed = "poll_closed"
)

// Event is a committed change to a poll.
type Event struct {
	ID         string
	Type       string
	PollID     string
	QuestionID string
	OptionID   string
	UserID     string
	OccurredAt time.Time
}

// Publisher accepts events after the change they describe is persisted.
// PublishAsync must not block the caller.
type Publisher interface {
	PublishAsync(event Event)
}

type noop struct{}

func (noop) PublishAsync(Event) {}

// NewNoop returns a Publisher that drops every event.
func NewNoop() Publisher {
	return noop{}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// PublishAsync stores the event.
func (r *Recorder) PublishAsync(event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
