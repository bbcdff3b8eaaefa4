package testutil

import (
	"sync"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
)

// SentEvent is one event captured by a FakeSender.
type SentEvent struct {
	Type    protocol.EventType
	Payload any
}

// FakeSender records events instead of delivering them. Safe for
// concurrent use.
type FakeSender struct {
	mu     sync.Mutex
	events []SentEvent
	closed bool

	// SendErr, when set, is returned from every Send call.
	SendErr error
}

// NewFakeSender creates an empty recording sender.
func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

func (f *FakeSender) Send(event protocol.EventType, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.events = append(f.events, SentEvent{Type: event, Payload: payload})
	return nil
}

func (f *FakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSender) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Events returns a copy of everything sent so far.
func (f *FakeSender) Events() []SentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentEvent, len(f.events))
	copy(out, f.events)
	return out
}

// EventsOfType returns the captured events of one kind, in order.
func (f *FakeSender) EventsOfType(kind protocol.EventType) []SentEvent {
	var out []SentEvent
	for _, e := range f.Events() {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}
