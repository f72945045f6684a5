package ui

import "github.com/five82/audioshelf/internal/state"

const eventBuffer = 32

// EventBridge forwards state notifications into the Bubble Tea loop. It
// implements state.Notifier and never blocks the caller; when the buffer is
// full the event is dropped, since the next tick re-reads the snapshot anyway.
type EventBridge struct {
	ch chan state.Event
}

// NewEventBridge creates a bridge with a small buffer.
func NewEventBridge() *EventBridge {
	return &EventBridge{ch: make(chan state.Event, eventBuffer)}
}

// Notify implements state.Notifier.
func (b *EventBridge) Notify(e state.Event) {
	select {
	case b.ch <- e:
	default:
	}
}

// Events exposes the receive side of the bridge.
func (b *EventBridge) Events() <-chan state.Event {
	return b.ch
}
