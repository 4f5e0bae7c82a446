package util

import (
	"sync"
)

// Event is a one-shot flag. Once notified it stays notified; later calls to
// Notify are no-ops.
type Event struct {
	once sync.Once
	done chan struct{}
}

func NewEvent() *Event {
	return &Event{
		done: make(chan struct{}),
	}
}

func (e *Event) Notify() {
	e.once.Do(func() {
		close(e.done)
	})
}

// Done is closed when the event is notified, for use in select.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

// HasBeenNotified polls the event without blocking.
func (e *Event) HasBeenNotified() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
