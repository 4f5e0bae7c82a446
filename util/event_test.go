package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent(t *testing.T) {
	e := NewEvent()
	assert.False(t, e.HasBeenNotified())

	select {
	case <-e.Done():
		t.Fatal("Done closed before Notify")
	default:
	}

	e.Notify()
	// Repeat notifications must not panic on the closed channel.
	e.Notify()

	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Notify")
	}
	assert.True(t, e.HasBeenNotified())
}

func TestEventConcurrentNotify(t *testing.T) {
	e := NewEvent()
	for i := 0; i < 8; i++ {
		go e.Notify()
	}
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
}
