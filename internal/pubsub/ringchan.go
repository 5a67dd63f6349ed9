// Package pubsub provides the broadcast primitives the notification
// pipeline and scanner publish on: a bounded ring channel with
// overwrite-oldest semantics and a multi-consumer broadcaster built on it.
package pubsub

import "sync/atomic"

// RingChannel is a bounded channel-like buffer with overwrite-oldest
// semantics. Producers never block: when the buffer is full the oldest
// element is discarded, so a slow consumer can delay itself but never the
// radio callback feeding it. Per-channel FIFO order is preserved.
type RingChannel[T any] struct {
	ch          chan T
	overwritten atomic.Int64
}

// NewRingChannel creates a ring channel with the given capacity.
func NewRingChannel[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("pubsub: ring channel capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the receive side. Consumers can range over it until Close.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send inserts v, discarding the oldest buffered element if the channel is
// full. It never blocks. Reports whether an element was discarded.
func (rc *RingChannel[T]) Send(v T) bool {
	select {
	case rc.ch <- v:
		return false
	default:
	}

	dropped := false
	select {
	case <-rc.ch: // drop oldest
		rc.overwritten.Add(1)
		dropped = true
	default:
	}
	rc.ch <- v
	return dropped
}

// Overwritten returns how many elements have been discarded to make room.
func (rc *RingChannel[T]) Overwritten() int64 {
	return rc.overwritten.Load()
}

// Len returns the number of buffered elements.
func (rc *RingChannel[T]) Len() int {
	return len(rc.ch)
}

// Close closes the channel. Send after Close panics.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}
