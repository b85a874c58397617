package sync

import "context"

// Adapted from the slides for "Rethinking Classical Concurrency Patterns" by Bryan C. Mills.

type state[T any] struct {
	value   T
	seq     int64
	changed chan struct{} // closed upon notify
}

// Notifier holds the latest value of something and broadcasts changes to it.
// Readers never block writers. A slow reader sees the newest value, not
// every intermediate one.
//
// Calling AwaitChange() with an out of date sequence number returns the
// current value immediately.
type Notifier[T any] struct {
	st chan state[T]
}

func NewNotifier[T any](initial T) *Notifier[T] {
	st := make(chan state[T], 1)
	st <- state[T]{
		value:   initial,
		seq:     0,
		changed: make(chan struct{}),
	}
	return &Notifier[T]{st: st}
}

func (n *Notifier[T]) NotifyChange(v T) {
	st := <-n.st
	close(st.changed)
	n.st <- state[T]{
		value:   v,
		seq:     st.seq + 1,
		changed: make(chan struct{}),
	}
}

func (n *Notifier[T]) LastChange() (T, int64) {
	st := <-n.st
	n.st <- st

	return st.value, st.seq
}

// AwaitChange blocks until there's a value newer than seq, or ctx is done.
// On cancellation it returns the current value and seq unchanged.
func (n *Notifier[T]) AwaitChange(ctx context.Context, seq int64) (T, int64) {
	st := <-n.st
	n.st <- st

	if st.seq != seq {
		return st.value, st.seq
	}

	select {
	case <-ctx.Done():
		return st.value, seq
	case <-st.changed:
		return n.LastChange()
	}
}
