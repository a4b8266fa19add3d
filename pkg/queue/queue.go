// Package queue provides a bounded, channel-backed queue used to stream
// values (typically message.Message) from the core's drive loop to an
// external observer without blocking on a slow or absent consumer beyond
// the queue's own capacity.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Put when the queue has already been closed.
var ErrClosed = errors.New("queue: closed")

// Queue is a bounded, single-producer, multi-consumer FIFO queue.
type Queue[T any] struct {
	ch chan T

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Queue with the given buffer capacity.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// Put blocks until there is room in the queue, the context is cancelled, or
// the queue is closed.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- v:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PutNowait attempts to enqueue v without blocking. It reports false if the
// queue is full or closed.
func (q *Queue[T]) PutNowait(v T) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// Get blocks until a value is available, the queue is closed and drained,
// or the context is cancelled. ok is false once the queue is closed and empty.
func (q *Queue[T]) Get(ctx context.Context) (v T, ok bool, err error) {
	select {
	case v = <-q.ch:
		return v, true, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case <-q.closed:
		select {
		case v = <-q.ch:
			return v, true, nil
		default:
			var zero T
			return zero, false, nil
		}
	}
}

// IsEmpty reports whether the queue currently has no buffered values.
func (q *Queue[T]) IsEmpty() bool { return len(q.ch) == 0 }

// IsFull reports whether the queue is at capacity.
func (q *Queue[T]) IsFull() bool { return len(q.ch) == cap(q.ch) }

// Close signals that no further values will be put. Pending values remain
// readable via Get until drained; Put after Close returns ErrClosed.
// The underlying channel itself is never closed, so a Put racing a Close
// can never panic on a send to a closed channel.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}
