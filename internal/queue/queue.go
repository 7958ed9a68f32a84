// Package queue provides the bounded, block-on-full admission queue used
// as the sole backpressure primitive between the ingress adapter and the
// worker pool. A generic Queue[T] wraps a buffered channel; admission takes
// a context.Context deadline, and workers drain the channel from Items().
package queue

import (
	"context"

	"github.com/rinha-gateway/gateway/internal/apperr"
)

// Queue is a fixed-capacity FIFO of *T backed by a buffered channel.
type Queue[T any] struct {
	ch chan *T
}

// New creates a Queue with the given capacity.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan *T, capacity)}
}

// Add blocks until there is room in the queue or ctx is done, returning
// apperr.ErrQueueFull when the deadline fires first.
func (q *Queue[T]) Add(ctx context.Context, item *T) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return apperr.ErrQueueFull
	}
}

// Close stops admission; no further Add calls should be issued once
// called. Workers keep draining Items until it's empty.
func (q *Queue[T]) Close() {
	close(q.ch)
}

// Items exposes the receive side of the queue for workers to range over.
// The channel closes (and ranging ends) once Close is called and every
// buffered item has been drained.
func (q *Queue[T]) Items() <-chan *T {
	return q.ch
}

// Len reports the number of items currently buffered, for diagnostics.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
