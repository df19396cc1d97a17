package pipeline

import (
	"context"
	"sync"
)

// Bounded is a fixed-capacity hand-off between one producer and many
// consumers. Put blocks while the buffer is full, which is what keeps a fast
// source from running ahead of the workers.
type Bounded[T any] struct {
	ch          chan T
	closeOnce   sync.Once
	drainedOnce sync.Once
	drained     chan struct{}
}

// NewBounded returns a Bounded buffer holding at most capacity items.
// A capacity below 1 is treated as 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{
		ch:      make(chan T, capacity),
		drained: make(chan struct{}),
	}
}

// Put hands v to the buffer, blocking while it is full. It returns ctx.Err()
// if ctx is cancelled first. Put must not be called after Close.
func (b *Bounded[T]) Put(ctx context.Context, v T) error {
	select {
	case b.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take removes the next item, blocking while the buffer is empty. ok is false
// once the buffer is closed and empty.
func (b *Bounded[T]) Take(ctx context.Context) (v T, ok bool, err error) {
	select {
	case v, ok = <-b.ch:
		if !ok {
			b.drainedOnce.Do(func() { close(b.drained) })
		}
		return v, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Close marks the end of the sequence. Items already buffered can still be taken.
func (b *Bounded[T]) Close() {
	b.closeOnce.Do(func() { close(b.ch) })
}

// Drained is closed once a consumer has observed the buffer closed and empty.
func (b *Bounded[T]) Drained() <-chan struct{} {
	return b.drained
}

// Len returns the number of buffered items.
func (b *Bounded[T]) Len() int { return len(b.ch) }

// Unbounded is a FIFO queue between many producers and a single consumer.
// Push never blocks.
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
	done   chan struct{}
}

// NewUnbounded returns an empty Unbounded buffer.
func NewUnbounded[T any]() *Unbounded[T] {
	return &Unbounded[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends v. It reports false, dropping v, if the buffer is already closed.
func (b *Unbounded[T]) Push(v T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.items = append(b.items, v)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest item, blocking while the buffer is empty. ok is false
// once the buffer is closed and every pushed item has been popped.
func (b *Unbounded[T]) Pop(ctx context.Context) (v T, ok bool, err error) {
	for {
		b.mu.Lock()
		if len(b.items) > 0 {
			v = b.items[0]
			var zero T
			b.items[0] = zero
			b.items = b.items[1:]
			b.mu.Unlock()
			return v, true, nil
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return v, false, nil
		}
		select {
		case <-b.notify:
		case <-b.done:
		case <-ctx.Done():
			return v, false, ctx.Err()
		}
	}
}

// Close ends the sequence. Items pushed before Close are still delivered.
func (b *Unbounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

// Len returns the number of queued items.
func (b *Unbounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
