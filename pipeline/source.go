package pipeline

import (
	"context"
	"sync"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Source produces the input records of a run.
type Source[I any] interface {
	// Open starts reading. The iterator must honour ctx cancellation.
	Open(ctx context.Context) (Iterator[I], error)
}

// Writer consumes output records.
type Writer[O any] interface {
	Write(ctx context.Context, v O) error
	// Close flushes buffered records and releases resources.
	Close() error
}

// Flusher is implemented by writers that buffer records before storing
// them. Flushed reports how many records reached the destination.
type Flusher interface {
	Flushed() int64
}

// Sink receives the output records of a run.
type Sink[O any] interface {
	Open(ctx context.Context) (Writer[O], error)
}

// TransformFunc maps one input record to one output record.
type TransformFunc[I, O any] func(ctx context.Context, in I) (O, error)

// SourceFunc adapts a function to Source.
type SourceFunc[I any] func(ctx context.Context) (Iterator[I], error)

// Open calls f.
func (f SourceFunc[I]) Open(ctx context.Context) (Iterator[I], error) { return f(ctx) }

// SinkFunc adapts a function to Sink.
type SinkFunc[O any] func(ctx context.Context) (Writer[O], error)

// Open calls f.
func (f SinkFunc[O]) Open(ctx context.Context) (Writer[O], error) { return f(ctx) }

// FromSlice returns a Source that yields items in order.
func FromSlice[T any](items []T) Source[T] {
	return SourceFunc[T](func(context.Context) (Iterator[T], error) {
		return &sliceIter[T]{items: items}, nil
	})
}

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if it.index >= len(it.items) {
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

// Collector is an in-memory Sink that keeps every written record.
type Collector[O any] struct {
	mu     sync.Mutex
	items  []O
	closed bool
}

// NewCollector returns an empty Collector.
func NewCollector[O any]() *Collector[O] { return &Collector[O]{} }

// Open returns the collector itself.
func (c *Collector[O]) Open(context.Context) (Writer[O], error) { return c, nil }

// Write appends v.
func (c *Collector[O]) Write(_ context.Context, v O) error {
	c.mu.Lock()
	c.items = append(c.items, v)
	c.mu.Unlock()
	return nil
}

// Close marks the collector as flushed.
func (c *Collector[O]) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Items returns a copy of the written records.
func (c *Collector[O]) Items() []O {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]O(nil), c.items...)
}

// Closed reports whether Close has been called.
func (c *Collector[O]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
