// Package buffer provides the concurrent accumulation structure that holds
// validated events between flushes.
//
// The implementation is a double-buffer swap: Push appends to the current
// slice under a short critical section, and Drain detaches the whole slice
// and installs a fresh one. Push latency is therefore independent of sink
// I/O latency; nothing in this package ever blocks on I/O.
package buffer

import (
	"context"
	"sync"

	"github.com/okian/beacon/internal/domain/event"
	"github.com/okian/beacon/pkg/metrics"
)

const defaultInitialCapacity = 1024

// Buffer accumulates events between two drain points.
//
// Every Push that completes before a Drain begins is present in the batch
// that Drain returns or in a later batch, never dropped and never
// duplicated across the boundary.
type Buffer struct {
	mu              sync.Mutex
	events          []event.Event
	initialCapacity int
}

// New creates an empty buffer with configuration options.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		initialCapacity: defaultInitialCapacity,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.events = make([]event.Event, 0, b.initialCapacity)

	metrics.UpdateBufferSize(0)

	return b
}

// Push adds one event to the currently-accumulating batch. Safe for
// arbitrarily many concurrent callers; completes in amortized O(1).
func (b *Buffer) Push(_ context.Context, e event.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	size := len(b.events)
	b.mu.Unlock()

	metrics.UpdateBufferSize(size)
}

// Drain atomically detaches the accumulated batch and installs a fresh
// empty accumulator. The returned batch is owned by the caller; the buffer
// keeps no reference to it.
func (b *Buffer) Drain(_ context.Context) event.Batch {
	fresh := make([]event.Event, 0, b.initialCapacity)

	b.mu.Lock()
	drained := b.events
	b.events = fresh
	b.mu.Unlock()

	metrics.UpdateBufferSize(0)

	return event.Batch(drained)
}

// Len returns the current number of accumulated events.
func (b *Buffer) Len(_ context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
