// Package export defines the sink contract for durable batch export and the
// scheduler that periodically drains the buffer into the configured sinks.
package export

import (
	"context"

	"github.com/okian/beacon/internal/domain/event"
)

// Sink is one durable export destination. Implementations must be safe for
// concurrent use and must treat an empty batch as a no-op, not an error.
// WriteBatch is the only operation in the pipeline allowed to block on
// external I/O.
type Sink interface {
	// Name identifies the sink in logs and metric labels.
	Name() string

	// WriteBatch durably writes one batch. Implementations either write
	// the whole batch or report one failure; partial writes must not be
	// observable.
	WriteBatch(ctx context.Context, batch event.Batch) error

	// Close releases connections and handles held by the sink.
	Close() error
}
