package export

import (
	"errors"
	"fmt"
)

// Sentinel kinds for export errors. Sinks wrap these with sink-specific
// detail so the scheduler can label failure metrics via errors.Is.
var (
	// ErrConnection marks a transient failure to reach the sink.
	ErrConnection = errors.New("sink unreachable")

	// ErrSerialization marks a payload that could not be encoded for the
	// target sink.
	ErrSerialization = errors.New("batch serialization failed")

	// ErrPartialWrite marks a relational write that failed mid-batch and
	// was rolled back; it surfaces as one full-batch failure.
	ErrPartialWrite = errors.New("partial batch write rolled back")
)

// FailureReason returns the metric label for an export error.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	case errors.Is(err, ErrPartialWrite):
		return "partial"
	default:
		return "unknown"
	}
}

// WrapSink attaches the sink name and operation to an export error kind.
func WrapSink(sink string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", sink, kind, err)
}
