package event

import (
	"errors"
	"fmt"
)

// Sentinel kinds for validation errors. Each maps to a distinguishable
// client-facing 4xx response; errors.Is works through the wrapping done by
// Validate.
var (
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrUnknownField       = errors.New("unknown field")
	ErrMissingField       = errors.New("missing field")
	ErrInvalidEnum        = errors.New("invalid enum value")
	ErrInvariantViolation = errors.New("entity/action pairing violated")
)

// wrapField attaches the offending field name to a sentinel kind.
func wrapField(kind error, field string) error {
	return fmt.Errorf("%w: %s", kind, field)
}

// Reason returns the short label used for rejection metrics, or "invalid"
// when err is not one of this package's kinds.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidEnum):
		return "invalid_enum"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "invalid"
	}
}
