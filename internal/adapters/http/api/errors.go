package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrMissingContentType = errors.New("missing Content-Type header")
	ErrInvalidContentType = errors.New("unsupported Content-Type")
	ErrPayloadTooLarge    = errors.New("request body too large")
)
