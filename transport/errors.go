package transport

import "errors"

var (
	// ErrCanceled reports that the caller's context ended before the
	// remote side answered.
	ErrCanceled = errors.New("transport: request canceled")

	// ErrInvalidBaseURL reports an unusable HTTPClient base URL.
	ErrInvalidBaseURL = errors.New("transport: invalid base url")
)
