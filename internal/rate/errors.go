package rate

import "errors"

var (
	// ErrRateLimited means the failure budget is used up until the window
	// expires.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis command failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
