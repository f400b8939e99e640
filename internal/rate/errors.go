package rate

import "errors"

var (
	// ErrRateLimited signals that the IP is inside its lockout window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
