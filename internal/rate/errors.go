package rate

import "errors"

var (
	// ErrStoreUnavailable wraps any failure of a backing counter store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrInvalidWindow is returned when a window has a non-positive size or limit.
	ErrInvalidWindow = errors.New("invalid rate limit window")
)
