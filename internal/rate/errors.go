package rate

import "errors"

var (
	// ErrBackendUnavailable wraps counter backend failures.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
)
