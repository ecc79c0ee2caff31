package sessions

import "errors"

// Common errors
var (
	// ErrSessionInvalid is returned when a token does not resolve to an
	// active, unexpired session. Lookups of unknown tokens return the same
	// error so callers cannot probe which tokens ever existed.
	ErrSessionInvalid = errors.New("session is no longer valid")

	// ErrSessionNotFound is returned by operations that assume the session
	// exists, such as invalidating an explicitly named token.
	ErrSessionNotFound = errors.New("session not found")
)
