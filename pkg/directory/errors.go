package directory

import "errors"

// Common errors
var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrInvalidRole     = errors.New("invalid role")
)
