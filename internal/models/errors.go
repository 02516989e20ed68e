package models

import "errors"

// Domain errors. Callers match them with errors.Is; the HTTP layer turns each one
// into a redirect or a status code.
var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrForbidden              = errors.New("forbidden")
	ErrUnknownUser            = errors.New("unknown user")
	ErrDuplicateTitle         = errors.New("conversation title already taken")
	ErrDuplicateDirectMessage = errors.New("direct message already exists for these users")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrPersistence            = errors.New("persistence failure")
	ErrNotFound               = errors.New("not found")
	ErrUsernameTaken          = errors.New("username already taken")
)
