package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("property was modified concurrently")
	ErrPersistence       = errors.New("persistence failure")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// TransitionError reports an action whose precondition does not hold. Error
// returns only the reason so callers can show it as is.
type TransitionError struct {
	Action TokenAction
	Reason string
}

func (e *TransitionError) Error() string { return e.Reason }

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
