package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoPersistedState = errors.New("no persisted state")
	ErrActionRejected   = errors.New("action rejected")
	ErrPrecacheTimeout  = errors.New("precache timed out")
)
