package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the booking core. Callers match them with
// errors.Is; the message of *Error is safe to show to end users.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrCapacity          = errors.New("insufficient capacity")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error is a typed business outcome. Kind is one of the sentinels above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func capacityf(format string, args ...any) error {
	return &Error{Kind: ErrCapacity, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func transitionf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidTransition, Msg: fmt.Sprintf(format, args...)}
}

// Message returns the user-facing message of a business error, or "" for
// faults that must not leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
