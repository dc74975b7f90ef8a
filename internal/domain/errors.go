package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable is returned when an original is sold or reserved.
	ErrUnavailable = errors.New("artwork unavailable")
	// ErrInvalidInput matches every error built with Invalidf.
	ErrInvalidInput = errors.New("invalid input")
)

// InputError describes a request the caller must fix. Its message is shown to clients.
type InputError struct {
	msg string
}

func (e *InputError) Error() string { return e.msg }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// Invalidf returns an InputError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}
