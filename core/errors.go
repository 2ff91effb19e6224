package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("teamsite: not found")
	ErrMalformedStore = errors.New("teamsite: malformed record store")
	ErrMissingField   = errors.New("teamsite: missing form field")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// MissingFieldError names the form field that was absent from a submission.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
