package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid run status transition")
	ErrInvalidQuote      = errors.New("invalid quote")
)

// ValidationError reports a malformed rule or request. It is a configuration error:
// callers reject the input before any run is created.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	if e.Field == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
