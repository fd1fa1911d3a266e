package errors

import (
	"context"
	"errors"
	"fmt"
)

// Normalize well-known errors into engine errors.
func Normalize(err error, msg string) error {
	if e, ok := err.(*Error); ok {
		return e
	}

	switch {
	case err == nil:
		return nil

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Message: fmt.Sprintf("%s interrupted", msg),
			Kind:    Cancellation,
		}

	default:
		return &Error{
			Message:     fmt.Sprintf("%s error: %s", msg, err.Error()),
			Kind:        UnknownError,
			NestedError: err,
		}
	}
}

// Context extracts the cancellation error from a context.
func Context(ctx context.Context, msg string) error {
	// If the context was cancelled with a cause, it's either an error we've
	// provided (already an engine error) or an error the user provided from a
	// parent context, which should be respected as-is.
	if err := context.Cause(ctx); err != nil && err != ctx.Err() {
		return err
	}
	return Normalize(ctx.Err(), msg)
}

// KindOf returns the kind of an engine error, or UnknownError for any
// other non-nil error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}
