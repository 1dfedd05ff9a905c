package domain

import (
	"errors"
	"fmt"
)

// Errors shared by every layer. Check them with errors.Is.
var (
	// ErrBadRow marks a single record that cannot be paced or encoded.
	// It is always recovered locally: the row is logged and skipped.
	ErrBadRow = errors.New("vdrplayer: bad row")

	// ErrUnsupportedKind is returned when an encoder is asked for a kind it
	// does not implement.
	ErrUnsupportedKind = errors.New("vdrplayer: unsupported message kind")

	// ErrTransport marks peer disconnects, bind and accept failures.
	ErrTransport = errors.New("vdrplayer: transport failure")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("vdrplayer: invalid configuration")

	// ErrInvalidTransition is returned by the lifecycle on an illegal state change.
	ErrInvalidTransition = errors.New("vdrplayer: invalid state transition")

	// ErrAlreadyRunning is returned by Start on a replay that was started before.
	ErrAlreadyRunning = errors.New("vdrplayer: replay already started")

	// ErrNotRunning is returned by Stop and Wait before Start.
	ErrNotRunning = errors.New("vdrplayer: replay not started")

	// ErrShutdownTimeout is returned by Stop when the run does not end in time.
	ErrShutdownTimeout = errors.New("vdrplayer: shutdown timed out")
)

// ErrorClass tells callers how to react to an error.
type ErrorClass int

const (
	// ErrorTransient errors may go away on their own (timeouts, cancellation).
	ErrorTransient ErrorClass = iota
	// ErrorInvalid errors concern one input record; skip it and continue.
	ErrorInvalid
	// ErrorFatal errors end the session.
	ErrorFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its class and the operation that failed.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Component string
	Operation string
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Component, e.Operation, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// WrapInvalid wraps err as a row-level error.
func WrapInvalid(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: ErrorInvalid, Err: err, Component: component, Operation: operation}
}

// WrapFatal wraps err as a session-ending error.
func WrapFatal(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: ErrorFatal, Err: err, Component: component, Operation: operation}
}

// BadRow builds an ErrBadRow error with a reason.
func BadRow(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRow, fmt.Sprintf(format, args...))
}

// Classify returns the class of err. Unclassified errors are judged by the
// sentinel they wrap; anything else is treated as transient.
func Classify(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case errors.Is(err, ErrBadRow):
		return ErrorInvalid
	case errors.Is(err, ErrTransport),
		errors.Is(err, ErrUnsupportedKind),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrInvalidTransition):
		return ErrorFatal
	}
	return ErrorTransient
}

// IsRowError reports whether err only concerns the current row.
func IsRowError(err error) bool {
	return err != nil && Classify(err) == ErrorInvalid
}
