package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
	// wrapped is the underlying error, if any.
	wrapped error
}

func newAnnotated(msg string, wrapped error, attrs []slog.Attr) AnnotatedError {
	var pcs [1]uintptr
	// Skip runtime.Callers, this function and the exported caller.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return AnnotatedError{
		msg:     msg,
		pc:      pcs[0],
		attrs:   attrs,
		wrapped: wrapped,
	}
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return newAnnotated(msg, nil, attrs)
}

// NewSentinel creates a plain error without other context that can be used as sentinel error that can be detected
// with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap adds a message, the source location and slog attributes to err.
//
// The returned error matches err with [Is] and [As]. Wrapping a nil error returns nil so that the common
// `return errors.Wrap(err, "...")` tail call is safe.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return newAnnotated(msg, err, attrs)
}

// Error implements error interface.
func (err AnnotatedError) Error() string {
	if err.wrapped == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %s", err.msg, err.wrapped.Error())
}

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (err AnnotatedError) Unwrap() error {
	return err.wrapped
}

// LogValue formats the error for useful logging.
func (err AnnotatedError) LogValue() slog.Value {
	// Retrieve the source location of the error so that developers can locate it faster.
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()
	attrs := []slog.Attr{
		slog.String("msg", err.Error()),
		slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line)),
	}
	attrs = append(attrs, err.attrs...)

	// Collect attributes from the wrapped errors as well so that context added deeper in the stack is not lost.
	var inner AnnotatedError
	if err.wrapped != nil && errors.As(err.wrapped, &inner) {
		attrs = append(attrs, inner.attrs...)
	}

	return slog.GroupValue(attrs...)
}

// SlogError returns an slog attribute for err under the "error" key.
func SlogError(err error) slog.Attr {
	var annotated AnnotatedError
	if errors.As(err, &annotated) {
		return slog.Any("error", annotated)
	}
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
