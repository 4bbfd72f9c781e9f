package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPages is returned when a form is constructed without pages.
	ErrNoPages = errors.New("wizard: at least one page is required")
	// ErrNilPage is returned when the page list contains a nil entry.
	ErrNilPage = errors.New("wizard: page is nil")
)

// SubmitError reports a rejected submission. Cause holds the value the
// handler rejected with, passed through untouched; it may be nil.
type SubmitError struct {
	Cause any
}

func (e *SubmitError) Error() string {
	msg := errorString(e.Cause)
	if msg == "" {
		return "wizard: submission failed"
	}
	return "wizard: submission failed: " + msg
}

// Unwrap exposes Cause when it is an error.
func (e *SubmitError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// Message returns the display form of Cause, empty when no value was given.
func (e *SubmitError) Message() string {
	if e == nil {
		return ""
	}
	return errorString(e.Cause)
}

func errorString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
