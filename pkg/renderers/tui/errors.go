package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C or Quit).
	ErrAborted = errors.New("tui: aborted")
	// ErrSubmitted is returned by a step page once the final step has been
	// submitted successfully. Runner.Run treats it as completion, much like
	// io.EOF ends a read loop.
	ErrSubmitted = errors.New("tui: form submitted")
)
