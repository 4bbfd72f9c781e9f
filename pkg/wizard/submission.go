package wizard

import (
	"context"
	"sync"
)

// SubmitHandler performs the final submission. It must settle the request by
// calling exactly one of Resolve or Reject; calls after the first are ignored.
// Returning a non-nil error counts as Reject(err).
type SubmitHandler func(ctx context.Context, req SubmitRequest) error

// SubmitHandlerFunc adapts a handler that reports its outcome through the
// return value only, for transports that never settle asynchronously.
func SubmitHandlerFunc(fn func(ctx context.Context, values map[string]any) error) SubmitHandler {
	return func(ctx context.Context, req SubmitRequest) error {
		if err := fn(ctx, req.Values); err != nil {
			req.Reject(err)
			return nil
		}
		req.Resolve()
		return nil
	}
}

// SubmitRequest is what a SubmitHandler receives.
type SubmitRequest struct {
	// Values is a snapshot of every value accumulated across steps.
	Values  map[string]any
	Resolve func()
	// Reject fails the submission. The first argument, if any, becomes the
	// error surfaced to the page.
	Reject func(cause ...any)
}

// Submission is the outcome of a last-step submit. It settles once; the first
// Resolve or Reject wins.
type Submission struct {
	once     sync.Once
	done     chan struct{}
	err      *SubmitError
	onSettle func(*Submission) func()
}

// newSubmission returns a pending submission. onSettle runs before Done is
// closed so waiters observe the settled form state; the func it returns runs
// after Done is closed.
func newSubmission(onSettle func(*Submission) func()) *Submission {
	return &Submission{
		done:     make(chan struct{}),
		onSettle: onSettle,
	}
}

func (s *Submission) resolve() {
	s.settle(nil)
}

func (s *Submission) reject(cause ...any) {
	var value any
	if len(cause) > 0 {
		value = cause[0]
	}
	s.settle(&SubmitError{Cause: value})
}

func (s *Submission) settle(err *SubmitError) {
	settled := false
	s.once.Do(func() {
		s.err = err
		settled = true
	})
	if !settled {
		return
	}
	var after func()
	if s.onSettle != nil {
		after = s.onSettle(s)
	}
	close(s.done)
	if after != nil {
		after()
	}
}

// Done is closed once the submission settles.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Settled reports whether the submission has settled.
func (s *Submission) Settled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns nil while pending or after a successful submission, and a
// *SubmitError after a rejection.
func (s *Submission) Err() error {
	if !s.Settled() || s.err == nil {
		return nil
	}
	return s.err
}

// Wait blocks until the submission settles or ctx is done.
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
