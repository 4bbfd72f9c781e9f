package wizard

import "log/slog"

// Option configures a Form.
type Option func(*Form)

// WithValues seeds the accumulated values. The map is deep copied; nil is
// treated as empty.
func WithValues(values map[string]any) Option {
	return func(f *Form) {
		f.values = cloneValues(values)
	}
}

// WithSubmitHandler sets the handler invoked when the last page submits.
// Without one the last page only merges values.
func WithSubmitHandler(handler SubmitHandler) Option {
	return func(f *Form) {
		f.handler = handler
	}
}

// WithOnChange registers a listener notified after every state transition so
// hosts can re-render. Listeners run in registration order outside the form
// lock and may call back into the form. On settlement they run after the
// Submission is done, so Wait and Err already report the outcome.
func WithOnChange(fn func(Snapshot)) Option {
	return func(f *Form) {
		if fn != nil {
			f.onChange = append(f.onChange, fn)
		}
	}
}

// WithLogger sets the logger used for transition and submission events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}
