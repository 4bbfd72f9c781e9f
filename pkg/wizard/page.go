package wizard

import "context"

// Page renders a single step. It mirrors the renderer contract used across the
// module: the page turns its inputs into bytes (HTML, terminal output, JSON)
// and may call the operations carried by Props.
type Page interface {
	Render(ctx context.Context, props Props) ([]byte, error)
}

// PageFunc adapts a function into a Page.
type PageFunc func(ctx context.Context, props Props) ([]byte, error)

// Render calls fn.
func (fn PageFunc) Render(ctx context.Context, props Props) ([]byte, error) {
	return fn(ctx, props)
}

// Props are the inputs handed to the active page on every render.
type Props struct {
	// Submit merges values into the accumulated mapping. On the last page it
	// starts a submission and returns it; otherwise it advances and returns nil.
	Submit   func(values map[string]any) *Submission
	Next     func()
	Previous func()
	Edit     func()

	Submitting bool
	// Error is the display form of the last rejection, empty when none.
	Error string
	// Cause is the raw value the handler rejected with.
	Cause any
	// Values is a snapshot of the accumulated values. Mutating it does not
	// affect the form.
	Values map[string]any

	Index int
	Count int
}

// IsFirst reports whether the props belong to the first page.
func (p Props) IsFirst() bool {
	return p.Index == 0
}

// IsLast reports whether the props belong to the last page.
func (p Props) IsLast() bool {
	return p.Index == p.Count-1
}

// Snapshot is the observable state of a form without its operations.
type Snapshot struct {
	Index      int
	Count      int
	Submitting bool
	Error      string
	Cause      any
	Values     map[string]any
}
