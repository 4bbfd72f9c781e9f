package wizard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Form is a multi-step form. It is safe for concurrent use; submission
// handlers may settle from any goroutine.
type Form struct {
	mu sync.Mutex

	pages  []Page
	index  int
	values map[string]any

	submitting bool
	errMsg     string
	cause      any
	pending    *Submission
	closed     bool

	handler  SubmitHandler
	onChange []func(Snapshot)
	logger   *slog.Logger
}

// New constructs a Form over pages, starting at the first page.
func New(pages []Page, options ...Option) (*Form, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	for i, page := range pages {
		if page == nil {
			return nil, fmt.Errorf("wizard: page %d: %w", i, ErrNilPage)
		}
	}

	f := &Form{
		pages:  append([]Page(nil), pages...),
		values: make(map[string]any),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.values == nil {
		f.values = make(map[string]any)
	}
	return f, nil
}

// Len reports the number of pages.
func (f *Form) Len() int {
	return len(f.pages)
}

// Index reports the active page index.
func (f *Form) Index() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// IsLast reports whether the active page is the last one.
func (f *Form) IsLast() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isLastLocked()
}

// Active returns the page selected by the current index.
func (f *Form) Active() Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[f.index]
}

// Next advances one page, staying on the last page.
func (f *Form) Next() {
	f.moveTo(func(index int) int { return min(index+1, len(f.pages)-1) }, "next")
}

// Previous goes back one page, staying on the first page.
func (f *Form) Previous() {
	f.moveTo(func(index int) int { return max(index-1, 0) }, "previous")
}

// Edit returns to the first page. Accumulated values are kept.
func (f *Form) Edit() {
	f.moveTo(func(int) int { return 0 }, "edit")
}

func (f *Form) moveTo(target func(int) int, action string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	from := f.index
	f.index = target(from)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.logger.Debug("wizard navigation", "action", action, "from", from, "to", snap.Index)
	f.notify(snap)
}

// Values returns a snapshot of the accumulated values.
func (f *Form) Values() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneValues(f.values)
}

// Value resolves a dotted path in the accumulated values.
func (f *Form) Value(path string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := Lookup(f.values, path)
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// Snapshot returns the observable state of the form.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Submit is SubmitContext with a background context.
func (f *Form) Submit(values map[string]any) *Submission {
	return f.SubmitContext(context.Background(), values)
}

// SubmitContext merges values into the accumulated values. When the active
// page is not the last one it advances and returns nil. On the last page it
// starts a submission through the handler and returns it, or returns nil when
// no handler is configured. ctx is handed to the handler; it does not cancel
// the submission.
func (f *Form) SubmitContext(ctx context.Context, values map[string]any) *Submission {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	mergeValues(f.values, values)

	if !f.isLastLocked() {
		from := f.index
		f.index++
		snap := f.snapshotLocked()
		f.mu.Unlock()

		f.logger.Debug("wizard step submitted", "from", from, "to", snap.Index, "fields", len(values))
		f.notify(snap)
		return nil
	}

	if f.handler == nil {
		f.mu.Unlock()
		f.logger.Debug("wizard last step submitted without handler", "fields", len(values))
		return nil
	}

	sub := newSubmission(f.settle)
	f.pending = sub
	f.submitting = true
	f.errMsg = ""
	f.cause = nil
	req := SubmitRequest{
		Values:  cloneValues(f.values),
		Resolve: sub.resolve,
		Reject:  sub.reject,
	}
	handler := f.handler
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.logger.Info("wizard submission started", "fields", len(req.Values))
	f.notify(snap)

	go f.run(ctx, handler, req, sub)
	return sub
}

func (f *Form) run(ctx context.Context, handler SubmitHandler, req SubmitRequest, sub *Submission) {
	defer func() {
		if r := recover(); r != nil {
			sub.reject(fmt.Errorf("wizard: submit handler panic: %v", r))
		}
	}()
	if err := handler(ctx, req); err != nil {
		sub.reject(err)
	}
}

// settle applies the outcome of sub and returns the listener notification,
// which the submission runs once it is done. Outcomes of superseded
// submissions and outcomes arriving after Close are dropped.
func (f *Form) settle(sub *Submission) func() {
	f.mu.Lock()
	if f.closed || f.pending != sub {
		f.mu.Unlock()
		f.logger.Debug("wizard stale submission outcome ignored")
		return nil
	}
	f.pending = nil
	f.submitting = false
	if sub.err != nil {
		f.errMsg = sub.err.Message()
		f.cause = sub.err.Cause
	} else {
		f.errMsg = ""
		f.cause = nil
	}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	return func() {
		if sub.err != nil {
			f.logger.Warn("wizard submission failed", "error", snap.Error)
		} else {
			f.logger.Info("wizard submission succeeded")
		}
		f.notify(snap)
	}
}

// Close tears the form down. Submissions settling afterwards no longer touch
// the form state; navigation and Submit become no-ops.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.pending = nil
}

// Props builds the inputs for the active page. Submit is bound to ctx.
func (f *Form) Props(ctx context.Context) Props {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.propsLocked(ctx)
}

// Render renders the active page.
func (f *Form) Render(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	page := f.pages[f.index]
	props := f.propsLocked(ctx)
	f.mu.Unlock()

	out, err := page.Render(ctx, props)
	if err != nil {
		return nil, fmt.Errorf("wizard: render step %d: %w", props.Index, err)
	}
	return out, nil
}

func (f *Form) propsLocked(ctx context.Context) Props {
	return Props{
		Submit: func(values map[string]any) *Submission {
			return f.SubmitContext(ctx, values)
		},
		Next:       f.Next,
		Previous:   f.Previous,
		Edit:       f.Edit,
		Submitting: f.submitting,
		Error:      f.errMsg,
		Cause:      f.cause,
		Values:     cloneValues(f.values),
		Index:      f.index,
		Count:      len(f.pages),
	}
}

func (f *Form) snapshotLocked() Snapshot {
	return Snapshot{
		Index:      f.index,
		Count:      len(f.pages),
		Submitting: f.submitting,
		Error:      f.errMsg,
		Cause:      f.cause,
		Values:     cloneValues(f.values),
	}
}

func (f *Form) isLastLocked() bool {
	return f.index == len(f.pages)-1
}

func (f *Form) notify(snap Snapshot) {
	for _, fn := range f.onChange {
		fn(snap)
	}
}
