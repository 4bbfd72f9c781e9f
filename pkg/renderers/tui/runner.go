package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/goliatone/go-multistep/pkg/flow"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

// Runner drives a wizard.Form in the terminal, rendering the active step
// until the final submission succeeds or the user quits.
type Runner struct {
	driver PromptDriver
	theme  Theme
	logger *slog.Logger
}

// New constructs a Runner with defaults (survey driver writing to stdout).
func New(options ...Option) *Runner {
	r := &Runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Pages builds one terminal page per step of f.
func (r *Runner) Pages(f flow.Flow) []wizard.Page {
	pages := make([]wizard.Page, 0, len(f.Steps))
	for _, step := range f.Steps {
		pages = append(pages, NewStepPage(step, r.driver, r.theme))
	}
	return pages
}

// Form builds a wizard.Form for f seeded with the flow's initial values.
// Extra options are applied after the seed and may override it.
func (r *Runner) Form(f flow.Flow, options ...wizard.Option) (*wizard.Form, error) {
	opts := append([]wizard.Option{wizard.WithValues(f.Values), wizard.WithLogger(r.logger)}, options...)
	return wizard.New(r.Pages(f), opts...)
}

// Run renders the active step of form repeatedly. It returns nil once the
// last step has been submitted, ErrAborted when the user quits, or the first
// prompt/render error. The form is closed on return.
func (r *Runner) Run(ctx context.Context, form *wizard.Form) error {
	if form == nil {
		return errors.New("tui: form is nil")
	}
	defer form.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := form.Render(ctx)
		switch {
		case errors.Is(err, ErrSubmitted):
			r.logger.Info("terminal form completed", "steps", form.Len())
			return nil
		case errors.Is(err, ErrAborted):
			r.logger.Info("terminal form aborted", "step", form.Index())
			return ErrAborted
		case err != nil:
			return err
		}
		if len(out) > 0 {
			if err := r.driver.Info(ctx, string(out)); err != nil {
				return err
			}
		}
	}
}
