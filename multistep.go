// Package multistep exposes the multi-step form component and the helpers
// most callers need to drive it from a flow definition.
package multistep

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-multistep/pkg/flow"
	"github.com/goliatone/go-multistep/pkg/renderers/tui"
	"github.com/goliatone/go-multistep/pkg/renderers/vanilla"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

// Form aliases wizard.Form so callers can stay on the root package.
type Form = wizard.Form

// Page renders one step of a Form.
type Page = wizard.Page

// Props is the per-render view of a Form handed to the active Page.
type Props = wizard.Props

// Submission is the single-settlement result of submitting the last step.
type Submission = wizard.Submission

// SubmitHandler receives the accumulated values of a final submission.
type SubmitHandler = wizard.SubmitHandler

// SubmitRequest carries the accumulated values and settlement callbacks.
type SubmitRequest = wizard.SubmitRequest

// Flow describes the steps and fields of a form.
type Flow = flow.Flow

// New constructs a Form over pages.
func New(pages []Page, options ...wizard.Option) (*Form, error) {
	return wizard.New(pages, options...)
}

// LoadFlow reads a YAML or JSON flow definition from disk.
func LoadFlow(path string) (Flow, error) {
	return flow.LoadFile(path)
}

// FlowFromOpenAPI derives a flow from the request body of operationID.
func FlowFromOpenAPI(ctx context.Context, document []byte, operationID string) (Flow, error) {
	return flow.FromOpenAPI(ctx, document, operationID)
}

// EmbeddedFlows exposes the bundled example flows.
func EmbeddedFlows() fs.FS {
	return flow.EmbeddedFS()
}

// EmbeddedTemplates exposes the built-in HTML templates so callers can reuse
// or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// RunTerminal walks f in the terminal with the default survey driver and
// submits the final step through handler.
func RunTerminal(ctx context.Context, f Flow, handler SubmitHandler, options ...tui.Option) error {
	runner := tui.New(options...)
	form, err := runner.Form(f, wizard.WithSubmitHandler(handler))
	if err != nil {
		return err
	}
	return runner.Run(ctx, form)
}
