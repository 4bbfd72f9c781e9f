package vanilla

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-multistep/pkg/flow"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

// Renderer turns flow steps into HTML wizard pages.
type Renderer struct {
	step   *pongo2.Template
	done   *pongo2.Template
	theme  themeView
	action string
	hidden []HiddenField
	logger *slog.Logger
}

// New constructs the HTML renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	set := pongo2.NewSet("multistep", pongo2.NewFSLoader(cfg.templateFS))
	step, err := set.FromFile(stepTemplate)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: load %s: %w", stepTemplate, err)
	}
	done, err := set.FromFile(doneTemplate)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: load %s: %w", doneTemplate, err)
	}

	view, err := resolveTheme(cfg.selector, cfg.themeName, cfg.themeVariant)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		step:   step,
		done:   done,
		theme:  view,
		action: cfg.action,
		hidden: sortedHidden(cfg.hidden),
		logger: cfg.logger,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Pages builds one HTML page per step of f.
func (r *Renderer) Pages(f flow.Flow) []wizard.Page {
	titles := make([]string, len(f.Steps))
	for i, step := range f.Steps {
		titles[i] = step.DisplayTitle()
	}
	pages := make([]wizard.Page, 0, len(f.Steps))
	for _, step := range f.Steps {
		pages = append(pages, &stepPage{renderer: r, flowTitle: f.Title, step: step, titles: titles})
	}
	return pages
}

// Form builds a wizard.Form for f seeded with the flow's initial values.
func (r *Renderer) Form(f flow.Flow, options ...wizard.Option) (*wizard.Form, error) {
	opts := append([]wizard.Option{wizard.WithValues(f.Values), wizard.WithLogger(r.logger)}, options...)
	return wizard.New(r.Pages(f), opts...)
}

// RenderDone renders the confirmation page shown after the final step was
// submitted.
func (r *Renderer) RenderDone(f flow.Flow, action string) ([]byte, error) {
	out, err := r.done.ExecuteBytes(pongo2.Context{
		"title":  f.Title,
		"action": r.actionFor(action),
		"theme":  r.theme,
		"hidden": r.hidden,
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return out, nil
}

func (r *Renderer) actionFor(fallback string) string {
	if r.action != "" {
		return r.action
	}
	return fallback
}

type actionKey struct{}

// WithRequestAction stores the URL the rendered step should post back to.
// The handler sets it from the request path when no fixed action is
// configured.
func WithRequestAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, actionKey{}, action)
}

func requestAction(ctx context.Context) string {
	action, _ := ctx.Value(actionKey{}).(string)
	return action
}

type stepPage struct {
	renderer  *Renderer
	flowTitle string
	step      flow.Step
	titles    []string
}

type progressItem struct {
	Title  string
	Active bool
}

type progressView struct {
	Index int
	Count int
	Steps []progressItem
}

type stepView struct {
	ID          string
	Title       string
	Description string
}

type optionView struct {
	Value    string
	Selected bool
}

type fieldView struct {
	ID          string
	Name        string
	Label       string
	Type        string
	InputType   string
	Help        string
	Placeholder string
	Value       string
	Required    bool
	Checked     bool
	Options     []optionView
	Errors      []string
}

func (p *stepPage) Render(ctx context.Context, props wizard.Props) ([]byte, error) {
	progress := progressView{Index: props.Index + 1, Count: props.Count}
	for i, title := range p.titles {
		progress.Steps = append(progress.Steps, progressItem{Title: title, Active: i == props.Index})
	}

	mapped := mapCause(p.step, props.Cause)
	out, err := p.renderer.step.ExecuteBytes(pongo2.Context{
		"title": p.flowTitle,
		"step": stepView{
			ID:          p.step.ID,
			Title:       p.step.DisplayTitle(),
			Description: p.step.Description,
		},
		"fields":     fieldViews(p.step, props.Values, mapped.Fields),
		"progress":   progress,
		"index":      props.Index,
		"submitting": props.Submitting,
		"error":      props.Error,
		"formErrors": mapped.Form,
		"hidden":     p.renderer.hidden,
		"first":      props.IsFirst(),
		"last":       props.IsLast(),
		"action":     p.renderer.actionFor(requestAction(ctx)),
		"theme":      p.renderer.theme,
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return out, nil
}

func fieldViews(step flow.Step, values map[string]any, errs map[string][]string) []fieldView {
	views := make([]fieldView, 0, len(step.Fields))
	for _, field := range step.Fields {
		current, ok := wizard.Lookup(values, field.Name)
		if !ok {
			current = field.Default
		}
		view := fieldView{
			ID:          step.ID + "-" + strings.ReplaceAll(field.Name, ".", "-"),
			Name:        field.Name,
			Label:       field.DisplayLabel(),
			Type:        string(field.Type),
			InputType:   inputType(field.Type),
			Help:        field.Help,
			Placeholder: field.Placeholder,
			Required:    field.Required,
			Errors:      errs[field.Name],
		}
		switch field.Type {
		case flow.FieldTypeBoolean:
			view.Checked, _ = current.(bool)
		case flow.FieldTypeMulti:
			view.Options = optionViews(field.Options, stringSlice(current))
		case flow.FieldTypeEnum:
			view.Options = optionViews(field.Options, []string{stringValue(current)})
		case flow.FieldTypeSecret:
			// never echo secrets back into the page
		default:
			view.Value = stringValue(current)
		}
		views = append(views, view)
	}
	return views
}

func inputType(t flow.FieldType) string {
	switch t {
	case flow.FieldTypeInteger, flow.FieldTypeNumber:
		return "number"
	case flow.FieldTypeSecret:
		return "password"
	default:
		return "text"
	}
}

func optionViews(options, selected []string) []optionView {
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		set[s] = struct{}{}
	}
	out := make([]optionView, 0, len(options))
	for _, option := range options {
		_, ok := set[option]
		out = append(out, optionView{Value: option, Selected: ok})
	}
	return out
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
