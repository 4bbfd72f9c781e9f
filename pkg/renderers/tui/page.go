package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-multistep/pkg/flow"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

const (
	actionContinue  = "Continue"
	actionSubmit    = "Submit"
	actionRetry     = "Retry submission"
	actionBack      = "Back"
	actionStartOver = "Start over"
	actionQuit      = "Quit"
)

// stepPage prompts for the fields of one flow step and then asks the user
// where to go next.
type stepPage struct {
	step   flow.Step
	driver PromptDriver
	theme  Theme
	// failed is set when this page's last submit was rejected; the next
	// render offers a retry instead of prompting again.
	failed bool
}

// NewStepPage returns a wizard.Page that collects step through driver.
func NewStepPage(step flow.Step, driver PromptDriver, theme Theme) wizard.Page {
	return &stepPage{step: step, driver: driver, theme: theme}
}

func (p *stepPage) Render(ctx context.Context, props wizard.Props) ([]byte, error) {
	retrying := p.failed && props.IsLast() && props.Error != ""
	p.failed = false

	if err := p.header(ctx, props); err != nil {
		return nil, err
	}

	values := make(map[string]any, len(p.step.Fields))
	if !retrying {
		for _, field := range p.step.Fields {
			value, err := p.prompt(ctx, field, props.Values)
			if err != nil {
				return nil, err
			}
			values[field.Name] = value
		}
	}

	action, err := p.chooseAction(ctx, props, retrying)
	if err != nil {
		return nil, err
	}

	switch action {
	case actionBack:
		props.Previous()
		return nil, nil
	case actionStartOver:
		props.Edit()
		return nil, nil
	case actionQuit:
		return nil, ErrAborted
	}

	sub := props.Submit(values)
	if sub == nil {
		if props.IsLast() {
			return nil, ErrSubmitted
		}
		return nil, nil
	}

	if err := p.info(ctx, p.theme.InfoPrefix+"Submitting..."); err != nil {
		return nil, err
	}
	if err := sub.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The failure is surfaced through props.Error on the next render.
		p.failed = true
		return nil, nil
	}
	if err := p.info(ctx, p.theme.InfoPrefix+"Submitted."); err != nil {
		return nil, err
	}
	return nil, ErrSubmitted
}

func (p *stepPage) header(ctx context.Context, props wizard.Props) error {
	title := fmt.Sprintf("%s[%d/%d] %s", p.theme.InfoPrefix, props.Index+1, props.Count, p.step.DisplayTitle())
	if err := p.info(ctx, title); err != nil {
		return err
	}
	if desc := flow.PlainText(p.step.Description); desc != "" {
		if err := p.info(ctx, desc); err != nil {
			return err
		}
	}
	if props.IsLast() && props.Error != "" {
		return p.info(ctx, p.theme.ErrorPrefix+"Submission failed: "+props.Error)
	}
	return nil
}

func (p *stepPage) chooseAction(ctx context.Context, props wizard.Props, retrying bool) (string, error) {
	primary := actionContinue
	switch {
	case retrying:
		primary = actionRetry
	case props.IsLast():
		primary = actionSubmit
	}
	options := []string{primary}
	if !props.IsFirst() {
		options = append(options, actionBack, actionStartOver)
	}
	options = append(options, actionQuit)

	idx, err := p.driver.Select(ctx, SelectConfig{
		Message:      p.theme.PromptPrefix + "Next",
		Options:      options,
		DefaultIndex: 0,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return primary, nil
	}
	return options[idx], nil
}

func (p *stepPage) prompt(ctx context.Context, field flow.Field, current map[string]any) (any, error) {
	label := p.theme.PromptPrefix + field.DisplayLabel()
	existing, hasExisting := wizard.Lookup(current, field.Name)
	if !hasExisting {
		existing = field.Default
	}

	switch field.Type {
	case flow.FieldTypeBoolean:
		b, _ := existing.(bool)
		return p.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: b, Help: field.Help})

	case flow.FieldTypeInteger, flow.FieldTypeNumber:
		return p.promptNumber(ctx, field, label, existing)

	case flow.FieldTypeEnum:
		idx, err := p.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      field.Options,
			DefaultIndex: indexOf(field.Options, stringValue(existing)),
			Help:         field.Help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return "", nil
		}
		return field.Options[idx], nil

	case flow.FieldTypeMulti:
		indices, err := p.driver.MultiSelect(ctx, SelectConfig{
			Message:  label,
			Options:  field.Options,
			Defaults: indicesOf(field.Options, stringSlice(existing)),
			Help:     field.Help,
		})
		if err != nil {
			return nil, err
		}
		return toAnySlice(defaultsFromIndices(field.Options, indices)), nil

	case flow.FieldTypeTextArea:
		return p.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: stringValue(existing), Help: field.Help})

	case flow.FieldTypeSecret:
		return p.driver.Password(ctx, InputConfig{
			Message:  label,
			Default:  stringValue(existing),
			Help:     field.Help,
			Required: field.Required && !hasExisting,
		})

	default:
		return p.driver.Input(ctx, InputConfig{
			Message:  label,
			Default:  stringValue(existing),
			Help:     field.Help,
			Required: field.Required,
		})
	}
}

func (p *stepPage) promptNumber(ctx context.Context, field flow.Field, label string, existing any) (any, error) {
	defaultStr := ""
	if existing != nil {
		defaultStr = fmt.Sprint(existing)
	}
	for {
		input, err := p.driver.Input(ctx, InputConfig{
			Message:  label,
			Default:  defaultStr,
			Help:     field.Help,
			Required: field.Required,
		})
		if err != nil {
			return nil, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			return nil, nil
		}
		if field.Type == flow.FieldTypeInteger {
			i, err := strconv.ParseInt(input, 10, 64)
			if err == nil {
				return i, nil
			}
		} else {
			f, err := strconv.ParseFloat(input, 64)
			if err == nil {
				return f, nil
			}
		}
		if err := p.info(ctx, fmt.Sprintf("%s%s: %q is not a valid %s", p.theme.ErrorPrefix, field.DisplayLabel(), input, field.Type)); err != nil {
			return nil, err
		}
	}
}

func (p *stepPage) info(ctx context.Context, msg string) error {
	return p.driver.Info(ctx, msg)
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

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
