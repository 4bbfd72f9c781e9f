package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoSteps is returned for flows that declare no steps.
var ErrNoSteps = errors.New("flow: at least one step is required")

// Store holds parsed flows keyed by name. Treat it as immutable after
// construction.
type Store struct {
	flows map[string]Flow
}

// LoadFS walks fsys and parses every JSON/YAML flow document. A nil fsys
// yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{flows: make(map[string]Flow)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isFlowFile(p) {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("flow: read %s: %w", p, err)
		}
		f, err := Parse(data, p)
		if err != nil {
			return err
		}
		if _, exists := store.flows[f.Name]; exists {
			return fmt.Errorf("flow: duplicate flow %q (file %s)", f.Name, p)
		}
		store.flows[f.Name] = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// LoadFile parses a single flow document from disk.
func LoadFile(filename string) (Flow, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Flow{}, fmt.Errorf("flow: read %s: %w", filename, err)
	}
	return Parse(data, filename)
}

// Flow returns the flow registered under name.
func (s *Store) Flow(name string) (Flow, bool) {
	if s == nil {
		return Flow{}, false
	}
	f, ok := s.flows[name]
	return f, ok
}

// Names lists the stored flows in sorted order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.flows))
	for name := range s.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes a JSON or YAML flow document and normalises it. source names
// the document in errors and provides the default flow name.
func Parse(data []byte, source string) (Flow, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Flow{}, fmt.Errorf("flow: file %s is empty", source)
	}

	var doc Flow
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = Flow{}
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return Flow{}, fmt.Errorf("flow: parse %s: invalid JSON or YAML: %w", source, yerr)
		}
	}
	doc.Source = source
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = baseName(source)
	}
	return Normalize(doc)
}

// Normalize trims identifiers, fills defaults and validates the flow.
func Normalize(f Flow) (Flow, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Title = strings.TrimSpace(f.Title)
	f.Markup = Markup(strings.ToLower(strings.TrimSpace(string(f.Markup))))
	switch f.Markup {
	case "", MarkupHTML, MarkupMarkdown:
	default:
		return Flow{}, fmt.Errorf("flow %s: unknown markup %q", describe(f), f.Markup)
	}
	desc, err := renderDescription(f.Description, f.Markup)
	if err != nil {
		return Flow{}, fmt.Errorf("flow %s: %w", describe(f), err)
	}
	f.Description = desc
	f.Submit.Method = strings.ToUpper(strings.TrimSpace(f.Submit.Method))
	f.Submit.Format = strings.ToLower(strings.TrimSpace(f.Submit.Format))

	if len(f.Steps) == 0 {
		return Flow{}, fmt.Errorf("flow %s: %w", describe(f), ErrNoSteps)
	}

	steps := make([]Step, 0, len(f.Steps))
	seenSteps := make(map[string]struct{}, len(f.Steps))
	for i, raw := range f.Steps {
		step, err := normalizeStep(raw, i, f.Markup)
		if err != nil {
			return Flow{}, fmt.Errorf("flow %s: %w", describe(f), err)
		}
		if _, dup := seenSteps[step.ID]; dup {
			return Flow{}, fmt.Errorf("flow %s: duplicate step id %q", describe(f), step.ID)
		}
		seenSteps[step.ID] = struct{}{}
		steps = append(steps, step)
	}
	f.Steps = steps
	return f, nil
}

func normalizeStep(step Step, index int, markup Markup) (Step, error) {
	step.ID = strings.TrimSpace(step.ID)
	if step.ID == "" {
		step.ID = fmt.Sprintf("step-%d", index+1)
	}
	step.Title = strings.TrimSpace(step.Title)
	desc, err := renderDescription(step.Description, markup)
	if err != nil {
		return Step{}, fmt.Errorf("step %s: %w", step.ID, err)
	}
	step.Description = desc

	fields := make([]Field, 0, len(step.Fields))
	seen := make(map[string]struct{}, len(step.Fields))
	for i, field := range step.Fields {
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			return Step{}, fmt.Errorf("step %s: field %d has no name", step.ID, i)
		}
		if _, dup := seen[field.Name]; dup {
			return Step{}, fmt.Errorf("step %s: duplicate field %q", step.ID, field.Name)
		}
		seen[field.Name] = struct{}{}

		field.Type = FieldType(strings.ToLower(strings.TrimSpace(string(field.Type))))
		if field.Type == "" {
			field.Type = FieldTypeString
		}
		if !field.Type.valid() {
			return Step{}, fmt.Errorf("step %s: field %q has unknown type %q", step.ID, field.Name, field.Type)
		}
		if (field.Type == FieldTypeEnum || field.Type == FieldTypeMulti) && len(field.Options) == 0 {
			return Step{}, fmt.Errorf("step %s: field %q needs options", step.ID, field.Name)
		}
		fields = append(fields, field)
	}
	step.Fields = fields
	return step, nil
}

func describe(f Flow) string {
	if f.Name != "" {
		return f.Name
	}
	if f.Source != "" {
		return f.Source
	}
	return "<unnamed>"
}

func baseName(source string) string {
	base := path.Base(filepath.ToSlash(source))
	return strings.TrimSuffix(base, path.Ext(base))
}

func isFlowFile(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
