package flow

// FieldType identifies how a field is collected.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeInteger  FieldType = "integer"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeEnum     FieldType = "enum"
	FieldTypeMulti    FieldType = "multi"
	FieldTypeTextArea FieldType = "textarea"
	FieldTypeSecret   FieldType = "secret"
)

func (t FieldType) valid() bool {
	switch t {
	case FieldTypeString, FieldTypeInteger, FieldTypeNumber, FieldTypeBoolean,
		FieldTypeEnum, FieldTypeMulti, FieldTypeTextArea, FieldTypeSecret:
		return true
	default:
		return false
	}
}

// Markup selects how flow and step descriptions are written.
type Markup string

const (
	// MarkupHTML descriptions carry limited inline HTML. The default.
	MarkupHTML Markup = "html"
	// MarkupMarkdown descriptions are Markdown rendered to HTML before
	// sanitizing.
	MarkupMarkdown Markup = "markdown"
)

// Flow describes an ordered multi-step form.
type Flow struct {
	Name        string         `json:"name" yaml:"name"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Markup      Markup         `json:"markup,omitempty" yaml:"markup,omitempty"`
	Values      map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	Submit      SubmitConfig   `json:"submit,omitempty" yaml:"submit,omitempty"`
	Steps       []Step         `json:"steps" yaml:"steps"`
	Source      string         `json:"-" yaml:"-"`
}

// SubmitConfig points the final step at a transport.
type SubmitConfig struct {
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Format  string            `json:"format,omitempty" yaml:"format,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Step is one page of the flow.
type Step struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// Field is a single input collected by a step.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Help        string    `json:"help,omitempty" yaml:"help,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
}

// DisplayLabel returns Label, falling back to Name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// DisplayTitle returns Title, falling back to ID.
func (s Step) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}
