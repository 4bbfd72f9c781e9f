package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	stepExtensionKey      = "x-step"
	stepOrderExtensionKey = "x-step-order"
	defaultOpenAPIStep    = "details"
)

// ErrOperationNotFound is returned when FromOpenAPI cannot find operationID.
var ErrOperationNotFound = errors.New("flow: operation not found")

// FromOpenAPI derives a flow from the request body of an OpenAPI 3 operation.
// Top-level properties become fields; each lands in the step named by its
// x-step extension (default "details"). Steps keep the order in which they
// first appear across properties sorted by name, unless x-step-order says
// otherwise. Properties that cannot be prompted for (nested objects, arrays
// without enum items) are skipped.
func FromOpenAPI(ctx context.Context, data []byte, operationID string) (Flow, error) {
	if err := ctx.Err(); err != nil {
		return Flow{}, err
	}
	if len(data) == 0 {
		return Flow{}, errors.New("flow: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return Flow{}, fmt.Errorf("flow: load openapi document: %w", err)
	}

	method, route, op := findOperation(doc, operationID)
	if op == nil {
		return Flow{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	schema := requestSchema(op)
	if schema == nil || len(schema.Properties) == 0 {
		return Flow{}, fmt.Errorf("flow: operation %q has no request body properties", operationID)
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		order    []string
		byStep   = make(map[string][]Field)
		stepRank = make(map[string]float64)
	)
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		field, ok := fieldFromSchema(name, prop, required[name])
		if !ok {
			continue
		}
		stepID := extensionString(prop.Extensions, stepExtensionKey)
		if stepID == "" {
			stepID = defaultOpenAPIStep
		}
		if _, seen := byStep[stepID]; !seen {
			order = append(order, stepID)
		}
		byStep[stepID] = append(byStep[stepID], field)
		if rank, ok := extensionNumber(prop.Extensions, stepOrderExtensionKey); ok {
			if current, exists := stepRank[stepID]; !exists || rank < current {
				stepRank[stepID] = rank
			}
		}
	}
	if len(order) == 0 {
		return Flow{}, fmt.Errorf("flow: operation %q has no promptable properties", operationID)
	}

	sort.SliceStable(order, func(i, j int) bool {
		ri, iok := stepRank[order[i]]
		rj, jok := stepRank[order[j]]
		switch {
		case iok && jok:
			return ri < rj
		default:
			return iok && !jok
		}
	})

	f := Flow{
		Name:        operationID,
		Title:       firstNonEmpty(op.Summary, schema.Title, operationID),
		Description: op.Description,
		Submit: SubmitConfig{
			Method: method,
			Format: "json",
		},
		Source: route,
	}
	for _, id := range order {
		f.Steps = append(f.Steps, Step{
			ID:     id,
			Title:  stepTitle(id),
			Fields: byStep[id],
		})
	}
	return Normalize(f)
}

func findOperation(doc *openapi3.T, operationID string) (string, string, *openapi3.Operation) {
	if doc == nil || doc.Paths == nil {
		return "", "", nil
	}
	for route, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		candidates := []struct {
			method string
			op     *openapi3.Operation
		}{
			{"POST", item.Post},
			{"PUT", item.Put},
			{"PATCH", item.Patch},
			{"GET", item.Get},
			{"DELETE", item.Delete},
		}
		for _, c := range candidates {
			if c.op != nil && c.op.OperationID == operationID {
				return c.method, route, c.op
			}
		}
	}
	return "", "", nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func fieldFromSchema(name string, prop *openapi3.Schema, required bool) (Field, bool) {
	field := Field{
		Name:     name,
		Label:    firstNonEmpty(prop.Title, name),
		Help:     prop.Description,
		Default:  prop.Default,
		Required: required,
	}

	switch schemaType(prop.Type) {
	case openapi3.TypeBoolean:
		field.Type = FieldTypeBoolean
	case openapi3.TypeInteger:
		field.Type = FieldTypeInteger
	case openapi3.TypeNumber:
		field.Type = FieldTypeNumber
	case openapi3.TypeArray:
		if prop.Items == nil || prop.Items.Value == nil || len(prop.Items.Value.Enum) == 0 {
			return Field{}, false
		}
		field.Type = FieldTypeMulti
		field.Options = stringifyEnum(prop.Items.Value.Enum)
	case openapi3.TypeString, "":
		switch {
		case len(prop.Enum) > 0:
			field.Type = FieldTypeEnum
			field.Options = stringifyEnum(prop.Enum)
		case prop.Format == "password":
			field.Type = FieldTypeSecret
		case prop.Format == "textarea" || prop.MaxLength != nil && *prop.MaxLength > 255:
			field.Type = FieldTypeTextArea
		default:
			field.Type = FieldTypeString
		}
	default:
		return Field{}, false
	}
	return field, true
}

func schemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func stringifyEnum(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func extensionString(ext map[string]any, key string) string {
	if raw, ok := ext[key]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func extensionNumber(ext map[string]any, key string) (float64, bool) {
	switch v := ext[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func stepTitle(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
