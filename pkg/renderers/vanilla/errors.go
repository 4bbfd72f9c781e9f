package vanilla

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-multistep/pkg/flow"
)

// FieldErrorer is implemented by rejection causes that carry per-field
// validation messages, such as *submit.StatusError.
type FieldErrorer interface {
	FieldErrors() map[string][]string
}

// errorMapping holds validation messages keyed by step field name. Messages
// whose path matches no field on the step are kept at form level.
type errorMapping struct {
	Fields map[string][]string
	Form   []string
}

func mapCause(step flow.Step, cause any) errorMapping {
	var source FieldErrorer
	switch v := cause.(type) {
	case FieldErrorer:
		source = v
	case error:
		if !errors.As(v, &source) {
			return errorMapping{}
		}
	default:
		return errorMapping{}
	}
	return mapFieldErrors(step, source.FieldErrors())
}

func mapFieldErrors(step flow.Step, payload map[string][]string) errorMapping {
	var mapping errorMapping
	if len(payload) == 0 {
		return mapping
	}

	names := make(map[string]struct{}, len(step.Fields))
	for _, field := range step.Fields {
		names[field.Name] = struct{}{}
	}

	for raw, messages := range payload {
		messages = uniqueMessages(messages)
		if len(messages) == 0 {
			continue
		}
		if name := matchField(raw, names); name != "" {
			if mapping.Fields == nil {
				mapping.Fields = make(map[string][]string)
			}
			mapping.Fields[name] = append(mapping.Fields[name], messages...)
			continue
		}
		mapping.Form = append(mapping.Form, messages...)
	}
	mapping.Form = uniqueMessages(mapping.Form)
	return mapping
}

// matchField resolves JSON pointer, JSONPath and bracket paths to the
// longest matching field name, ignoring envelope segments like "body".
func matchField(raw string, names map[string]struct{}) string {
	segments := splitPath(raw)
	if len(segments) == 0 {
		return ""
	}
	best := ""
	for _, variant := range [][]string{
		segments,
		dropWrappers(segments),
		dropIndexes(segments),
		dropIndexes(dropWrappers(segments)),
	} {
		for end := len(variant); end > 0; end-- {
			candidate := strings.Join(variant[:end], ".")
			if _, ok := names[candidate]; ok {
				if len(candidate) > len(best) {
					best = candidate
				}
				break
			}
		}
	}
	return best
}

func splitPath(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$./")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		out = append(out, strings.ReplaceAll(part, "~0", "~"))
	}
	return out
}

func dropWrappers(segments []string) []string {
	for len(segments) > 0 && isWrapper(segments[0]) {
		segments = segments[1:]
	}
	return segments
}

func isWrapper(segment string) bool {
	switch strings.ToLower(segment) {
	case "body", "request", "payload", "data", "attributes":
		return true
	default:
		return false
	}
}

func dropIndexes(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func uniqueMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
