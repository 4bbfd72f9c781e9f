package vanilla

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is an extra input posted with every step, e.g. a CSRF token.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken returns a hidden field carrying token under the input name the
// backend expects ("_csrf", "csrf_token", ...).
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// sortedHidden drops empty and reserved names and sorts by name. Later
// fields win on collisions.
func sortedHidden(fields []HiddenField) []HiddenField {
	byName := make(map[string]string, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" || name == actionField || name == stepField {
			continue
		}
		byName[name] = field.Value
	}
	if len(byName) == 0 {
		return nil
	}
	out := make([]HiddenField, 0, len(byName))
	for name, value := range byName {
		out = append(out, HiddenField{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
