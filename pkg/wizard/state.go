package wizard

import (
	"strconv"
	"strings"
)

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}

// mergeValues applies patch over dst one level deep. Patch keys replace
// existing ones wholesale; keys absent from patch are left alone.
func mergeValues(dst, patch map[string]any) {
	for k, v := range patch {
		dst[k] = deepCopy(v)
	}
}

// Lookup resolves a dotted path ("author.email", "tags.0") in values. A
// top-level key equal to path wins over the nested walk.
func Lookup(values map[string]any, path string) (any, bool) {
	if values == nil || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}
	var current any = values
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
