package submit

import (
	"encoding/json"
	"strings"
)

// FieldErrors decodes a validation body of the form
// {"errors": {"<path>": ["message", ...]}} from the rejected response.
// A single string is accepted in place of the list. Paths are returned as
// the server sent them. Any other body yields nil.
func (e *StatusError) FieldErrors() map[string][]string {
	if e == nil || !strings.HasPrefix(e.Body, "{") {
		return nil
	}
	var payload struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err != nil {
		return nil
	}

	out := make(map[string][]string, len(payload.Errors))
	for path, raw := range payload.Errors {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			var single string
			if err := json.Unmarshal(raw, &single); err != nil {
				continue
			}
			list = []string{single}
		}
		if len(list) > 0 {
			out[path] = list
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
