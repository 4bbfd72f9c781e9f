package submit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Format controls how accumulated values are serialized.
type Format string

const (
	// FormatJSON emits application/json payloads.
	FormatJSON Format = "json"
	// FormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	FormatFormURLEncoded Format = "form"
	// FormatPrettyText emits a human-friendly text summary.
	FormatPrettyText Format = "pretty"
)

// ParseFormat maps user input onto a Format. Empty input selects JSON.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatFormURLEncoded, "urlencoded":
		return FormatFormURLEncoded, nil
	case FormatPrettyText, "text":
		return FormatPrettyText, nil
	default:
		return "", fmt.Errorf("submit: unknown format %q", raw)
	}
}

// ContentType reports the media type produced by Encode.
func (f Format) ContentType() string {
	switch f {
	case FormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case FormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Encode serializes values in format f.
func Encode(values map[string]any, f Format) ([]byte, error) {
	switch f {
	case FormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case FormatPrettyText:
		return []byte(prettyPrint(values)), nil
	case FormatJSON, "":
		out, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("submit: encode json: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("submit: unknown format %q", f)
	}
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			flatten(joinKey(prefix, key), val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	case []string:
		for _, val := range v {
			out.Add(prefix+"[]", val)
		}
	case nil:
		out.Set(prefix, "")
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			writePretty(b, joinKey(prefix, key), v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	case []string:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
