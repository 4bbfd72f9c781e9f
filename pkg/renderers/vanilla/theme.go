package vanilla

import (
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// themeView is the template-facing projection of a theme selection.
type themeView struct {
	Name         string
	Variant      string
	Tokens       map[string]string
	CSSVars      map[string]string
	CSSVarsStyle string
	Stylesheet   string
}

func resolveTheme(selector theme.ThemeSelector, name, variant string) (themeView, error) {
	if selector == nil {
		return themeView{}, nil
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return themeView{}, fmt.Errorf("vanilla renderer: select theme %q: %w", name, err)
	}
	return buildThemeView(selection), nil
}

func buildThemeView(selection *theme.Selection) themeView {
	if selection == nil {
		return themeView{}
	}
	view := themeView{
		Name:    selection.Theme,
		Variant: selection.Variant,
	}
	manifest := selection.Manifest
	if manifest == nil {
		return view
	}

	tokens := copyStringMap(manifest.Tokens)
	prefix := manifest.Assets.Prefix
	files := copyStringMap(manifest.Assets.Files)
	if v, ok := manifest.Variants[selection.Variant]; ok {
		tokens = mergeStringMaps(tokens, v.Tokens)
		files = mergeStringMaps(files, v.Assets.Files)
		if v.Assets.Prefix != "" {
			prefix = v.Assets.Prefix
		}
	}

	view.Tokens = tokens
	view.CSSVars = cssVars(tokens)
	view.CSSVarsStyle = cssVarsStyle(view.CSSVars)
	view.Stylesheet = assetURL(prefix, files[StylesheetAsset])
	return view
}

func cssVars(tokens map[string]string) map[string]string {
	if len(tokens) == 0 {
		return nil
	}
	out := make(map[string]string, len(tokens))
	for key, value := range tokens {
		out["--"+strings.TrimPrefix(key, "--")] = value
	}
	return out
}

// cssVarsStyle renders vars as an inline style attribute value with keys in
// sorted order.
func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}

func assetURL(prefix, file string) string {
	file = strings.TrimSpace(file)
	if file == "" {
		return ""
	}
	if prefix == "" || strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
		return file
	}
	return strings.TrimRight(prefix, "/") + "/" + file
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func mergeStringMaps(base, override map[string]string) map[string]string {
	if len(override) == 0 {
		return base
	}
	if base == nil {
		base = make(map[string]string, len(override))
	}
	for key, value := range override {
		base[key] = value
	}
	return base
}

// StaticSelector serves a single manifest, for hosts that load one theme
// from disk instead of a registry.
type StaticSelector struct {
	Manifest *theme.Manifest
}

var _ theme.ThemeSelector = StaticSelector{}

// Select returns the manifest when name is empty or matches it. Unknown
// variants fall back to the base tokens.
func (s StaticSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if s.Manifest == nil {
		return nil, fmt.Errorf("vanilla renderer: no theme manifest loaded")
	}
	if name != "" && name != s.Manifest.Name {
		return nil, fmt.Errorf("vanilla renderer: theme %q not found", name)
	}
	return &theme.Selection{Theme: s.Manifest.Name, Variant: variant, Manifest: s.Manifest}, nil
}
