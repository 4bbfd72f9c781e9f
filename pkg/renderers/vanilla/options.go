package vanilla

import (
	"io/fs"
	"log/slog"
	"os"

	theme "github.com/goliatone/go-theme"
)

// Option configures the HTML renderer.
type Option func(*config)

type config struct {
	templateFS   fs.FS
	selector     theme.ThemeSelector
	themeName    string
	themeVariant string
	action       string
	hidden       []HiddenField
	logger       *slog.Logger
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithThemeSelector resolves the named theme and variant once at
// construction and exposes its tokens to the templates.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(cfg *config) {
		cfg.selector = selector
		cfg.themeName = name
		cfg.themeVariant = variant
	}
}

// WithAction sets the URL step forms post to. Defaults to the request path.
func WithAction(action string) Option {
	return func(cfg *config) {
		cfg.action = action
	}
}

// WithHiddenFields adds inputs posted with every step. Repeated calls
// accumulate.
func WithHiddenFields(fields ...HiddenField) Option {
	return func(cfg *config) {
		cfg.hidden = append(cfg.hidden, fields...)
	}
}

// WithLogger sets the logger used for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
