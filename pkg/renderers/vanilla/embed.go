package vanilla

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

const (
	stepTemplate = "templates/step.tmpl"
	doneTemplate = "templates/done.tmpl"

	// StylesheetAsset is the theme asset key resolved into the page
	// stylesheet link.
	StylesheetAsset = "vanilla.stylesheet"
)

// TemplatesFS exposes the embedded template bundle. Overrides passed through
// WithTemplatesFS must provide the same template paths.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
