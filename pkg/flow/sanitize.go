package flow

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
	plainPolicy           = bluemonday.StrictPolicy()

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		// Raw HTML is kept here and stripped by the description policy.
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)
)

// SanitizeDescription strips step and flow descriptions down to inline
// formatting and links.
func SanitizeDescription(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(descriptionSanitizer().Sanitize(trimmed))
}

// RenderMarkdown converts a Markdown description to sanitized HTML.
func RenderMarkdown(src string) (string, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(trimmed), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return SanitizeDescription(buf.String()), nil
}

func renderDescription(raw string, markup Markup) (string, error) {
	if markup == MarkupMarkdown {
		return RenderMarkdown(raw)
	}
	return SanitizeDescription(raw), nil
}

func descriptionSanitizer() *bluemonday.Policy {
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "code", "br", "p", "small", "del", "ul", "ol", "li")
		policy.AllowAttrs("href", "title").OnElements("a")
		policy.AllowStandardURLs()
		policy.RequireNoFollowOnLinks(true)
		policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "p", "small")
		descriptionPolicy = policy
	})
	return descriptionPolicy
}

// PlainText strips all markup from a sanitized description for terminal
// output.
func PlainText(description string) string {
	return html.UnescapeString(strings.TrimSpace(plainPolicy.Sanitize(description)))
}
