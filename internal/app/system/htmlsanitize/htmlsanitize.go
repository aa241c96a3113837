// Package htmlsanitize cleans user-authored HTML before display.
//
// Campaign descriptions and review notes accept limited rich text.
// Sanitize strips everything outside an allowlist of formatting
// elements, so stored content can be rendered without escaping.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is built once and is safe for concurrent use.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	// Inline formatting beyond the UGC defaults.
	p.AllowElements("u", "s", "sub", "sup", "mark")

	// Tables may carry classes and inline styles so pasted planning
	// grids keep their layout.
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tfoot", "tr", "td", "th")
	p.AllowAttrs("style").OnElements("table", "thead", "tbody", "tfoot", "tr", "td", "th")

	return p
}

// Sanitize returns content with all disallowed elements and attributes
// removed. Script, style, iframe, and form content is dropped along
// with event-handler attributes and javascript: URLs.
func Sanitize(content string) string {
	return policy.Sanitize(content)
}

// SanitizeToHTML sanitizes content and marks the result safe for
// direct template interpolation.
func SanitizeToHTML(content string) template.HTML {
	return template.HTML(Sanitize(content))
}

// IsPlainText reports whether content contains no HTML tags. A "<"
// without a later ">" does not count as a tag.
func IsPlainText(content string) bool {
	idx := strings.Index(content, "<")
	if idx == -1 {
		return true
	}
	return !strings.Contains(content[idx:], ">")
}

// PlainTextToHTML escapes text and wraps it in a paragraph, turning
// newlines into line breaks.
func PlainTextToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay renders stored content for a template: plain text
// is escaped and paragraph-wrapped, HTML is sanitized.
func PrepareForDisplay(content string) template.HTML {
	if content == "" {
		return ""
	}
	if IsPlainText(content) {
		return template.HTML(PlainTextToHTML(content))
	}
	return SanitizeToHTML(content)
}
