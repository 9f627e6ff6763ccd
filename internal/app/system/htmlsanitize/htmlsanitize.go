// Package htmlsanitize cleans user and admin supplied text before it is
// stored. Patch notes may carry formatted HTML; feedback is plain text.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richOnce   sync.Once
	richPolicy *bluemonday.Policy

	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func rich() *bluemonday.Policy {
	richOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "sub", "sup", "mark", "hr")
		p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td", "code", "pre")
		p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
		richPolicy = p
	})
	return richPolicy
}

func strict() *bluemonday.Policy {
	strictOnce.Do(func() { strictPolicy = bluemonday.StrictPolicy() })
	return strictPolicy
}

// Sanitize keeps formatting markup (headings, lists, links, tables) and
// removes scripts, event handlers and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return rich().Sanitize(s)
}

// StripTags removes all markup and returns trimmed plain text. Entities
// produced by the policy are decoded so the stored value reads naturally.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict().Sanitize(s)))
}

// IsPlainText reports whether s has no tag-like content.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines
// into <br>.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareContent returns stored-safe HTML for rich fields: plain text is
// wrapped as a paragraph, markup is sanitized.
func PrepareContent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return Sanitize(s)
}
