package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// strictPolicy removes every tag and attribute.
	strictPolicy = bluemonday.StrictPolicy()

	// ugcPolicy keeps basic formatting (<p>, <b>, <i>, <a>, lists, <br>) and
	// drops scripts, iframes, handlers and style attributes.
	ugcPolicy = bluemonday.UGCPolicy()
)

// maxTextPasses bounds how many layers of entity encoding Text unwraps.
const maxTextPasses = 8

// Text strips all markup and returns trimmed plain text. bluemonday escapes
// entities on the way out; they are decoded again so "Rock & Roll" survives
// as typed. Decoding can expose markup that was entity-encoded in the input,
// so the strict policy runs again until the text stops changing. If it never
// settles the escaped form is returned.
func Text(input string) string {
	if input == "" {
		return ""
	}
	current := input
	for range maxTextPasses {
		next := html.UnescapeString(strictPolicy.Sanitize(current))
		if next == current {
			return strings.TrimSpace(current)
		}
		current = next
	}
	return strings.TrimSpace(strictPolicy.Sanitize(current))
}

// HTML sanitizes rich text such as event descriptions.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}
