// Package tags normalizes the alternate encodings of angle-bracket markup that
// upstream backends use when embedding <edit_card> blocks in assistant text.
package tags

import (
	"regexp"
	"strings"
)

// encodedBracket matches every supported encoding of '<' and '>':
// JSON-style unicode escapes (\u003c, \U003E, ...) and HTML entities
// (&lt;, &GT;, ...).
var encodedBracket = regexp.MustCompile(`(?i)\\u003[ce]|&[lg]t;`)

// Decode returns s with every encoded angle bracket replaced by its literal
// character. Replacement happens in a single left-to-right pass, and a literal
// '<' or '>' can never be part of an encoding, so Decode is idempotent.
func Decode(s string) string {
	if s == "" || !mightBeEncoded(s) {
		return s
	}

	return encodedBracket.ReplaceAllStringFunc(s, func(m string) string {
		switch strings.ToLower(m) {
		case `\u003c`, "&lt;":
			return "<"
		default:
			return ">"
		}
	})
}

// mightBeEncoded is a cheap pre-check so plain text skips the regexp.
func mightBeEncoded(s string) bool {
	return strings.IndexByte(s, '\\') >= 0 || strings.IndexByte(s, '&') >= 0
}
