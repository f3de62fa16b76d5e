package binder

import (
	"strings"
	"unicode"
)

// sanitizeStringValue strips control characters that have no business in
// request payloads and trims surrounding whitespace. Newlines and tabs are
// kept so multi-line text fields survive.
func sanitizeStringValue(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}
