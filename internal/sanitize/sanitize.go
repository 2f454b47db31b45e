// Package sanitize normalizes free-text fields arriving from the wire or
// from HTTP path/query parameters before they reach domain code.
package sanitize

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ASCII control characters except CR, LF and TAB.
	controlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	zeroWidth    = regexp.MustCompile("[\u200b-\u200d\ufeff]")
	scriptTag    = regexp.MustCompile(`(?i)<\s*/?\s*script\b[^>]*>`)
)

// ErrPathSeparator is returned by PathSegment when the sanitized value still
// contains a '/'.
var ErrPathSeparator = errors.New("invalid path segment")

// Text sanitizes an optional free-text value. A nil input stays nil. The
// result is trimmed; control characters (except CR/LF/TAB), zero-width
// characters and <script> open/close tags are removed. Text is idempotent:
// Text(Text(s)) == Text(s).
func Text(in *string) *string {
	if in == nil {
		return nil
	}
	out := TextValue(*in)
	return &out
}

// TextValue is Text for a plain string.
func TextValue(s string) string {
	// Stripping can expose new whitespace or reassemble a tag from its
	// surroundings, so run to a fixpoint to keep the operation idempotent.
	for {
		next := sanitizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func sanitizeOnce(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = controlChars.ReplaceAllString(s, "")
	s = zeroWidth.ReplaceAllString(s, "")
	s = scriptTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// PathSegment sanitizes a single URL path segment. It fails if the sanitized
// value is blank or contains a path separator.
func PathSegment(in string) (string, error) {
	s := TextValue(in)
	if s == "" || strings.Contains(s, "/") {
		return "", ErrPathSeparator
	}
	return s, nil
}
