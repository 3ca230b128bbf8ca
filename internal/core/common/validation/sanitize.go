package validation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup from user supplied text and trims it. The policy
// escapes entities, so the result is unescaped back to plain text.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func SanitizeTextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := SanitizeText(*s)
	return &out
}
