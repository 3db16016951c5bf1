package order

import "strings"

var sanitizer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes the HTML-significant characters and the forward slash.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return sanitizer.Replace(s)
}
