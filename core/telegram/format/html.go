// Package format prepares user-supplied text for Telegram HTML messages.
package format

import (
	"html"
	"strings"
)

// EscapeHTML escapes &, <, > and quotes so text is safe in HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// FullName joins non-empty name parts with a space and escapes the result.
func FullName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return EscapeHTML(strings.Join(kept, " "))
}
