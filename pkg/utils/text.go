// Package utils provides shared utilities for text and logging.
package utils

import (
	"html"
	"strings"
)

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// StripMarks replaces a snippet's <mark> and </mark> tags with the given
// open/close markers and decodes HTML entities back to plain text. Used by
// the CLI to render highlighted snippets in a terminal.
func StripMarks(snippet, open, close string) string {
	snippet = strings.ReplaceAll(snippet, "<mark>", open)
	snippet = strings.ReplaceAll(snippet, "</mark>", close)
	return html.UnescapeString(snippet)
}
