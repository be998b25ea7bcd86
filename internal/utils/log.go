package utils

import "strings"

const ellipsis = "..."

// TruncateForLog flattens s onto one line and keeps at most limit runes of it.
// Prompts and model replies are multi-line, previews are not.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimRight(string(runes[:limit]), " ") + ellipsis
}
