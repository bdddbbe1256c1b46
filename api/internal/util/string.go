package util

import "strings"

// StripCodeFences removes a surrounding markdown fence (```json ... ``` or ``` ... ```).
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// language tag: ```json, ```JSON
	if i := strings.IndexAny(s, "\n{["); i >= 0 && strings.TrimSpace(s[:i]) != "" && !strings.ContainsAny(s[:i], " \t") {
		s = s[i:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
