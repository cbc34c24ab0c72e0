package domain

import "strings"

// maxTopicLen caps the stored topic summary.
const maxTopicLen = 120

// ExtractTopic derives a short topic summary from a user message: the text
// up to the first sentence-terminal character (. ! ? or newline), or the
// whole message when none is present, trimmed and capped at 120 characters.
func ExtractTopic(message string) string {
	s := strings.TrimSpace(message)
	if s == "" {
		return ""
	}
	if idx := strings.IndexAny(s, ".!?\n"); idx >= 0 {
		if first := strings.TrimSpace(s[:idx]); first != "" {
			s = first
		}
	}
	if r := []rune(s); len(r) > maxTopicLen {
		s = strings.TrimSpace(string(r[:maxTopicLen]))
	}
	return s
}
