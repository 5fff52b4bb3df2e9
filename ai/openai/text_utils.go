package openai

import "strings"

// cleanAnswer strips markdown code fences and surrounding whitespace that
// chat models like to wrap short answers in.
func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
