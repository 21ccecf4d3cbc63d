package utils

import "strings"

// StripFences removes a markdown code fence wrapper from LLM output, if
// present, so the payload can be parsed as JSON.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the opening fence ("json", "yaml", ...)
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// FirstJSONBlock extracts the first balanced JSON object or array from s.
// Returns the input unchanged when no JSON delimiter is found.
func FirstJSONBlock(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}

	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
