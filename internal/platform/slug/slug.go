package slug

import (
	"regexp"
	"strings"
)

var separators = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases input into dash separated words, cut at a word boundary
// so the result stays within maxLen. Empty results fall back to fallback.
func Make(input string, maxLen int, fallback string) string {
	s := strings.Trim(separators.ReplaceAllString(strings.ToLower(input), "-"), "-")
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
		if i := strings.LastIndexByte(s, '-'); i > 0 {
			s = s[:i]
		}
		s = strings.Trim(s, "-")
	}
	if s == "" {
		return fallback
	}
	return s
}
