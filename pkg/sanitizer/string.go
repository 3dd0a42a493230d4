package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeUserName keeps case; user names are matched exactly.
func NormalizeUserName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeID lowercases hex object ids so "65AF..." and "65af..." compare equal.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
