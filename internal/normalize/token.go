package normalize

import (
	"strings"
	"unicode"
)

// Token normalizes a tag or alias name for identity comparisons: lowercase,
// dashes and underscores become spaces, whitespace is folded, and leading or
// trailing non-word characters are trimmed. Unicode letters are preserved.
func Token(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}

	replaced := strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, lowered)

	collapsed := strings.Join(strings.Fields(replaced), " ")
	return strings.TrimFunc(collapsed, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
