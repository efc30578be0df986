package render

import (
	"strings"
	"unicode"
)

const defaultInitials = "ST"

// Initials derives the two-letter badge shown when a store has no usable
// logo: the first two letters of a single-word name, or the first letter of
// each of the first two words.
func Initials(name string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(name), func(r rune) bool {
		return unicode.IsSpace(r)
	})

	switch {
	case len(fields) == 0:
		return defaultInitials
	case len(fields) == 1:
		runes := []rune(fields[0])
		if len(runes) == 1 {
			return strings.ToUpper(string(runes[0]))
		}
		return strings.ToUpper(string(runes[:2]))
	default:
		first := []rune(fields[0])
		second := []rune(fields[1])
		return strings.ToUpper(string(first[0]) + string(second[0]))
	}
}
