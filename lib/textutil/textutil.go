package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeHeader collapses runs of whitespace into single spaces and trims
// the result. Casing is preserved so it can still be displayed.
func NormalizeHeader(text string) string {
	text = strings.Trim(text, " \n\t")
	return whitespaceRegex.ReplaceAllString(text, " ")
}

// NormalizeName lowercases and strips all whitespace, producing a key
// suitable for case- and spacing-insensitive comparison.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// NumericValue strips every rune outside [0-9.] from a cell's display text.
// An empty result is reported through the second return value.
func NumericValue(display string) (string, bool) {
	var b strings.Builder
	for _, c := range display {
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
