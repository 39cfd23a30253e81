package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multipleUnders  = regexp.MustCompile(`_+`)
)

// FoldASCII decomposes s (NFKD) and removes every non-ASCII rune.
func FoldASCII(s string) string {
	s = norm.NFKD.String(s)
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

// NormalizeTitle reduces a title to lowercase ASCII words separated by single
// spaces. Applying it twice yields the same result.
func NormalizeTitle(s string) string {
	s = strings.ToLower(FoldASCII(s))
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Slugify converts a string to an underscore-separated storage stem.
// "The Dark Forest (02)" -> "the_dark_forest_02".
func Slugify(s string) string {
	s = strings.ToLower(FoldASCII(s))
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	s = multipleUnders.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
