package toc

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	chapterNumberPattern = regexp.MustCompile(`^(\d+)\.`)
	chapterPrefixPattern = regexp.MustCompile(`^\d+\.\s*`)
)

// ParseChapterNumber extracts n from a title beginning with "<n>.".
func ParseChapterNumber(title string) (int, bool) {
	match := chapterNumberPattern.FindStringSubmatch(strings.TrimSpace(title))
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// StripChapterPrefix removes exactly the leading "<n>." and the whitespace after it.
func StripChapterPrefix(title string) string {
	return strings.TrimSpace(chapterPrefixPattern.ReplaceAllString(strings.TrimSpace(title), ""))
}
