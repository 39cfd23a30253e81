package assembly

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"epub2audio/internal/epub"
	"epub2audio/internal/logging"
)

var stemSeparators = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// HumanizeStem turns a storage stem such as "the_dark_forest_02" into
// "The Dark Forest 2".
func HumanizeStem(stem string) string {
	parts := stemSeparators.Split(strings.TrimSpace(stem), -1)
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if isDigits(part) {
			if n, err := strconv.Atoi(part); err == nil {
				part = strconv.Itoa(n)
			} else {
				part = strings.TrimLeft(part, "0")
				if part == "" {
					part = "0"
				}
			}
		}
		words = append(words, part)
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// ResolveBookMetadata reads title and creators from the package document at
// opfPath. An unreadable document is reported as a warning and the title
// falls back to the humanized stem with no author; so does a missing title.
func ResolveBookMetadata(opfPath, stem string, reporter logging.Reporter) BookMetadata {
	if reporter == nil {
		reporter = logging.Discard()
	}
	meta := BookMetadata{Title: HumanizeStem(stem)}
	if strings.TrimSpace(opfPath) == "" {
		return meta
	}
	pkg, err := epub.ParsePackage(opfPath)
	if err != nil {
		reporter.Warning("package metadata unavailable; using stem title",
			logging.String("opf", opfPath),
			logging.String("title", meta.Title),
			logging.Error(err),
		)
		return meta
	}
	if title := pkg.Title(); title != "" {
		meta.Title = title
	}
	meta.Author = pkg.Author()
	return meta
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
