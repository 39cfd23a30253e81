package toc

import (
	"path"
	"strings"
)

var backMatterKeywords = []string{
	"about the author",
	"acknowledgments",
	"acknowledgements",
	"afterword",
	"also in series",
	"appendix",
	"back matter",
	"bibliography",
	"colophon",
	"contents",
	"copyright",
	"epilogue",
	"glossary",
	"index",
	"notes",
	"other books",
	"permissions",
	"praise",
	"references",
	"resources",
	"thank you",
}

var fontExtensions = map[string]struct{}{
	".ttf":   {},
	".otf":   {},
	".woff":  {},
	".woff2": {},
}

// ShouldSkip reports whether a navigation point is a font resource or back
// matter that should not be narrated.
func ShouldSkip(title, resourcePath string) bool {
	titleLower := strings.ToLower(strings.TrimSpace(title))
	pathLower := strings.ToLower(strings.TrimSpace(resourcePath))

	if strings.Contains(titleLower, "font") || strings.Contains(pathLower, "font") {
		return true
	}
	if _, ok := fontExtensions[path.Ext(stripFragment(pathLower))]; ok {
		return true
	}
	for _, keyword := range backMatterKeywords {
		if strings.Contains(titleLower, keyword) {
			return true
		}
	}
	return false
}

func stripFragment(ref string) string {
	if idx := strings.IndexByte(ref, '#'); idx >= 0 {
		return ref[:idx]
	}
	return ref
}
