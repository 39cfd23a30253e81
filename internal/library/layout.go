package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"epub2audio/internal/textutil"
)

// Layout resolves the paths of one book's working tree.
type Layout struct {
	BaseDir string
	Stem    string
}

// NewLayout returns the layout for stem under baseDir.
func NewLayout(baseDir, stem string) Layout {
	return Layout{BaseDir: baseDir, Stem: stem}
}

func (l Layout) Root() string         { return filepath.Join(l.BaseDir, l.Stem) }
func (l Layout) EPUBDir() string      { return filepath.Join(l.Root(), "epub") }
func (l Layout) EPUBPath() string     { return filepath.Join(l.EPUBDir(), l.Stem+".epub") }
func (l Layout) ExtractedDir() string { return filepath.Join(l.Root(), "extracted") }
func (l Layout) JSONDir() string      { return filepath.Join(l.Root(), "json") }
func (l Layout) ManifestPath() string { return filepath.Join(l.JSONDir(), "toc.json") }
func (l Layout) MarkdownDir() string  { return filepath.Join(l.Root(), "markdown") }
func (l Layout) AudioDir() string     { return filepath.Join(l.Root(), "audio") }
func (l Layout) TxtDir() string       { return filepath.Join(l.Root(), "txt") }
func (l Layout) ConcatPath() string   { return filepath.Join(l.TxtDir(), "concat.txt") }
func (l Layout) ChaptersPath() string { return filepath.Join(l.TxtDir(), "chapters.txt") }

// ChapterSource maps a manifest chapterPath onto the extracted tree.
func (l Layout) ChapterSource(chapterPath string) string {
	if idx := strings.IndexByte(chapterPath, '#'); idx >= 0 {
		chapterPath = chapterPath[:idx]
	}
	if filepath.IsAbs(chapterPath) {
		return chapterPath
	}
	return filepath.Join(l.ExtractedDir(), filepath.FromSlash(chapterPath))
}

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.EPUBDir(), l.ExtractedDir(), l.JSONDir(), l.MarkdownDir(), l.AudioDir(), l.TxtDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists reports whether the book root directory is present.
func (l Layout) Exists() bool {
	info, err := os.Stat(l.Root())
	return err == nil && info.IsDir()
}

// StemFor derives the storage stem from an EPUB path.
func StemFor(epubPath string, slugify bool) string {
	stem := strings.TrimSuffix(filepath.Base(epubPath), filepath.Ext(epubPath))
	if !slugify {
		return strings.TrimSpace(stem)
	}
	if slug := textutil.Slugify(stem); slug != "" {
		return slug
	}
	return strings.TrimSpace(stem)
}

// Discover lists the stems of book directories under baseDir, sorted.
// A missing base directory yields no books.
func Discover(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", baseDir, err)
	}
	var stems []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		layout := NewLayout(baseDir, entry.Name())
		if _, err := os.Stat(layout.ExtractedDir()); err == nil {
			stems = append(stems, entry.Name())
			continue
		}
		if _, err := os.Stat(layout.ManifestPath()); err == nil {
			stems = append(stems, entry.Name())
		}
	}
	sort.Strings(stems)
	return stems, nil
}
