package toc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
	"epub2audio/internal/services"
)

// Builder converts a navigation document into a manifest.
type Builder struct {
	reporter logging.Reporter
	root     string
}

// Option customizes a Builder.
type Option func(*Builder)

// WithRoot rewrites chapter paths to be relative to root (normally the
// extracted EPUB directory) instead of relative to the navigation document.
func WithRoot(root string) Option {
	return func(b *Builder) {
		b.root = root
	}
}

// NewBuilder returns a builder that reports through reporter.
func NewBuilder(reporter logging.Reporter, opts ...Option) *Builder {
	if reporter == nil {
		reporter = logging.Discard()
	}
	b := &Builder{reporter: reporter}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build parses navPath and returns the filtered manifest. A document without
// navigation points yields an empty manifest.
func (b *Builder) Build(ctx context.Context, navPath string) (manifest.Manifest, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return manifest.Manifest{}, err
		}
	}
	data, err := os.ReadFile(navPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return manifest.Manifest{}, services.Wrap(services.ErrNotFound, "toc", "build", fmt.Sprintf("navigation document not found at %s", navPath), err)
		}
		return manifest.Manifest{}, fmt.Errorf("read navigation document %s: %w", navPath, err)
	}

	var points []navPoint
	if isXHTML(navPath) {
		points, err = parseNav(data)
	} else {
		points, err = parseNCX(data)
	}
	if err != nil {
		return manifest.Manifest{}, services.Wrap(services.ErrParse, "toc", "build", fmt.Sprintf("malformed navigation document %s", navPath), err)
	}

	entries := make([]manifest.Entry, 0, len(points))
	var unnumbered, skipped int
	for i, point := range points {
		order := i + 1
		number, ok := ParseChapterNumber(point.Title)
		if !ok {
			unnumbered++
			continue
		}
		title := StripChapterPrefix(point.Title)
		if ShouldSkip(title, point.Src) {
			skipped++
			continue
		}
		entries = append(entries, manifest.Entry{
			Order:         order,
			ChapterNumber: manifest.IntPtr(number),
			ChapterTitle:  title,
			ChapterPath:   b.chapterPath(navPath, point.Src),
		})
	}

	b.reporter.Event("manifest built",
		logging.String("navigation", navPath),
		logging.Int("points", len(points)),
		logging.Int("chapters", len(entries)),
		logging.Int("dropped_unnumbered", unnumbered),
		logging.Int("dropped_back_matter", skipped),
	)
	return manifest.New(entries), nil
}

func (b *Builder) chapterPath(navPath, src string) string {
	if b.root == "" || src == "" {
		return src
	}
	if u, err := url.Parse(src); err == nil && (u.Scheme != "" || u.Host != "") {
		return src
	}
	ref, fragment := src, ""
	if idx := strings.IndexByte(src, '#'); idx >= 0 {
		ref, fragment = src[:idx], src[idx:]
	}
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	abs := filepath.Join(filepath.Dir(navPath), filepath.FromSlash(ref))
	rel, err := filepath.Rel(b.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return src
	}
	return filepath.ToSlash(rel) + fragment
}

func isXHTML(navPath string) bool {
	switch strings.ToLower(filepath.Ext(navPath)) {
	case ".xhtml", ".html", ".htm":
		return true
	default:
		return false
	}
}
