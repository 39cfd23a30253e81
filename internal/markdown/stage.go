package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"epub2audio/internal/fileutil"
	"epub2audio/internal/library"
	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
	"epub2audio/internal/services"
)

// Result lists what a conversion run produced.
type Result struct {
	Written []string
	Skipped int
}

// Convert writes one Markdown file per manifest entry under markdown/,
// mirroring the entry's path inside the extracted tree, and records each
// file's book-relative path in the manifest. Entries sharing a source file
// share its Markdown. Missing sources are reported and skipped.
func Convert(ctx context.Context, layout library.Layout, reporter logging.Reporter) (Result, error) {
	if reporter == nil {
		reporter = logging.Discard()
	}
	if info, err := os.Stat(layout.ExtractedDir()); err != nil || !info.IsDir() {
		return Result{}, services.Wrap(services.ErrNotFound, "markdown", "convert", fmt.Sprintf("extracted directory not found at %s", layout.ExtractedDir()), err)
	}

	var result Result
	err := manifest.Update(ctx, layout.ManifestPath(), func(m *manifest.Manifest) error {
		converted := make(map[string]string)
		for i := range m.Entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry := &m.Entries[i]
			source := layout.ChapterSource(entry.ChapterPath)

			rel, ok := converted[source]
			if !ok {
				var err error
				rel, err = convertOne(layout, source)
				if err != nil {
					reporter.Warning("chapter conversion skipped",
						logging.Int("order", entry.Order),
						logging.String("chapter_path", entry.ChapterPath),
						logging.Error(err),
					)
					result.Skipped++
					continue
				}
				converted[source] = rel
				result.Written = append(result.Written, filepath.Join(layout.Root(), filepath.FromSlash(rel)))
			}
			entry.Markdown = manifest.StringPtr(rel)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	reporter.Event("chapters converted to markdown",
		logging.Int("written", len(result.Written)),
		logging.Int("skipped", result.Skipped),
		logging.String("markdown_dir", layout.MarkdownDir()),
	)
	return result, nil
}

func convertOne(layout library.Layout, source string) (string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "markdown", "read chapter", fmt.Sprintf("chapter source unavailable at %s", source), err)
	}
	text, err := ToMarkdown(string(data))
	if err != nil {
		return "", services.Wrap(services.ErrParse, "markdown", "convert chapter", source, err)
	}

	rel, err := filepath.Rel(layout.ExtractedDir(), source)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(source)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".md"
	target := filepath.Join(layout.MarkdownDir(), rel)
	if err := fileutil.WriteFileAtomic(target, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	bookRel, err := filepath.Rel(layout.Root(), target)
	if err != nil {
		return "", fmt.Errorf("relative markdown path: %w", err)
	}
	return filepath.ToSlash(bookRel), nil
}
