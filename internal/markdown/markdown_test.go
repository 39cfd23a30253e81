package markdown_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"epub2audio/internal/library"
	"epub2audio/internal/manifest"
	"epub2audio/internal/markdown"
	"epub2audio/internal/services"
	"epub2audio/internal/testsupport"
)

const chapterHTML = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>ignored</title><style>p { color: red; }</style></head>
<body>
  <h1>The Fall</h1>
  <p>It began with
  a whisper.<span id="page_12"></span></p>
  <script>alert("no")</script>
  <p>Then <em>everything</em> changed.</p>
</body>
</html>`

func TestToMarkdown(t *testing.T) {
	got, err := markdown.ToMarkdown(chapterHTML)
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	for _, want := range []string{"# The Fall", "It began with a whisper.", "Then *everything* changed."} {
		if !strings.Contains(got, want) {
			t.Fatalf("markdown missing %q:\n%s", want, got)
		}
	}
	for _, unwanted := range []string{"ignored", "color", "alert", "page_12"} {
		if strings.Contains(got, unwanted) {
			t.Fatalf("markdown should not contain %q:\n%s", unwanted, got)
		}
	}
	if !strings.HasSuffix(got, "\n") || strings.HasSuffix(got, "\n\n") {
		t.Fatalf("expected exactly one trailing newline: %q", got)
	}
}

func TestNarrationText(t *testing.T) {
	if got := markdown.NarrationText("  ## Chapter 1\n\nText\n"); got != "Chapter 1\n\nText" {
		t.Fatalf("unexpected narration text %q", got)
	}
	if got := markdown.NarrationText("###   "); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestConvertRecordsMarkdownPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := library.NewLayout(cfg.Paths.BaseDir, "book")
	testsupport.WriteText(t, filepath.Join(layout.ExtractedDir(), "OEBPS", "Text", "c1.xhtml"), chapterHTML)

	entries := []manifest.Entry{
		{Order: 1, ChapterNumber: manifest.IntPtr(1), ChapterTitle: "The Fall", ChapterPath: "OEBPS/Text/c1.xhtml#start"},
		{Order: 2, ChapterNumber: manifest.IntPtr(2), ChapterTitle: "Same File", ChapterPath: "OEBPS/Text/c1.xhtml#later"},
		{Order: 3, ChapterNumber: manifest.IntPtr(3), ChapterTitle: "Gone", ChapterPath: "OEBPS/Text/missing.xhtml"},
	}
	ctx := context.Background()
	if err := manifest.Save(ctx, layout.ManifestPath(), manifest.New(entries)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reporter := &testsupport.RecordingReporter{}
	result, err := markdown.Convert(ctx, layout, reporter)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(result.Written) != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(reporter.Warnings("conversion skipped")) != 1 {
		t.Fatalf("expected one skip warning, got %+v", reporter.Records())
	}

	m, err := manifest.Load(layout.ManifestPath())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "markdown/OEBPS/Text/c1.md"
	for _, e := range m.Entries[:2] {
		if e.Markdown == nil || *e.Markdown != want {
			t.Fatalf("entry %d markdown = %v, want %s", e.Order, e.Markdown, want)
		}
	}
	if m.Entries[2].Markdown != nil {
		t.Fatalf("missing chapter should stay without markdown, got %q", *m.Entries[2].Markdown)
	}
	if text := testsupport.ReadText(t, filepath.Join(layout.Root(), want)); !strings.Contains(text, "a whisper") {
		t.Fatalf("unexpected markdown file:\n%s", text)
	}
}

func TestConvertRequiresExtraction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := markdown.Convert(context.Background(), library.NewLayout(cfg.Paths.BaseDir, "absent"), nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
