package workflow_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"epub2audio/internal/assembly"
	"epub2audio/internal/library"
	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
	"epub2audio/internal/media/probe"
	"epub2audio/internal/registry"
	"epub2audio/internal/testsupport"
	"epub2audio/internal/workflow"
)

var epubMembers = map[string]string{
	"mimetype": "application/epub+zip",
	"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
	"OEBPS/content.opf": `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Leviathan Wakes</dc:title>
    <dc:creator>James S. A. Corey</dc:creator>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="c1" href="Text/c1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="Text/c2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx"><itemref idref="c1"/><itemref idref="c2"/></spine>
</package>`,
	"OEBPS/toc.ncx": `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1"><navLabel><text>1. Holden</text></navLabel><content src="Text/c1.xhtml"/></navPoint>
    <navPoint id="p2"><navLabel><text>2. Miller</text></navLabel><content src="Text/c2.xhtml"/></navPoint>
    <navPoint id="p3"><navLabel><text>Acknowledgments</text></navLabel><content src="Text/ack.xhtml"/></navPoint>
  </navMap>
</ncx>`,
	"OEBPS/Text/c1.xhtml": `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Holden</h1><p>The ship was quiet.</p></body></html>`,
	"OEBPS/Text/c2.xhtml": `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Miller</h1><p>Ceres never slept.</p></body></html>`,
	"OEBPS/images/cover.jpg": "jpeg",
}

func writeEPUB(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range epubMembers {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

// fakeTools writes the file named after -o, or the last argument.
func fakeTools(calls *[]string) func(context.Context, string, ...string) error {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, name)
		out := args[len(args)-1]
		if i := slices.Index(args, "-o"); i >= 0 {
			out = args[i+1]
		}
		return os.WriteFile(out, []byte(name), 0o644)
	}
}

func TestDefaultStagesConvertBook(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Assembly.VerifyOutput = false
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	source := filepath.Join(t.TempDir(), "Leviathan Wakes.epub")
	writeEPUB(t, source)

	var narrationCalls, muxCalls []string
	stages := workflow.DefaultStages(cfg, logging.NewNop(), workflow.StageOptions{
		NarrationRunner: fakeTools(&narrationCalls),
		Assembly: []assembly.Option{
			assembly.WithProber(probe.Func(func(context.Context, string) (int64, error) { return 30000, nil })),
			assembly.WithMuxRunner(fakeTools(&muxCalls)),
		},
	})
	p := workflow.NewPipeline(cfg, store, logging.NewNop(), stages)

	book, err := p.Register(ctx, source)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := p.Run(ctx, book, workflow.RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stored, err := store.Get(ctx, book.Stem)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != registry.StatusCompleted {
		t.Fatalf("expected completed, got %+v", stored)
	}
	if stored.Title != "Leviathan Wakes" || stored.Author != "James S. A. Corey" {
		t.Fatalf("expected package metadata, got %q / %q", stored.Title, stored.Author)
	}
	if stored.ChapterCount != 2 || stored.ResolvedCount != 2 || len(stored.Unresolved) != 0 {
		t.Fatalf("unexpected reconciliation counts: %+v", stored)
	}

	layout := library.NewLayout(cfg.Paths.BaseDir, book.Stem)
	if stored.OutputPath != filepath.Join(layout.AudioDir(), "Leviathan Wakes.m4b") {
		t.Fatalf("unexpected output path %s", stored.OutputPath)
	}
	if len(muxCalls) != 1 {
		t.Fatalf("expected one mux call, got %v", muxCalls)
	}
	if len(narrationCalls) == 0 {
		t.Fatal("expected narration commands to run")
	}

	m, err := manifest.Load(layout.ManifestPath())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, entry := range m.Entries {
		if !entry.HasMarkdown() || !entry.HasAudio() {
			t.Fatalf("expected markdown and audio recorded for %+v", entry)
		}
	}
	chapters := testsupport.ReadText(t, layout.ChaptersPath())
	if !strings.Contains(chapters, "title=Chapter 2: Miller") {
		t.Fatalf("unexpected chapters file:\n%s", chapters)
	}
}

func TestReconcileStageRecordsUnresolved(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	layout := library.NewLayout(cfg.Paths.BaseDir, "book")
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	entries := []manifest.Entry{
		{Order: 1, ChapterNumber: manifest.IntPtr(1), ChapterTitle: "Holden"},
		{Order: 2, ChapterNumber: manifest.IntPtr(2), ChapterTitle: "Miller", ChapterPath: "OEBPS/Text/c2.xhtml"},
	}
	if err := manifest.Save(ctx, layout.ManifestPath(), manifest.New(entries)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(layout.AudioDir(), "01 Holden.m4a"), 8)

	p := workflow.NewPipeline(cfg, store, logging.NewNop(), workflow.DefaultStages(cfg, logging.NewNop(), workflow.StageOptions{}))
	book, err := p.Book(ctx, "book")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if err := p.RunStage(ctx, workflow.StageReconcile, book, ""); err != nil {
		t.Fatalf("RunStage: %v", err)
	}

	unresolved, err := store.Unresolved(ctx, "book")
	if err != nil {
		t.Fatalf("Unresolved: %v", err)
	}
	if len(unresolved) != 1 || unresolved[0].Order != 2 || unresolved[0].ChapterPath != "OEBPS/Text/c2.xhtml" {
		t.Fatalf("unexpected unresolved set: %+v", unresolved)
	}
	stored, _ := store.Get(ctx, "book")
	if stored.Status != registry.StatusReconciled || stored.ResolvedCount != 1 || stored.ChapterCount != 2 {
		t.Fatalf("unexpected book after reconcile: %+v", stored)
	}
}

func TestUnresolvedEntries(t *testing.T) {
	got := workflow.UnresolvedEntries([]manifest.Entry{{Order: 3, ChapterTitle: "Untitled"}})
	if len(got) != 1 || got[0].ChapterNumber != 0 || got[0].Order != 3 {
		t.Fatalf("unexpected conversion: %+v", got)
	}
}
