package audioindex_test

import (
	"path/filepath"
	"testing"

	"epub2audio/internal/audioindex"
	"epub2audio/internal/testsupport"
)

var extensions = []string{".m4a", ".mp3", "M4B"}

func TestBuildIndexesNumberAndTitle(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"2 - The Fall.m4a",
		"12. The Awakening.MP3",
		"007_Interlude.m4b",
		"Epilogue Of Sorts.m4a",
		"notes.txt",
		".hidden.m4a",
	} {
		testsupport.WriteFile(t, filepath.Join(dir, name), 16)
	}

	idx, err := audioindex.Build(dir, extensions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 4 {
		t.Fatalf("expected 4 indexed files, got %d", idx.Len())
	}

	numbers := map[int]string{
		2:  "2 - The Fall.m4a",
		12: "12. The Awakening.MP3",
		7:  "007_Interlude.m4b",
	}
	for n, name := range numbers {
		got, ok := idx.ByNumber(n)
		if !ok || got != filepath.Join(dir, name) {
			t.Errorf("ByNumber(%d) = %q, %v; want %q", n, got, ok, name)
		}
	}

	titles := map[string]string{
		"the fall":          "2 - The Fall.m4a",
		"THE  Awakening!":   "12. The Awakening.MP3",
		"interlude":         "007_Interlude.m4b",
		"Epilogue of Sorts": "Epilogue Of Sorts.m4a",
	}
	for title, name := range titles {
		got, ok := idx.ByTitle(title)
		if !ok || got != filepath.Join(dir, name) {
			t.Errorf("ByTitle(%q) = %q, %v; want %q", title, got, ok, name)
		}
	}

	if _, ok := idx.ByNumber(3); ok {
		t.Error("unexpected match for chapter 3")
	}
	if _, ok := idx.ByTitle("  "); ok {
		t.Error("blank title should never match")
	}
}

func TestBuildFirstSortedNameWins(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "03 Storm.m4a"), 8)
	testsupport.WriteFile(t, filepath.Join(dir, "3. Storm (alt).m4a"), 8)
	testsupport.WriteFile(t, filepath.Join(dir, "3. storm.mp3"), 8)

	idx, err := audioindex.Build(dir, extensions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, _ := idx.ByNumber(3)
	if want := filepath.Join(dir, "03 Storm.m4a"); got != want {
		t.Fatalf("ByNumber(3) = %q, want %q", got, want)
	}
	got, _ = idx.ByTitle("storm")
	if want := filepath.Join(dir, "03 Storm.m4a"); got != want {
		t.Fatalf("ByTitle(storm) = %q, want %q", got, want)
	}
}

func TestBuildMissingDirectory(t *testing.T) {
	idx, err := audioindex.Build(filepath.Join(t.TempDir(), "audio"), extensions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got %d files", idx.Len())
	}
	if _, ok := idx.ByNumber(1); ok {
		t.Fatal("empty index should not match")
	}
}

func TestBuildSkipsExcludedFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "1. One.m4a"), 8)
	testsupport.WriteFile(t, filepath.Join(dir, "The Book.m4b"), 8)

	idx, err := audioindex.Build(dir, extensions, filepath.Join(dir, "The Book.m4b"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected excluded file to be skipped, got %d files", idx.Len())
	}
	if _, ok := idx.ByTitle("the book"); ok {
		t.Fatal("excluded file should not be indexed by title")
	}
}
