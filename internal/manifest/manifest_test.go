package manifest_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"epub2audio/internal/manifest"
	"epub2audio/internal/services"
	"epub2audio/internal/testsupport"
)

func TestEntryRoundTripPreservesAbsentEmptyAndUnknown(t *testing.T) {
	input := `[
  {"order": 2, "chapterNumber": 1, "chapterTitle": "1. Start", "chapterPath": "c1.xhtml", "markdown": "", "narrator": {"voice": "Ava"}},
  {"order": 3, "chapterNumber": 2, "chapterTitle": "2. Next", "chapterPath": "c2.xhtml", "audio": "audio/2. Next.m4a"}
]`
	var m manifest.Manifest
	if err := json.Unmarshal([]byte(input), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Version != manifest.CurrentVersion || m.Len() != 2 {
		t.Fatalf("unexpected manifest: %#v", m)
	}
	first := m.Entries[0]
	if first.Markdown == nil || *first.Markdown != "" {
		t.Fatalf("expected empty markdown to be kept, got %v", first.Markdown)
	}
	if first.Audio != nil {
		t.Fatalf("expected absent audio, got %q", *first.Audio)
	}
	if raw, ok := first.Extra("narrator"); !ok || string(raw) != `{"voice": "Ava"}` {
		t.Fatalf("expected unknown key preserved, got %s", raw)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"order":2,"chapterNumber":1,"chapterTitle":"1. Start","chapterPath":"c1.xhtml","markdown":"","narrator":{"voice":"Ava"}},` +
		`{"order":3,"chapterNumber":2,"chapterTitle":"2. Next","chapterPath":"c2.xhtml","audio":"audio/2. Next.m4a"}]`
	if string(out) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", out, want)
	}
}

func TestEntryKeepsExplicitNull(t *testing.T) {
	input := `[{"order":1,"chapterNumber":1,"chapterTitle":"One","chapterPath":"c1.xhtml","audio":null}]`
	var m manifest.Manifest
	if err := json.Unmarshal([]byte(input), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Entries[0].Audio != nil || m.Entries[0].HasAudio() {
		t.Fatalf("expected nil audio, got %v", m.Entries[0].Audio)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", out, input)
	}

	rebuilt := manifest.New([]manifest.Entry{{Order: 1, ChapterNumber: manifest.IntPtr(1), ChapterTitle: "One", ChapterPath: "c1.xhtml"}})
	out, err = json.Marshal(manifest.Merge(m, rebuilt))
	if err != nil {
		t.Fatalf("marshal merged: %v", err)
	}
	if string(out) != input {
		t.Fatalf("expected merge to keep null audio, got %s", out)
	}

	m.Entries[0].Audio = manifest.StringPtr("audio/1. One.m4a")
	out, err = json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal updated: %v", err)
	}
	if !strings.Contains(string(out), `"audio":"audio/1. One.m4a"`) {
		t.Fatalf("expected recorded audio, got %s", out)
	}
}

func TestEntryReadsSnakeCaseKeys(t *testing.T) {
	var entry manifest.Entry
	if err := json.Unmarshal([]byte(`{"order":1,"chapter_number":4,"chapter_title":"4. Four","chapter_path":"c4.xhtml"}`), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Number() != 4 || entry.ChapterTitle != "4. Four" || entry.ChapterPath != "c4.xhtml" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	out, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "chapter_number") {
		t.Fatalf("legacy key should not be written back: %s", out)
	}
}

func TestEmptyManifestEncodesAsArray(t *testing.T) {
	out, err := json.Marshal(manifest.New(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "[]" {
		t.Fatalf("expected empty array, got %s", out)
	}
}

func TestMergeKeepsStageFieldsByOrder(t *testing.T) {
	existing := manifest.New([]manifest.Entry{
		{Order: 2, ChapterNumber: manifest.IntPtr(1), ChapterTitle: "1. Old", Audio: manifest.StringPtr("/a/1.m4a")},
		{Order: 5, ChapterNumber: manifest.IntPtr(3), ChapterTitle: "3. Gone", Markdown: manifest.StringPtr("md/3.md")},
	})
	rebuilt := manifest.New([]manifest.Entry{
		{Order: 2, ChapterNumber: manifest.IntPtr(1), ChapterTitle: "1. New", ChapterPath: "c1.xhtml"},
		{Order: 3, ChapterNumber: manifest.IntPtr(2), ChapterTitle: "2. Added", ChapterPath: "c2.xhtml"},
	})

	merged := manifest.Merge(existing, rebuilt)
	if merged.Len() != 2 {
		t.Fatalf("expected rebuilt row set, got %d entries", merged.Len())
	}
	if merged.Entries[0].ChapterTitle != "1. New" {
		t.Fatalf("builder-owned field should be overwritten, got %q", merged.Entries[0].ChapterTitle)
	}
	if !merged.Entries[0].HasAudio() || *merged.Entries[0].Audio != "/a/1.m4a" {
		t.Fatalf("expected audio carried over, got %#v", merged.Entries[0].Audio)
	}
	if merged.Entries[1].Audio != nil || merged.Entries[1].Markdown != nil {
		t.Fatalf("new entry should have no stage fields: %#v", merged.Entries[1])
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	_, err := manifest.Load(filepath.Join(dir, "json", "toc.json"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "toc.json") {
		t.Fatalf("expected error to name the path, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	testsupport.WriteText(t, bad, `{"order": 1}`)
	if _, err := manifest.Load(bad); !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestSaveMergedAndUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json", "toc.json")
	ctx := context.Background()

	initial := manifest.New([]manifest.Entry{
		{Order: 1, ChapterNumber: manifest.IntPtr(1), ChapterTitle: "1. One", ChapterPath: "c1.xhtml"},
	})
	if _, err := manifest.SaveMerged(ctx, path, initial); err != nil {
		t.Fatalf("SaveMerged: %v", err)
	}
	err := manifest.Update(ctx, path, func(m *manifest.Manifest) error {
		m.Entries[0].Audio = manifest.StringPtr("audio/1. One.m4a")
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	merged, err := manifest.SaveMerged(ctx, path, initial)
	if err != nil {
		t.Fatalf("SaveMerged: %v", err)
	}
	if !merged.Entries[0].HasAudio() {
		t.Fatal("expected rebuild to keep audio")
	}

	loaded, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := *loaded.Entries[0].Audio; got != "audio/1. One.m4a" {
		t.Fatalf("unexpected persisted audio: %q", got)
	}
	if content := testsupport.ReadText(t, path); !strings.HasSuffix(content, "]\n") {
		t.Fatalf("expected trailing newline, got %q", content)
	}

	wantErr := errors.New("stop")
	if err := manifest.Update(ctx, path, func(*manifest.Manifest) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
}
