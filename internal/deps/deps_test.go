package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}

	missing := MissingRequired(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestResolveFFprobePrefersSibling(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	ffprobe := filepath.Join(dir, executableName("ffprobe"))
	writeStub(t, ffmpeg)
	writeStub(t, ffprobe)

	if got := ResolveFFprobe(ffmpeg, "ffprobe"); got != ffprobe {
		t.Fatalf("expected sibling ffprobe %q, got %q", ffprobe, got)
	}
	if got := ResolveFFprobe(ffmpeg, "/opt/ffprobe"); got != "/opt/ffprobe" {
		t.Fatalf("configured path should win, got %q", got)
	}
}

func TestResolveFFprobeFallsBackToName(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	writeStub(t, ffmpeg)
	if got := ResolveFFprobe(ffmpeg, ""); got != "ffprobe" {
		t.Fatalf("expected PATH lookup name, got %q", got)
	}
	if got := ResolveFFprobe("missing-ffmpeg-binary", ""); got != "ffprobe" {
		t.Fatalf("expected PATH lookup name, got %q", got)
	}
}
