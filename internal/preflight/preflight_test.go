package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"epub2audio/internal/config"
	"epub2audio/internal/services"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail for missing dir, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func stubBinaries(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\necho \"$0 version 7.1\"\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)
	return dir
}

func minimalConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = ""
	return &cfg
}

func TestRunAll_PassesWithTools(t *testing.T) {
	stubBinaries(t, "ffmpeg", "ffprobe", "say")
	cfg := minimalConfig(t)

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if err := Failures(results); err != nil {
		t.Fatalf("expected no failures, got %v", err)
	}
}

func TestRunAll_OptionalNarrationDoesNotFail(t *testing.T) {
	stubBinaries(t, "ffmpeg", "ffprobe")
	cfg := minimalConfig(t)

	results := RunAll(context.Background(), cfg)
	if err := Failures(results); err != nil {
		t.Fatalf("missing narration command should not fail preflight: %v", err)
	}
}

func TestRunAll_MissingFFmpegFails(t *testing.T) {
	stubBinaries(t)
	cfg := minimalConfig(t)

	err := Failures(RunAll(context.Background(), cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNativeBackendMakesFFprobeOptional(t *testing.T) {
	stubBinaries(t, "ffmpeg")
	cfg := minimalConfig(t)
	cfg.Audio.ProbeBackend = config.ProbeBackendNative

	for _, status := range CheckSystemDeps(context.Background(), cfg) {
		if status.Name == "FFprobe" && !status.Optional {
			t.Fatal("ffprobe should be optional with the native backend")
		}
	}
	if err := Failures(RunAll(context.Background(), cfg)); err != nil {
		t.Fatalf("expected pass without ffprobe, got %v", err)
	}
}

func TestToolVersion(t *testing.T) {
	dir := stubBinaries(t, "ffmpeg")
	want := filepath.Join(dir, "ffmpeg") + " version 7.1"
	if got := ToolVersion(context.Background(), "ffmpeg"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := ToolVersion(context.Background(), "missing-tool"); got != "" {
		t.Fatalf("expected empty version for missing tool, got %q", got)
	}
}
