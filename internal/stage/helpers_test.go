package stage

import (
	"errors"
	"path/filepath"
	"testing"

	"epub2audio/internal/library"
	"epub2audio/internal/registry"
	"epub2audio/internal/services"
	"epub2audio/internal/testsupport"
)

func TestBookLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	if _, err := BookLayout(cfg, &registry.Book{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty stem, got %v", err)
	}
	if _, err := BookLayout(cfg, &registry.Book{Stem: "absent"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing book, got %v", err)
	}

	if err := library.NewLayout(cfg.Paths.BaseDir, "book").Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	layout, err := BookLayout(cfg, &registry.Book{Stem: "book"})
	if err != nil {
		t.Fatalf("BookLayout: %v", err)
	}
	if layout.Root() != filepath.Join(cfg.Paths.BaseDir, "book") {
		t.Fatalf("unexpected root %s", layout.Root())
	}
}

func TestHealthHelpers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	if h := BinaryHealth("mux", cfg.FFmpegBinary()); !h.Ready {
		t.Fatalf("expected stubbed ffmpeg to be ready: %+v", h)
	}
	if h := BinaryHealth("tts", "definitely-not-installed-binary"); h.Ready || h.Detail == "" {
		t.Fatalf("expected unhealthy binary, got %+v", h)
	}
	if h := DirHealth("extracted", filepath.Join(t.TempDir(), "missing")); h.Ready {
		t.Fatalf("expected unhealthy directory, got %+v", h)
	}
}
