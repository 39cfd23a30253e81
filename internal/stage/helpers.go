package stage

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"epub2audio/internal/config"
	"epub2audio/internal/library"
	"epub2audio/internal/registry"
	"epub2audio/internal/services"
)

// BookLayout returns the on-disk layout of a registered book.
// It fails with services.ErrNotFound when the book directory is missing.
func BookLayout(cfg *config.Config, book *registry.Book) (library.Layout, error) {
	if book == nil || strings.TrimSpace(book.Stem) == "" {
		return library.Layout{}, services.Wrap(services.ErrValidation, "stage", "layout", "book stem is required", nil)
	}
	layout := library.NewLayout(cfg.Paths.BaseDir, book.Stem)
	if !layout.Exists() {
		return layout, services.Wrap(services.ErrNotFound, "stage", "layout",
			fmt.Sprintf("book directory not found at %s; import the EPUB first", layout.Root()), nil)
	}
	return layout, nil
}

// BinaryHealth reports whether binary can be found on PATH.
func BinaryHealth(name, binary string) Health {
	if strings.TrimSpace(binary) == "" {
		return Unhealthy(name, "binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return Unhealthy(name, fmt.Sprintf("%s not found on PATH", binary))
	}
	return Healthy(name)
}

// DirHealth reports whether dir exists.
func DirHealth(name, dir string) Health {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Unhealthy(name, fmt.Sprintf("directory %s unavailable", dir))
	}
	return Healthy(name)
}
