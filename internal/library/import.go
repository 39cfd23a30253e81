package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"epub2audio/internal/config"
	"epub2audio/internal/fileutil"
	"epub2audio/internal/logging"
	"epub2audio/internal/services"
)

// ImportResult describes what Import did.
type ImportResult struct {
	Layout    Layout
	Copied    bool
	Extracted bool
}

// Importer brings EPUB files into the library layout.
type Importer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewImporter builds an importer from configuration.
func NewImporter(cfg *config.Config, logger *slog.Logger) *Importer {
	return &Importer{cfg: cfg, logger: logging.NewComponentLogger(logger, "library")}
}

// Import copies epubPath into <base>/<stem>/epub (when enabled) and extracts it
// into <base>/<stem>/extracted. An existing extraction is replaced only when
// library.overwrite_extracted is set.
func (i *Importer) Import(ctx context.Context, epubPath string) (ImportResult, error) {
	source, err := filepath.Abs(epubPath)
	if err != nil {
		return ImportResult{}, fmt.Errorf("resolve %s: %w", epubPath, err)
	}
	if !strings.EqualFold(filepath.Ext(source), ".epub") {
		return ImportResult{}, services.Wrap(services.ErrValidation, "import", "validate", fmt.Sprintf("input must be an .epub file: %s", source), nil)
	}
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ImportResult{}, services.Wrap(services.ErrNotFound, "import", "validate", fmt.Sprintf("epub not found at %s", source), err)
		}
		return ImportResult{}, fmt.Errorf("stat %s: %w", source, err)
	}
	if info.IsDir() {
		return ImportResult{}, services.Wrap(services.ErrValidation, "import", "validate", fmt.Sprintf("%s is a directory", source), nil)
	}

	layout := NewLayout(i.cfg.Paths.BaseDir, StemFor(source, i.cfg.Library.SlugifyStem))
	result := ImportResult{Layout: layout}
	if err := layout.Ensure(); err != nil {
		return result, err
	}

	archive := source
	if i.cfg.Library.CopyEPUB {
		target := layout.EPUBPath()
		if !samePath(source, target) {
			if err := fileutil.CopyFileVerified(source, target); err != nil {
				return result, fmt.Errorf("copy epub to %s: %w", target, err)
			}
			result.Copied = true
			i.logger.Debug("epub copied", logging.String("target", target))
		}
		archive = target
	}

	extracted := layout.ExtractedDir()
	if populated(extracted) {
		if !i.cfg.Library.OverwriteExtracted {
			i.logger.Info("extracted directory exists; keeping it", logging.String("path", extracted))
			return result, nil
		}
		if err := os.RemoveAll(extracted); err != nil {
			return result, fmt.Errorf("clear %s: %w", extracted, err)
		}
	}
	if err := Extract(ctx, archive, extracted); err != nil {
		return result, err
	}
	result.Extracted = true
	i.logger.Info("epub imported",
		logging.String(logging.FieldEventType, "book_imported"),
		logging.String("stem", layout.Stem),
		logging.String("extracted", extracted),
	)
	return result, nil
}

func samePath(a, b string) bool {
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func populated(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
