package library

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"epub2audio/internal/services"
)

// maxEntrySize bounds a single decompressed archive member.
const maxEntrySize int64 = 512 * 1024 * 1024

// Extract unpacks archivePath into dest. Members whose paths escape dest are
// rejected.
func Extract(ctx context.Context, archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if reader != nil {
			_ = reader.Close()
		}
		return services.Wrap(services.ErrValidation, "import", "extract", fmt.Sprintf("archive %s contains members outside its root", archivePath), err)
	}
	if err != nil {
		return services.Wrap(services.ErrParse, "import", "extract", fmt.Sprintf("open archive %s", archivePath), err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := extractMember(file, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractMember(file *zip.File, dest string) error {
	name := path.Clean(strings.ReplaceAll(file.Name, "\\", "/"))
	if strings.HasPrefix(name, "/") || name == ".." || strings.HasPrefix(name, "../") {
		return services.Wrap(services.ErrValidation, "import", "extract", fmt.Sprintf("archive member %q escapes the extraction directory", file.Name), nil)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}

	in, err := file.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", file.Name, err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	written, err := io.Copy(out, io.LimitReader(in, maxEntrySize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if written > maxEntrySize {
		_ = os.Remove(target)
		return services.Wrap(services.ErrValidation, "import", "extract", fmt.Sprintf("archive member %s exceeds %d bytes", file.Name, maxEntrySize), nil)
	}
	return nil
}
