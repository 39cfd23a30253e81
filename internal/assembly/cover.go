package assembly

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"epub2audio/internal/epub"
	"epub2audio/internal/services"
)

// DefaultCoverNames are searched recursively when no names are configured.
var DefaultCoverNames = []string{"cover.jpg", "cover.png", "cover.jpeg"}

// FindCover locates the cover image of an extracted book: cover.jpeg at the
// root, then each of names anywhere in the tree, then the image the package
// document declares as its cover. pkg may be nil.
func FindCover(extractedDir string, names []string, pkg *epub.Package) (string, error) {
	if len(names) == 0 {
		names = DefaultCoverNames
	}
	root := filepath.Join(extractedDir, "cover.jpeg")
	if isFile(root) {
		return root, nil
	}
	for _, name := range names {
		found, err := findNamed(extractedDir, name)
		if err != nil {
			return "", err
		}
		if found != "" {
			return found, nil
		}
	}
	if pkg != nil {
		if item, ok := pkg.CoverItem(); ok {
			if candidate := pkg.Resolve(item.Href); candidate != "" && isFile(candidate) {
				return candidate, nil
			}
		}
	}
	return "", services.Wrap(services.ErrNotFound, "assembly", "find cover", fmt.Sprintf("cover image not found under %s", extractedDir), nil)
}

func findNamed(dir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), name) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s for %s: %w", dir, name, err)
	}
	return found, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
