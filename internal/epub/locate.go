package epub

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"epub2audio/internal/services"
)

const (
	containerPath = "META-INF/container.xml"
	ncxFileName   = "toc.ncx"
)

type containerXML struct {
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// FindPackage locates the package document of an extracted EPUB: the
// container's rootfile first, then the first *.opf file in lexical walk order.
func FindPackage(extractedDir string) (string, error) {
	if data, err := os.ReadFile(filepath.Join(extractedDir, filepath.FromSlash(containerPath))); err == nil {
		var container containerXML
		if err := NewXMLDecoder(data).Decode(&container); err == nil {
			var fallback string
			for _, rf := range container.RootFiles {
				full := strings.TrimSpace(rf.FullPath)
				if full == "" {
					continue
				}
				candidate := filepath.Join(extractedDir, filepath.FromSlash(full))
				if !fileExists(candidate) {
					continue
				}
				if strings.EqualFold(strings.TrimSpace(rf.MediaType), "application/oebps-package+xml") {
					return candidate, nil
				}
				if fallback == "" {
					fallback = candidate
				}
			}
			if fallback != "" {
				return fallback, nil
			}
		}
	}

	found, err := findFirst(extractedDir, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), ".opf")
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", services.Wrap(services.ErrNotFound, "epub", "find package", fmt.Sprintf("no package document under %s", extractedDir), nil)
	}
	return found, nil
}

// FindNavigation locates the navigation document: toc.ncx at the root, then
// anywhere in the tree, then the NCX named by the package spine, then the
// package's EPUB 3 nav item.
func FindNavigation(extractedDir string) (string, error) {
	if info, err := os.Stat(extractedDir); err != nil || !info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "epub", "find navigation", fmt.Sprintf("extracted directory not found at %s", extractedDir), err)
	}

	root := filepath.Join(extractedDir, ncxFileName)
	if fileExists(root) {
		return root, nil
	}
	found, err := findFirst(extractedDir, func(name string) bool {
		return name == ncxFileName
	})
	if err != nil {
		return "", err
	}
	if found != "" {
		return found, nil
	}

	if opfPath, err := FindPackage(extractedDir); err == nil {
		if pkg, err := ParsePackage(opfPath); err == nil {
			if item, ok := pkg.NCXItem(); ok {
				if candidate := pkg.Resolve(item.Href); fileExists(candidate) {
					return candidate, nil
				}
			}
			if item, ok := pkg.NavItem(); ok {
				if candidate := pkg.Resolve(item.Href); fileExists(candidate) {
					return candidate, nil
				}
			}
		}
	}
	return "", services.Wrap(services.ErrNotFound, "epub", "find navigation", fmt.Sprintf("%s not found under %s", ncxFileName, extractedDir), nil)
}

func findFirst(dir string, match func(name string) bool) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !match(d.Name()) {
			return nil
		}
		found = p
		return fs.SkipAll
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return "", fmt.Errorf("walk %s: %w", dir, err)
	}
	return found, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
