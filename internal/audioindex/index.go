package audioindex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"epub2audio/internal/services"
	"epub2audio/internal/textutil"
)

var leadingNumberPattern = regexp.MustCompile(`^\s*(\d+)\s*[.\-–:_)]?\s*(.*)$`)

// File is one indexed audio file.
type File struct {
	Path      string
	Name      string
	Number    int
	HasNumber bool
	Title     string
}

// Index maps chapter numbers and normalized titles to audio files.
type Index struct {
	Dir   string
	Files []File

	byNumber map[int]string
	byTitle  map[string]string
}

// Build indexes the audio files directly under dir whose extension is in
// extensions (case-insensitive). Files listed in exclude are skipped. A
// missing directory yields an empty index.
func Build(dir string, extensions []string, exclude ...string) (Index, error) {
	idx := Index{
		Dir:      dir,
		byNumber: make(map[int]string),
		byTitle:  make(map[string]string),
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return idx, nil
		}
		return idx, services.Wrap(services.ErrConfiguration, "audioindex", "scan", fmt.Sprintf("read audio directory %s", dir), err)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, path := range exclude {
		if path != "" {
			skip[filepath.Clean(path)] = struct{}{}
		}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		if _, ok := skip[filepath.Join(dir, entry.Name())]; ok {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		file := parseName(name)
		file.Path = filepath.Join(dir, name)
		idx.Files = append(idx.Files, file)

		if file.HasNumber {
			if _, taken := idx.byNumber[file.Number]; !taken {
				idx.byNumber[file.Number] = file.Path
			}
		}
		if file.Title != "" {
			if _, taken := idx.byTitle[file.Title]; !taken {
				idx.byTitle[file.Title] = file.Path
			}
		}
	}
	return idx, nil
}

// ByNumber returns the file indexed under chapter number n.
func (i Index) ByNumber(n int) (string, bool) {
	path, ok := i.byNumber[n]
	return path, ok
}

// ByTitle returns the file whose normalized title matches title.
func (i Index) ByTitle(title string) (string, bool) {
	key := textutil.NormalizeTitle(title)
	if key == "" {
		return "", false
	}
	path, ok := i.byTitle[key]
	return path, ok
}

// Len returns the number of indexed files.
func (i Index) Len() int {
	return len(i.Files)
}

func parseName(name string) File {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	file := File{Name: name}
	if match := leadingNumberPattern.FindStringSubmatch(stem); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			file.Number = n
			file.HasNumber = true
			file.Title = textutil.NormalizeTitle(match[2])
			return file
		}
	}
	file.Title = textutil.NormalizeTitle(stem)
	return file
}
