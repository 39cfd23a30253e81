package reconcile

import (
	"os"
	"path/filepath"
	"strings"

	"epub2audio/internal/audioindex"
	"epub2audio/internal/manifest"
)

// Tier names the strategy that produced a match.
type Tier string

const (
	TierStoredPath    Tier = "stored-path"
	TierChapterNumber Tier = "chapter-number"
	TierOrder         Tier = "order"
	TierTitle         Tier = "title"
)

// Lookup is the per-request view a strategy resolves against.
type Lookup struct {
	Index   audioindex.Index
	BookDir string
}

// Strategy proposes an audio file for an entry.
type Strategy struct {
	Tier    Tier
	Resolve func(entry manifest.Entry, lookup Lookup) (string, bool)
}

// DefaultStrategies returns the resolution tiers in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Tier: TierStoredPath, Resolve: StoredPath},
		{Tier: TierChapterNumber, Resolve: ChapterNumber},
		{Tier: TierOrder, Resolve: Order},
		{Tier: TierTitle, Resolve: Title},
	}
}

// StoredPath resolves the entry's recorded audio path when the file exists.
// Relative paths are tried as given, then under the book directory, then
// under the audio directory.
func StoredPath(entry manifest.Entry, lookup Lookup) (string, bool) {
	if !entry.HasAudio() {
		return "", false
	}
	stored := strings.TrimSpace(*entry.Audio)
	if stored == "" {
		return "", false
	}
	candidates := []string{stored}
	if !filepath.IsAbs(stored) {
		if lookup.BookDir != "" {
			candidates = append(candidates, filepath.Join(lookup.BookDir, stored))
		}
		if lookup.Index.Dir != "" {
			candidates = append(candidates, filepath.Join(lookup.Index.Dir, stored))
		}
	}
	for _, candidate := range candidates {
		if isRegularFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// ChapterNumber looks the entry's chapter number up in the index.
func ChapterNumber(entry manifest.Entry, lookup Lookup) (string, bool) {
	if entry.ChapterNumber == nil {
		return "", false
	}
	return lookup.Index.ByNumber(*entry.ChapterNumber)
}

// Order looks the entry's navigation order up in the number index.
func Order(entry manifest.Entry, lookup Lookup) (string, bool) {
	return lookup.Index.ByNumber(entry.Order)
}

// Title looks the entry's normalized title up in the index.
func Title(entry manifest.Entry, lookup Lookup) (string, bool) {
	if strings.TrimSpace(entry.ChapterTitle) == "" {
		return "", false
	}
	return lookup.Index.ByTitle(entry.ChapterTitle)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
