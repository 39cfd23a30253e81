package assembly

import (
	"path/filepath"
	"strconv"
	"strings"

	"epub2audio/internal/manifest"
)

// Chapter is a resolved manifest entry with its probed duration.
type Chapter struct {
	Entry      manifest.Entry
	AudioPath  string
	DurationMs int64
}

// Boundary is one chapter's half-open time range in milliseconds.
type Boundary struct {
	StartMs int64
	EndMs   int64
	Title   string
}

// DurationMs returns the boundary's length.
func (b Boundary) DurationMs() int64 {
	return b.EndMs - b.StartMs
}

// BuildBoundaries accumulates durations in the given order. Each boundary
// starts where the previous one ended; the first starts at zero.
func BuildBoundaries(chapters []Chapter) []Boundary {
	boundaries := make([]Boundary, 0, len(chapters))
	var cursor int64
	for _, chapter := range chapters {
		duration := chapter.DurationMs
		if duration < 0 {
			duration = 0
		}
		boundaries = append(boundaries, Boundary{
			StartMs: cursor,
			EndMs:   cursor + duration,
			Title:   ChapterTitle(chapter.Entry, audioStem(chapter.AudioPath)),
		})
		cursor += duration
	}
	return boundaries
}

// ChapterTitle renders the display title of an entry: "Chapter n: title",
// "Chapter n" when the title is empty, the bare title when there is no
// number, and fallback when both are missing.
func ChapterTitle(entry manifest.Entry, fallback string) string {
	title := strings.TrimSpace(entry.ChapterTitle)
	if entry.ChapterNumber == nil {
		if title == "" {
			return fallback
		}
		return title
	}
	label := "Chapter " + strconv.Itoa(*entry.ChapterNumber)
	if title == "" {
		return label
	}
	return label + ": " + title
}

func audioStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
