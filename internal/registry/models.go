package registry

import (
	"strings"
	"time"
)

// Status represents where a book sits in the conversion pipeline.
type Status string

const (
	StatusPending     Status = "pending"
	StatusImporting   Status = "importing"
	StatusImported    Status = "imported"
	StatusIndexing    Status = "indexing"
	StatusIndexed     Status = "indexed"
	StatusConverting  Status = "converting"
	StatusConverted   Status = "converted"
	StatusNarrating   Status = "narrating"
	StatusNarrated    Status = "narrated"
	StatusReconciling Status = "reconciling"
	StatusReconciled  Status = "reconciled"
	StatusAssembling  Status = "assembling"
	StatusCompleted   Status = "completed"
	StatusReview      Status = "review"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusImporting,
	StatusImported,
	StatusIndexing,
	StatusIndexed,
	StatusConverting,
	StatusConverted,
	StatusNarrating,
	StatusNarrated,
	StatusReconciling,
	StatusReconciled,
	StatusAssembling,
	StatusCompleted,
	StatusReview,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusImporting:   {},
	StatusIndexing:    {},
	StatusConverting:  {},
	StatusNarrating:   {},
	StatusReconciling: {},
	StatusAssembling:  {},
}

// ParseStatus attempts to map a string into a known status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// AllStatuses returns a copy of every known status in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsProcessing reports whether a stage is currently working on the book.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// UnresolvedEntry is a manifest entry that reconciliation could not match to audio.
type UnresolvedEntry struct {
	Order         int
	ChapterNumber int
	ChapterTitle  string
	ChapterPath   string
}

// Book is one registered EPUB and its pipeline state.
type Book struct {
	Stem          string
	SourcePath    string
	Title         string
	Author        string
	Status        Status
	Stage         string
	ChapterCount  int
	ResolvedCount int
	Unresolved    []UnresolvedEntry
	OutputPath    string
	LastRunID     string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetFailed records a terminal failure. status is normally StatusFailed or StatusReview.
func (b *Book) SetFailed(status Status, message string) {
	if status == "" {
		status = StatusFailed
	}
	b.Status = status
	b.ErrorMessage = strings.TrimSpace(message)
}

// DisplayTitle prefers the package title and falls back to the stem.
func (b *Book) DisplayTitle() string {
	if title := strings.TrimSpace(b.Title); title != "" {
		return title
	}
	return b.Stem
}
