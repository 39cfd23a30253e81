package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"epub2audio/internal/registry"
)

type unresolvedView struct {
	Order         int    `json:"order"`
	ChapterNumber int    `json:"chapterNumber"`
	ChapterTitle  string `json:"chapterTitle"`
	ChapterPath   string `json:"chapterPath"`
}

type bookView struct {
	Stem          string           `json:"stem"`
	Title         string           `json:"title,omitempty"`
	Author        string           `json:"author,omitempty"`
	Status        string           `json:"status"`
	Stage         string           `json:"stage,omitempty"`
	ChapterCount  int              `json:"chapterCount"`
	ResolvedCount int              `json:"resolvedCount"`
	Unresolved    []unresolvedView `json:"unresolved"`
	OutputPath    string           `json:"outputPath,omitempty"`
	SourcePath    string           `json:"sourcePath,omitempty"`
	LastRunID     string           `json:"lastRunId,omitempty"`
	Error         string           `json:"error,omitempty"`
	UpdatedAt     string           `json:"updatedAt,omitempty"`
}

func newBookView(book *registry.Book) bookView {
	view := bookView{
		Stem:          book.Stem,
		Title:         book.Title,
		Author:        book.Author,
		Status:        string(book.Status),
		Stage:         book.Stage,
		ChapterCount:  book.ChapterCount,
		ResolvedCount: book.ResolvedCount,
		Unresolved:    make([]unresolvedView, 0, len(book.Unresolved)),
		OutputPath:    book.OutputPath,
		SourcePath:    book.SourcePath,
		LastRunID:     book.LastRunID,
		Error:         book.ErrorMessage,
	}
	if !book.UpdatedAt.IsZero() {
		view.UpdatedAt = book.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for _, entry := range book.Unresolved {
		view.Unresolved = append(view.Unresolved, unresolvedView(entry))
	}
	return view
}

func buildBookRows(books []*registry.Book) [][]string {
	rows := make([][]string, 0, len(books))
	for _, book := range books {
		rows = append(rows, []string{
			book.Stem,
			book.DisplayTitle(),
			formatStatusLabel(string(book.Status)),
			fmt.Sprintf("%d/%d", book.ResolvedCount, book.ChapterCount),
			formatDisplayTime(book.UpdatedAt),
		})
	}
	return rows
}

func buildStatusRows(stats map[registry.Status]int) [][]string {
	var rows [][]string
	for _, status := range registry.AllStatuses() {
		if count := stats[status]; count > 0 {
			rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(count)})
		}
	}
	return rows
}

func renderUnresolvedTable(out io.Writer, entries []registry.UnresolvedEntry) string {
	sorted := make([]registry.UnresolvedEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	rows := make([][]string, 0, len(sorted))
	for _, entry := range sorted {
		rows = append(rows, []string{
			strconv.Itoa(entry.Order),
			strconv.Itoa(entry.ChapterNumber),
			entry.ChapterTitle,
			entry.ChapterPath,
		})
	}
	return renderTable(out, []string{"Order", "Chapter", "Title", "Path"}, rows, []columnAlignment{alignRight, alignRight, alignLeft, alignLeft})
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02 15:04")
}
