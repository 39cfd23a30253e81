package registry

import (
	"database/sql"
	"errors"
	"time"
)

func scanBook(scanner interface{ Scan(dest ...any) error }) (*Book, error) {
	var (
		stem          string
		sourcePath    sql.NullString
		title         sql.NullString
		author        sql.NullString
		statusStr     string
		stage         sql.NullString
		chapterCount  sql.NullInt64
		resolvedCount sql.NullInt64
		outputPath    sql.NullString
		lastRunID     sql.NullString
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)
	if err := scanner.Scan(
		&stem,
		&sourcePath,
		&title,
		&author,
		&statusStr,
		&stage,
		&chapterCount,
		&resolvedCount,
		&outputPath,
		&lastRunID,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	book := &Book{
		Stem:          stem,
		SourcePath:    sourcePath.String,
		Title:         title.String,
		Author:        author.String,
		Status:        Status(statusStr),
		Stage:         stage.String,
		ChapterCount:  int(chapterCount.Int64),
		ResolvedCount: int(resolvedCount.Int64),
		OutputPath:    outputPath.String,
		LastRunID:     lastRunID.String,
		ErrorMessage:  errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		book.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		book.UpdatedAt = updated
	}
	return book, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := range count {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
