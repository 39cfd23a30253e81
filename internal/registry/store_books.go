package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const bookColumns = "stem, source_path, title, author, status, stage, chapter_count, resolved_count, output_path, last_run_id, error_message, created_at, updated_at"

// Upsert inserts a book or updates the existing row with the same stem.
// The unresolved set is left untouched; use SetUnresolved for that.
func (s *Store) Upsert(ctx context.Context, book *Book) (*Book, error) {
	if book == nil || strings.TrimSpace(book.Stem) == "" {
		return nil, errors.New("book stem is required")
	}
	if book.Status == "" {
		book.Status = StatusPending
	}
	if _, ok := statusSet[book.Status]; !ok {
		return nil, fmt.Errorf("unknown book status %q", book.Status)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(ctx,
		`INSERT INTO books (`+bookColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(stem) DO UPDATE SET
            source_path = excluded.source_path,
            title = excluded.title,
            author = excluded.author,
            status = excluded.status,
            stage = excluded.stage,
            chapter_count = excluded.chapter_count,
            resolved_count = excluded.resolved_count,
            output_path = excluded.output_path,
            last_run_id = excluded.last_run_id,
            error_message = excluded.error_message,
            updated_at = excluded.updated_at`,
		book.Stem,
		nullableString(book.SourcePath),
		nullableString(book.Title),
		nullableString(book.Author),
		string(book.Status),
		nullableString(book.Stage),
		book.ChapterCount,
		book.ResolvedCount,
		nullableString(book.OutputPath),
		nullableString(book.LastRunID),
		nullableString(book.ErrorMessage),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert book %s: %w", book.Stem, err)
	}
	return s.Get(ctx, book.Stem)
}

// Update persists the scalar fields of an existing book.
func (s *Store) Update(ctx context.Context, book *Book) error {
	if book == nil {
		return errors.New("book is required")
	}
	updated, err := s.Upsert(ctx, book)
	if err != nil {
		return err
	}
	book.CreatedAt = updated.CreatedAt
	book.UpdatedAt = updated.UpdatedAt
	return nil
}

// Get fetches a book by stem. A missing book yields nil without error.
func (s *Store) Get(ctx context.Context, stem string) (*Book, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE stem = ?`, stem)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	unresolved, err := s.Unresolved(ctx, stem)
	if err != nil {
		return nil, err
	}
	book.Unresolved = unresolved
	return book, nil
}

// List returns books ordered by stem, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Book, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + bookColumns + ` FROM books`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY stem`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// Stats counts books per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM books GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("book stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Remove deletes a book and its unresolved set. It reports whether a row existed.
func (s *Store) Remove(ctx context.Context, stem string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM books WHERE stem = ?`, stem)
	if err != nil {
		return false, fmt.Errorf("remove book %s: %w", stem, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
