package registry

import (
	"context"
	"fmt"
)

// SetUnresolved replaces the unresolved set for a book and records the
// reconciliation counts alongside it.
func (s *Store) SetUnresolved(ctx context.Context, stem string, chapterCount, resolvedCount int, entries []UnresolvedEntry) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin unresolved tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`UPDATE books SET chapter_count = ?, resolved_count = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE stem = ?`,
			chapterCount, resolvedCount, stem,
		)
		if err != nil {
			return fmt.Errorf("update counts: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("book %s is not registered", stem)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM unresolved_entries WHERE book_stem = ?`, stem); err != nil {
			return fmt.Errorf("clear unresolved: %w", err)
		}
		for _, entry := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO unresolved_entries (book_stem, entry_order, chapter_number, chapter_title, chapter_path) VALUES (?, ?, ?, ?, ?)`,
				stem, entry.Order, entry.ChapterNumber, entry.ChapterTitle, entry.ChapterPath,
			); err != nil {
				return fmt.Errorf("insert unresolved entry %d: %w", entry.Order, err)
			}
		}
		return tx.Commit()
	})
}

// Unresolved returns the stored unresolved set for a book in manifest order.
func (s *Store) Unresolved(ctx context.Context, stem string) ([]UnresolvedEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_order, chapter_number, chapter_title, chapter_path FROM unresolved_entries WHERE book_stem = ? ORDER BY entry_order`,
		stem,
	)
	if err != nil {
		return nil, fmt.Errorf("query unresolved: %w", err)
	}
	defer rows.Close()

	var entries []UnresolvedEntry
	for rows.Next() {
		var entry UnresolvedEntry
		if err := rows.Scan(&entry.Order, &entry.ChapterNumber, &entry.ChapterTitle, &entry.ChapterPath); err != nil {
			return nil, fmt.Errorf("scan unresolved: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
