package registry_test

import (
	"context"
	"testing"

	"epub2audio/internal/registry"
	"epub2audio/internal/testsupport"
)

func TestOpenCreatesSchemaAndUpsertRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "the_fall", "The Fall")
	if book.CreatedAt.IsZero() || book.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %#v", book)
	}
	if book.Status != registry.StatusPending {
		t.Fatalf("unexpected status: %q", book.Status)
	}

	book.Author = "Ann Leckie"
	book.Status = registry.StatusIndexed
	book.Stage = "toc"
	book.ChapterCount = 12
	if err := store.Update(ctx, book); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.Get(ctx, "the_fall")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected book to exist")
	}
	if fetched.Author != "Ann Leckie" || fetched.Status != registry.StatusIndexed || fetched.ChapterCount != 12 {
		t.Fatalf("unexpected fetched book: %#v", fetched)
	}
	if !fetched.CreatedAt.Equal(book.CreatedAt) {
		t.Fatalf("created_at changed on update: %v -> %v", book.CreatedAt, fetched.CreatedAt)
	}
}

func TestGetMissingBookReturnsNil(t *testing.T) {
	store := testsupport.MustOpenRegistry(t, testsupport.NewConfig(t))

	book, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if book != nil {
		t.Fatalf("expected nil book, got %#v", book)
	}
}

func TestUpsertRejectsInvalidInput(t *testing.T) {
	store := testsupport.MustOpenRegistry(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.Upsert(ctx, &registry.Book{}); err == nil {
		t.Fatal("expected error for empty stem")
	}
	if _, err := store.Upsert(ctx, &registry.Book{Stem: "x", Status: "exploded"}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenRegistry(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewBook(t, store, "b_book", "B")
	a := testsupport.NewBook(t, store, "a_book", "A")
	a.SetFailed(registry.StatusReview, "  missing toc  ")
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].Stem != "a_book" || all[1].Stem != "b_book" {
		t.Fatalf("unexpected list order: %#v", all)
	}

	review, err := store.List(ctx, registry.StatusReview, registry.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(review) != 1 || review[0].Stem != "a_book" || review[0].ErrorMessage != "missing toc" {
		t.Fatalf("unexpected review list: %#v", review)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[registry.StatusPending] != 1 || stats[registry.StatusReview] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestSetUnresolvedReplacesSet(t *testing.T) {
	store := testsupport.MustOpenRegistry(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewBook(t, store, "book", "Book")

	first := []registry.UnresolvedEntry{
		{Order: 4, ChapterNumber: 3, ChapterTitle: "3. Three", ChapterPath: "c3.xhtml"},
		{Order: 2, ChapterNumber: 1, ChapterTitle: "1. One", ChapterPath: "c1.xhtml"},
	}
	if err := store.SetUnresolved(ctx, "book", 5, 3, first); err != nil {
		t.Fatalf("SetUnresolved failed: %v", err)
	}
	book, err := store.Get(ctx, "book")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if book.ChapterCount != 5 || book.ResolvedCount != 3 {
		t.Fatalf("unexpected counts: %d/%d", book.ResolvedCount, book.ChapterCount)
	}
	if len(book.Unresolved) != 2 || book.Unresolved[0].Order != 2 || book.Unresolved[1].ChapterTitle != "3. Three" {
		t.Fatalf("unexpected unresolved set: %#v", book.Unresolved)
	}

	if err := store.SetUnresolved(ctx, "book", 5, 5, nil); err != nil {
		t.Fatalf("SetUnresolved failed: %v", err)
	}
	entries, err := store.Unresolved(ctx, "book")
	if err != nil {
		t.Fatalf("Unresolved failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected cleared set, got %#v", entries)
	}

	if err := store.SetUnresolved(ctx, "ghost", 1, 0, nil); err == nil {
		t.Fatal("expected error for unregistered book")
	}
}

func TestRemoveCascadesUnresolved(t *testing.T) {
	store := testsupport.MustOpenRegistry(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewBook(t, store, "book", "Book")
	if err := store.SetUnresolved(ctx, "book", 1, 0, []registry.UnresolvedEntry{{Order: 1, ChapterNumber: 1}}); err != nil {
		t.Fatalf("SetUnresolved failed: %v", err)
	}

	removed, err := store.Remove(ctx, "book")
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	entries, err := store.Unresolved(ctx, "book")
	if err != nil {
		t.Fatalf("Unresolved failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected cascade delete, got %#v", entries)
	}
	removed, err = store.Remove(ctx, "book")
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v", removed, err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := registry.ParseStatus(" Narrated "); !ok || status != registry.StatusNarrated {
		t.Fatalf("ParseStatus = %q, %v", status, ok)
	}
	if _, ok := registry.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if !registry.StatusAssembling.IsProcessing() || registry.StatusCompleted.IsProcessing() {
		t.Fatal("unexpected processing classification")
	}
}
