package testsupport

import (
	"context"
	"testing"

	"epub2audio/internal/config"
	"epub2audio/internal/registry"
)

// MustOpenRegistry opens a registry.Store for tests and registers cleanup.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBook registers a pending book for tests using the provided store.
func NewBook(t testing.TB, store *registry.Store, stem, title string) *registry.Book {
	t.Helper()

	book, err := store.Upsert(context.Background(), &registry.Book{Stem: stem, Title: title, Status: registry.StatusPending})
	if err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return book
}
