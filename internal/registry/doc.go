// Package registry persists the set of known books in SQLite.
//
// Every imported EPUB gets one row keyed by its storage stem. Stages record
// their status transitions, counts, output paths, and run identifiers here so
// the CLI can report progress across invocations. The unresolved entries of the
// most recent reconciliation are stored as a child set and replaced wholesale
// each time reconciliation runs.
//
// The database holds bookkeeping only; the per-book directory layout remains
// the source of truth for artifacts. Schema changes bump schemaVersion in
// schema.go; users delete registry.db to adopt the new schema.
package registry
