// Package manifest models the per-book chapter manifest (json/toc.json).
//
// On disk the manifest is a JSON array of chapter entries keyed by
// order, chapterNumber, chapterTitle, chapterPath and the optional markdown
// and audio fields owned by later stages. Keys this package does not know are
// carried through unchanged. Writes hold an exclusive lock on
// <manifest>.lock and replace the file atomically.
package manifest
