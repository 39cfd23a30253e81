// Package reconcile pairs manifest entries with audio files on disk.
//
// Each entry is resolved by an ordered list of strategies: the stored audio
// path, the chapter number, the navigation order and finally the normalized
// title. Under the exclusive consumption policy a file is assigned to at most
// one entry; stored paths are claimed before any index lookup so an explicit
// assignment is never stolen by a numeric guess. The shared policy allows a
// file to back several entries and reports each duplicate.
package reconcile
