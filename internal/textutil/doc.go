// Package textutil provides text helpers shared by the pipeline stages:
// ASCII folding for fuzzy title comparison, stem slugs for the book layout,
// and filename sanitization for generated audio files.
//
// Folding decomposes accented characters (NFKD) and drops anything outside
// ASCII, so "Café" and "Cafe" compare equal once lowercased.
package textutil
