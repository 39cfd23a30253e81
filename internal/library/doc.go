// Package library owns the per-book directory layout under the configured
// base directory and the import step that brings an EPUB into it.
//
// Each book lives at <base_dir>/<stem>/ with epub/, extracted/, json/,
// markdown/, audio/ and txt/ subdirectories. The stem is the EPUB file name
// without extension, slugified with underscores unless disabled.
package library
