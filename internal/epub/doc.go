// Package epub reads the parts of an extracted EPUB tree that the pipeline
// needs: the container's package document (title, creators, manifest, spine)
// and the location of the navigation document.
//
// It works on directories produced by library.Import, not on archives.
package epub
