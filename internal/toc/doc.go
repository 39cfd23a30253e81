// Package toc turns an EPUB navigation document into the chapter manifest.
//
// Navigation points are visited in document order and numbered from 1,
// including points that are later dropped. A point survives only when its
// title starts with "<n>." and it is not back matter or a font resource.
// The stored title has the numeric prefix removed.
//
// Both EPUB 2 NCX documents and EPUB 3 XHTML nav documents are accepted.
package toc
