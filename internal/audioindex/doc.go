// Package audioindex scans a book's audio directory and indexes the files
// by the chapter number and normalized title embedded in their names.
//
// Names such as "12. The Awakening.m4a", "02 - The Fall.mp3" or
// "7_interlude.m4b" are recognised. Files without a leading number are
// indexed by title only. Within each key the first file in sorted name
// order wins, so rebuilding the index over the same directory always yields
// the same answer.
package audioindex
