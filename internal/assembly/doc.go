// Package assembly turns reconciled chapter audio into a single chaptered
// audiobook.
//
// The pure pieces (chapter boundaries, chapter titles, ffmetadata escaping
// and rendering, concat lists, humanized stems) are exposed individually.
// Assembler ties them together: it loads the manifest, reconciles audio,
// probes durations, writes txt/concat.txt and txt/chapters.txt, and hands
// the result to ffmpeg together with the cover image.
package assembly
