// Package narration synthesizes one audio file per manifest chapter.
//
// Each chapter's Markdown is spoken by an external text-to-speech command
// into a temporary AIFF file, transcoded with ffmpeg to the configured
// extension, and moved into audio/ as "<n>. <title><ext>". The resulting
// book-relative path is recorded in the manifest's audio field so
// reconciliation resolves it through the stored-path tier.
package narration
