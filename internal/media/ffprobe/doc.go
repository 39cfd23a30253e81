// Package ffprobe wraps the ffprobe binary.
//
// Inspect decodes the JSON report (streams, format, chapters) used to verify
// assembled audiobooks. Duration runs the lightweight single-value query used
// when probing chapter files. Both accept a Runner so tests can replace the
// external binary.
package ffprobe
