package assembly

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var metadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", "\\\n",
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
)

// EscapeMetadata escapes the characters reserved by the ffmetadata format.
func EscapeMetadata(value string) string {
	return metadataEscaper.Replace(value)
}

// BookMetadata is the title and optional author written to the container.
type BookMetadata struct {
	Title  string
	Author string
}

// WriteFFMetadata renders an ffmetadata document with one [CHAPTER] record
// per boundary, timed in milliseconds.
func WriteFFMetadata(w io.Writer, meta BookMetadata, boundaries []Boundary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, ";FFMETADATA1")
	fmt.Fprintf(bw, "title=%s\n", EscapeMetadata(meta.Title))
	if author := strings.TrimSpace(meta.Author); author != "" {
		escaped := EscapeMetadata(author)
		fmt.Fprintf(bw, "artist=%s\n", escaped)
		fmt.Fprintf(bw, "album_artist=%s\n", escaped)
	}
	for _, boundary := range boundaries {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "[CHAPTER]")
		fmt.Fprintln(bw, "TIMEBASE=1/1000")
		fmt.Fprintf(bw, "START=%d\n", boundary.StartMs)
		fmt.Fprintf(bw, "END=%d\n", boundary.EndMs)
		fmt.Fprintf(bw, "title=%s\n", EscapeMetadata(boundary.Title))
	}
	return bw.Flush()
}

// WriteConcatList renders an ffmpeg concat demuxer list. Paths are made
// absolute and single quotes are escaped for the demuxer's quoting rules.
func WriteConcatList(w io.Writer, paths []string) error {
	bw := bufio.NewWriter(w)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		fmt.Fprintf(bw, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return bw.Flush()
}
