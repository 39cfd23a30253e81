package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultBinary is used when no binary is configured.
const DefaultBinary = "ffprobe"

// Runner executes name with args and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with exec.CommandContext. Standard error is
// folded into the returned error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams  []Stream  `json:"streams"`
	Format   Format    `json:"format"`
	Chapters []Chapter `json:"chapters"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Duration    string            `json:"duration"`
	SampleRate  string            `json:"sample_rate"`
	Channels    int               `json:"channels"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Chapter is one chapter record from -show_chapters.
type Chapter struct {
	ID        int64             `json:"id"`
	TimeBase  string            `json:"time_base"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Tags      map[string]string `json:"tags"`
}

// Title returns the chapter's title tag.
func (c Chapter) Title() string {
	return c.Tags["title"]
}

// Inspect executes ffprobe against path and decodes the JSON response.
func Inspect(ctx context.Context, run Runner, binary string, path string) (Result, error) {
	binary, path, err := prepare(binary, path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	if run == nil {
		run = ExecRunner
	}

	output, err := run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-show_chapters", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Duration queries only the container duration of path, in seconds.
func Duration(ctx context.Context, run Runner, binary string, path string) (float64, error) {
	binary, path, err := prepare(binary, path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	if run == nil {
		run = ExecRunner
	}

	output, err := run(ctx, binary, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	line := firstLine(string(output))
	if line == "" {
		return 0, errors.New("ffprobe duration: empty output")
	}
	value := parseFloat(line)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("ffprobe duration: unparseable output %q", strings.TrimSpace(string(output)))
	}
	return value, nil
}

// Milliseconds converts seconds to a non-negative millisecond count, rounding
// to the nearest millisecond.
func Milliseconds(seconds float64) int64 {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}

// HasAttachedPicture reports whether any stream is flagged attached_pic.
func (r Result) HasAttachedPicture() bool {
	for _, stream := range r.Streams {
		if stream.Disposition["attached_pic"] == 1 {
			return true
		}
	}
	return false
}

// DurationSeconds returns the container duration in seconds, 0 when absent
// and NaN when unparseable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

func prepare(binary, path string) (string, string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	if strings.TrimSpace(path) == "" {
		return "", "", errors.New("empty path")
	}
	return binary, path, nil
}

func firstLine(output string) string {
	output = strings.TrimSpace(output)
	if idx := strings.IndexByte(output, '\n'); idx >= 0 {
		return strings.TrimSpace(output[:idx])
	}
	return output
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
