package assembly

import (
	"context"
	"fmt"
	"math"

	"github.com/simonhull/audiometa"

	"epub2audio/internal/config"
	"epub2audio/internal/deps"
	"epub2audio/internal/media/ffprobe"
)

// Verification describes what a finished audiobook actually contains.
type Verification struct {
	ChapterCount int
	DurationMs   int64
	HasCover     bool
}

// Verifier inspects an assembled audiobook.
type Verifier interface {
	Verify(ctx context.Context, path string) (Verification, error)
}

// NativeVerifier reads the container with audiometa.
type NativeVerifier struct{}

func (NativeVerifier) Verify(ctx context.Context, path string) (Verification, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return Verification{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	result := Verification{
		ChapterCount: len(file.Chapters),
		DurationMs:   ffprobe.Milliseconds(file.Audio.Duration.Seconds()),
	}
	if artwork, err := file.ExtractArtwork(); err == nil && len(artwork) > 0 {
		result.HasCover = true
	}
	return result, nil
}

// FFprobeVerifier inspects the container with ffprobe.
type FFprobeVerifier struct {
	Binary string
	Run    ffprobe.Runner
}

func (v FFprobeVerifier) Verify(ctx context.Context, path string) (Verification, error) {
	result, err := ffprobe.Inspect(ctx, v.Run, v.Binary, path)
	if err != nil {
		return Verification{}, err
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) {
		seconds = 0
	}
	return Verification{
		ChapterCount: len(result.Chapters),
		DurationMs:   ffprobe.Milliseconds(seconds),
		HasCover:     result.HasAttachedPicture(),
	}, nil
}

// NewVerifier picks the verifier matching the configured probe backend.
func NewVerifier(cfg *config.Config) Verifier {
	if cfg != nil && cfg.Audio.ProbeBackend == config.ProbeBackendNative {
		return NativeVerifier{}
	}
	binary := ""
	if cfg != nil {
		binary = deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	return FFprobeVerifier{Binary: binary}
}

// Mismatches compares a verification against the expected chapter layout
// and returns a description of every difference.
func (v Verification) Mismatches(boundaries []Boundary, toleranceMs int64) []string {
	var problems []string
	if v.ChapterCount != len(boundaries) {
		problems = append(problems, fmt.Sprintf("chapter count %d, expected %d", v.ChapterCount, len(boundaries)))
	}
	var expected int64
	if n := len(boundaries); n > 0 {
		expected = boundaries[n-1].EndMs
	}
	if delta := v.DurationMs - expected; delta > toleranceMs || delta < -toleranceMs {
		problems = append(problems, fmt.Sprintf("duration %dms, expected %dms", v.DurationMs, expected))
	}
	if !v.HasCover {
		problems = append(problems, "cover image missing")
	}
	return problems
}
