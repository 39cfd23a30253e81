package assembly

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"epub2audio/internal/logging"
	"epub2audio/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// MuxRequest names the inputs of a single ffmpeg pass.
type MuxRequest struct {
	ConcatPath   string
	MetadataPath string
	CoverPath    string
	OutputPath   string
}

// Muxer concatenates chapter audio, applies ffmetadata chapters and attaches
// the cover in one ffmpeg invocation without re-encoding.
type Muxer struct {
	binary   string
	timeout  time.Duration
	run      commandRunner
	reporter logging.Reporter
}

// NewMuxer constructs a muxer for the given ffmpeg binary.
func NewMuxer(binary string, timeout time.Duration, reporter logging.Reporter) *Muxer {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if reporter == nil {
		reporter = logging.Discard()
	}
	return &Muxer{
		binary:   binary,
		timeout:  timeout,
		run:      defaultCommandRunner,
		reporter: reporter,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r commandRunner) {
	if m != nil && r != nil {
		m.run = r
	}
}

// Mux writes the audiobook to a temporary file beside OutputPath and renames
// it into place once ffmpeg succeeds.
func (m *Muxer) Mux(ctx context.Context, req MuxRequest) error {
	if m == nil {
		return errors.New("muxer not initialized")
	}
	inputs := []struct{ label, path string }{
		{"concat list", req.ConcatPath},
		{"metadata", req.MetadataPath},
		{"cover", req.CoverPath},
	}
	for _, input := range inputs {
		if _, err := os.Stat(input.path); err != nil {
			return services.Wrap(services.ErrNotFound, "assembly", "mux", fmt.Sprintf("%s not found at %s", input.label, input.path), err)
		}
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "assembly", "mux", "output path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmpPath := filepath.Join(filepath.Dir(req.OutputPath), ".mux-"+filepath.Base(req.OutputPath))
	args := buildMuxArgs(req, tmpPath)

	runCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.reporter.Event("running ffmpeg",
		logging.String("output", req.OutputPath),
		logging.String("cover", req.CoverPath),
	)
	if err := m.run(runCtx, m.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = errors.Join(services.ErrTimeout, err)
		}
		return services.Wrap(services.ErrExternalTool, "assembly", "mux", fmt.Sprintf("ffmpeg failed for %s", req.OutputPath), err)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "assembly", "mux", "ffmpeg did not produce output", err)
	}
	if err := os.Rename(tmpPath, req.OutputPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move audiobook into place: %w", err)
	}
	return nil
}

func buildMuxArgs(req MuxRequest, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", req.ConcatPath,
		"-f", "ffmetadata",
		"-i", req.MetadataPath,
		"-i", req.CoverPath,
		"-map", "0:a",
		"-map", "2:v",
		"-c", "copy",
		"-map_metadata", "1",
		"-disposition:v:0", "attached_pic",
		"-movflags", "+faststart",
		outputPath,
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
