package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"epub2audio/internal/config"
	"epub2audio/internal/library"
	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
	"epub2audio/internal/markdown"
	"epub2audio/internal/services"
	"epub2audio/internal/textutil"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Request bounds the chapters to narrate. Nil bounds default to the lowest
// and highest chapter numbers that have Markdown.
type Request struct {
	Start *int
	End   *int
}

// Result lists the outcome per chapter.
type Result struct {
	Start   int
	End     int
	Written []string
	Skipped []string
}

// Narrator runs the speech and transcode commands.
type Narrator struct {
	cfg      *config.Config
	reporter logging.Reporter
	run      commandRunner
}

// New constructs a narrator from configuration.
func New(cfg *config.Config, reporter logging.Reporter) *Narrator {
	if reporter == nil {
		reporter = logging.Discard()
	}
	return &Narrator{cfg: cfg, reporter: reporter, run: defaultCommandRunner}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (n *Narrator) WithCommandRunner(r commandRunner) {
	if n != nil && r != nil {
		n.run = r
	}
}

// AudioFileName returns "<n>. <title><ext>" with unsafe characters removed.
func AudioFileName(number int, title, ext string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Chapter " + strconv.Itoa(number)
	}
	return textutil.SanitizeFileName(fmt.Sprintf("%d. %s", number, title)) + ext
}

// Narrate synthesizes every chapter in range that has Markdown.
func (n *Narrator) Narrate(ctx context.Context, layout library.Layout, req Request) (Result, error) {
	m, err := manifest.Load(layout.ManifestPath())
	if err != nil {
		return Result{}, err
	}

	chapters := numberedEntries(m)
	if len(chapters) == 0 {
		n.reporter.Warning("manifest has no numbered chapters", logging.String("manifest", layout.ManifestPath()))
		return Result{}, nil
	}
	start, end, err := narrationRange(chapters, req)
	if err != nil {
		return Result{}, err
	}
	result := Result{Start: start, End: end}
	n.reporter.Event("narration range",
		logging.Int("start", start),
		logging.Int("end", end),
	)

	recorded := make(map[int]string)
	runErr := n.narrateChapters(ctx, layout, chapters, &result, recorded)
	if len(recorded) > 0 {
		if err := n.record(ctx, layout, recorded); err != nil {
			return result, errors.Join(runErr, err)
		}
	}
	return result, runErr
}

// narrateChapters fills recorded with every chapter audio that exists when it
// returns, including the ones written before a failure.
func (n *Narrator) narrateChapters(ctx context.Context, layout library.Layout, chapters []manifest.Entry, result *Result, recorded map[int]string) error {
	for _, entry := range chapters {
		number := entry.Number()
		if number < result.Start || number > result.End || !entry.HasMarkdown() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		source := resolveBookPath(layout, *entry.Markdown)
		data, err := os.ReadFile(source)
		if err != nil {
			n.reporter.Warning("markdown missing", logging.Int("order", entry.Order), logging.String("markdown", source))
			continue
		}
		text := markdown.NarrationText(string(data))
		if text == "" {
			n.reporter.Warning("no speakable content", logging.Int("order", entry.Order), logging.String("markdown", source))
			continue
		}

		target := n.outputPath(layout, entry)
		if n.shouldSkip(target) {
			result.Skipped = append(result.Skipped, target)
			recorded[entry.Order] = target
			continue
		}
		if err := n.synthesize(ctx, text, target); err != nil {
			return services.Wrap(services.ErrExternalTool, "narration", "synthesize",
				fmt.Sprintf("chapter %d (%s)", number, target), err)
		}
		n.reporter.Event("chapter narrated", logging.Int("chapter", number), logging.String("audio", target))
		result.Written = append(result.Written, target)
		recorded[entry.Order] = target
	}
	return nil
}

func (n *Narrator) outputPath(layout library.Layout, entry manifest.Entry) string {
	if entry.HasAudio() {
		return resolveBookPath(layout, *entry.Audio)
	}
	ext := n.cfg.Narration.OutputExtension
	return filepath.Join(layout.AudioDir(), AudioFileName(entry.Number(), entry.ChapterTitle, ext))
}

func (n *Narrator) shouldSkip(target string) bool {
	if _, err := os.Stat(target); err != nil {
		return false
	}
	return n.cfg.Narration.SkipExisting && !n.cfg.Narration.Overwrite
}

func (n *Narrator) synthesize(ctx context.Context, text, target string) error {
	if timeout := n.cfg.NarrationTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}
	tmpDir, err := os.MkdirTemp(filepath.Dir(target), ".narrate-*")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	textPath := filepath.Join(tmpDir, "narration.txt")
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write narration text: %w", err)
	}
	rawPath := filepath.Join(tmpDir, "narration.aiff")
	if err := n.run(ctx, n.cfg.Narration.Command, speechArgs(n.cfg.Narration.Voice, rawPath, textPath)...); err != nil {
		return timeoutAware(ctx, fmt.Errorf("%s: %w", n.cfg.Narration.Command, err))
	}

	ext := strings.ToLower(filepath.Ext(target))
	if ext == ".aiff" || ext == ".aif" {
		return os.Rename(rawPath, target)
	}
	encoded := filepath.Join(tmpDir, "narration"+ext)
	if err := n.run(ctx, n.cfg.FFmpegBinary(), transcodeArgs(rawPath, encoded, n.cfg.Narration.Bitrate)...); err != nil {
		return timeoutAware(ctx, fmt.Errorf("transcode: %w", err))
	}
	if err := os.Rename(encoded, target); err != nil {
		return fmt.Errorf("move narration into place: %w", err)
	}
	return nil
}

func (n *Narrator) record(ctx context.Context, layout library.Layout, recorded map[int]string) error {
	return manifest.Update(ctx, layout.ManifestPath(), func(m *manifest.Manifest) error {
		for i := range m.Entries {
			path, ok := recorded[m.Entries[i].Order]
			if !ok {
				continue
			}
			if rel, err := filepath.Rel(layout.Root(), path); err == nil && !strings.HasPrefix(rel, "..") {
				path = filepath.ToSlash(rel)
			}
			m.Entries[i].Audio = manifest.StringPtr(path)
		}
		return nil
	})
}

func speechArgs(voice, output, textPath string) []string {
	var args []string
	if voice = strings.TrimSpace(voice); voice != "" {
		args = append(args, "-v", voice)
	}
	return append(args, "-o", output, "-f", textPath)
}

func transcodeArgs(input, output, bitrate string) []string {
	args := []string{"-y", "-i", input}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".m4a", ".m4b", ".mp4":
		if bitrate == "" {
			bitrate = "192k"
		}
		args = append(args, "-c:a", "aac", "-b:a", bitrate, "-movflags", "+faststart")
	}
	return append(args, output)
}

// numberedEntries returns entries with a chapter number sorted by number,
// keeping manifest order among equal numbers.
func numberedEntries(m manifest.Manifest) []manifest.Entry {
	var out []manifest.Entry
	for _, entry := range m.Entries {
		if entry.ChapterNumber != nil {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number() < out[j].Number() })
	return out
}

func narrationRange(chapters []manifest.Entry, req Request) (int, int, error) {
	known := make(map[int]bool, len(chapters))
	lo, hi := 0, 0
	haveMarkdown := false
	for _, entry := range chapters {
		known[entry.Number()] = true
		if !entry.HasMarkdown() {
			continue
		}
		if !haveMarkdown || entry.Number() < lo {
			lo = entry.Number()
		}
		if !haveMarkdown || entry.Number() > hi {
			hi = entry.Number()
		}
		haveMarkdown = true
	}
	if !haveMarkdown {
		lo, hi = chapters[0].Number(), chapters[len(chapters)-1].Number()
	}
	if req.Start != nil {
		lo = *req.Start
	}
	if req.End != nil {
		hi = *req.End
	}
	if !known[lo] {
		return 0, 0, services.Wrap(services.ErrValidation, "narration", "range", fmt.Sprintf("start chapter %d not in manifest", lo), nil)
	}
	if !known[hi] {
		return 0, 0, services.Wrap(services.ErrValidation, "narration", "range", fmt.Sprintf("end chapter %d not in manifest", hi), nil)
	}
	if lo > hi {
		return 0, 0, services.Wrap(services.ErrValidation, "narration", "range", fmt.Sprintf("start chapter %d after end chapter %d", lo, hi), nil)
	}
	return lo, hi, nil
}

func resolveBookPath(layout library.Layout, path string) string {
	path = filepath.FromSlash(strings.TrimSpace(path))
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(layout.Root(), path)
}

func timeoutAware(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(services.ErrTimeout, err)
	}
	return err
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
