package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"epub2audio/internal/audioindex"
	"epub2audio/internal/config"
	"epub2audio/internal/epub"
	"epub2audio/internal/fileutil"
	"epub2audio/internal/library"
	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
	"epub2audio/internal/media/probe"
	"epub2audio/internal/reconcile"
	"epub2audio/internal/services"
	"epub2audio/internal/textutil"
)

// Request selects the book to assemble.
type Request struct {
	Stem string
	// OutputPath overrides audio/<title><ext>.
	OutputPath string
}

// Result summarizes a finished assembly.
type Result struct {
	OutputPath     string
	ConcatPath     string
	MetadataPath   string
	CoverPath      string
	Metadata       BookMetadata
	Boundaries     []Boundary
	TotalMs        int64
	Reconciliation reconcile.Result
	Verification   *Verification
}

// Assembler builds one audiobook per request.
type Assembler struct {
	cfg      *config.Config
	reporter logging.Reporter
	prober   probe.Prober
	muxer    *Muxer
	verifier Verifier
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithProber replaces the configured duration prober.
func WithProber(p probe.Prober) Option {
	return func(a *Assembler) {
		if p != nil {
			a.prober = p
		}
	}
}

// WithMuxRunner replaces the ffmpeg command runner.
func WithMuxRunner(r commandRunner) Option {
	return func(a *Assembler) {
		a.muxer.WithCommandRunner(r)
	}
}

// WithVerifier replaces the output verifier.
func WithVerifier(v Verifier) Option {
	return func(a *Assembler) {
		a.verifier = v
	}
}

// NewAssembler wires an assembler from configuration.
func NewAssembler(cfg *config.Config, reporter logging.Reporter, opts ...Option) *Assembler {
	if reporter == nil {
		reporter = logging.Discard()
	}
	a := &Assembler{
		cfg:      cfg,
		reporter: reporter,
		prober:   probe.New(cfg),
		muxer:    NewMuxer(cfg.FFmpegBinary(), cfg.MuxTimeout(), reporter),
		verifier: NewVerifier(cfg),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble reconciles the book's manifest against its audio directory and
// produces the chaptered audiobook. Unresolved entries are excluded and
// reported; the run fails only when nothing resolves or a required artifact
// is missing.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Result, error) {
	stem := strings.TrimSpace(req.Stem)
	if stem == "" {
		return Result{}, services.Wrap(services.ErrValidation, "assembly", "assemble", "book stem is required", nil)
	}
	layout := library.NewLayout(a.cfg.Paths.BaseDir, stem)

	m, err := manifest.Load(layout.ManifestPath())
	if err != nil {
		return Result{}, a.fatal("manifest unavailable", err, logging.String("manifest", layout.ManifestPath()))
	}

	opfPath, pkg := a.locatePackage(layout)
	meta := ResolveBookMetadata(opfPath, stem, a.reporter)

	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		output = filepath.Join(layout.AudioDir(), textutil.SanitizeFileName(meta.Title)+a.cfg.Assembly.OutputExtension)
	}

	if info, err := os.Stat(layout.AudioDir()); err != nil || !info.IsDir() {
		err = services.Wrap(services.ErrNotFound, "assembly", "index audio", fmt.Sprintf("audio directory not found at %s", layout.AudioDir()), err)
		return Result{}, a.fatal("audio directory missing", err)
	}
	idx, err := audioindex.Build(layout.AudioDir(), a.cfg.Audio.Extensions, output)
	if err != nil {
		return Result{}, a.fatal("audio index failed", err)
	}

	reconciled := reconcile.New(a.reporter,
		reconcile.WithPolicy(a.cfg.Audio.Consumption),
		reconcile.WithBookDir(layout.Root()),
	).Resolve(m, idx)
	if len(reconciled.Resolved) == 0 {
		err := services.Wrap(services.ErrNotFound, "assembly", "reconcile", fmt.Sprintf("no audio files matched under %s", layout.AudioDir()), nil)
		return Result{Reconciliation: reconciled}, a.fatal("no chapter audio resolved", err)
	}

	cover, err := FindCover(layout.ExtractedDir(), a.cfg.Assembly.CoverNames, pkg)
	if err != nil {
		return Result{Reconciliation: reconciled}, a.fatal("cover image missing", err)
	}
	a.reporter.Event("using cover", logging.String("cover", cover))

	durations, err := probe.All(ctx, a.prober, reconciled.Paths(), a.cfg.Audio.ProbeWorkers)
	if err != nil {
		return Result{Reconciliation: reconciled}, a.fatal("duration probe failed", err)
	}
	chapters := make([]Chapter, len(reconciled.Resolved))
	for i, match := range reconciled.Resolved {
		chapters[i] = Chapter{Entry: match.Entry, AudioPath: match.Path, DurationMs: durations[i]}
	}
	boundaries := BuildBoundaries(chapters)

	result := Result{
		OutputPath:     output,
		ConcatPath:     layout.ConcatPath(),
		MetadataPath:   layout.ChaptersPath(),
		CoverPath:      cover,
		Metadata:       meta,
		Boundaries:     boundaries,
		Reconciliation: reconciled,
	}
	if n := len(boundaries); n > 0 {
		result.TotalMs = boundaries[n-1].EndMs
	}

	var concat bytes.Buffer
	if err := WriteConcatList(&concat, reconciled.Paths()); err != nil {
		return result, a.fatal("concat list failed", err)
	}
	if err := fileutil.WriteFileAtomic(result.ConcatPath, concat.Bytes(), 0o644); err != nil {
		return result, a.fatal("concat list failed", err, logging.String("path", result.ConcatPath))
	}
	var chaptersDoc bytes.Buffer
	if err := WriteFFMetadata(&chaptersDoc, meta, boundaries); err != nil {
		return result, a.fatal("chapter metadata failed", err)
	}
	if err := fileutil.WriteFileAtomic(result.MetadataPath, chaptersDoc.Bytes(), 0o644); err != nil {
		return result, a.fatal("chapter metadata failed", err, logging.String("path", result.MetadataPath))
	}

	if err := a.muxer.Mux(ctx, MuxRequest{
		ConcatPath:   result.ConcatPath,
		MetadataPath: result.MetadataPath,
		CoverPath:    cover,
		OutputPath:   output,
	}); err != nil {
		return result, a.fatal("mux failed", err)
	}

	if a.cfg.Assembly.VerifyOutput && a.verifier != nil {
		result.Verification = a.verify(ctx, output, boundaries)
	}

	a.reporter.Event("audiobook assembled",
		logging.String("output", output),
		logging.String("title", meta.Title),
		logging.Int("chapters", len(boundaries)),
		logging.Int("unresolved", len(reconciled.Unresolved)),
		logging.Int64("duration_ms", result.TotalMs),
	)
	return result, nil
}

func (a *Assembler) locatePackage(layout library.Layout) (string, *epub.Package) {
	opfPath, err := epub.FindPackage(layout.ExtractedDir())
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			a.reporter.Warning("package document search failed", logging.Error(err))
		}
		return "", nil
	}
	pkg, err := epub.ParsePackage(opfPath)
	if err != nil {
		return opfPath, nil
	}
	return opfPath, pkg
}

func (a *Assembler) verify(ctx context.Context, output string, boundaries []Boundary) *Verification {
	verification, err := a.verifier.Verify(ctx, output)
	if err != nil {
		a.reporter.Warning("output verification failed", logging.String("output", output), logging.Error(err))
		return nil
	}
	for _, problem := range verification.Mismatches(boundaries, int64(a.cfg.Assembly.VerifyToleranceMs)) {
		a.reporter.Warning("assembled audiobook differs from plan",
			logging.String("output", output),
			logging.String("problem", problem),
		)
	}
	return &verification
}

func (a *Assembler) fatal(msg string, err error, attrs ...logging.Attr) error {
	a.reporter.Fatal(msg, err, attrs...)
	return err
}
