package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"epub2audio/internal/assembly"
	"epub2audio/internal/audioindex"
	"epub2audio/internal/config"
	"epub2audio/internal/epub"
	"epub2audio/internal/library"
	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
	"epub2audio/internal/markdown"
	"epub2audio/internal/narration"
	"epub2audio/internal/reconcile"
	"epub2audio/internal/registry"
	"epub2audio/internal/services"
	"epub2audio/internal/stage"
	"epub2audio/internal/toc"
)

// StageOptions tunes the default handlers.
type StageOptions struct {
	Narration       narration.Request
	NarrationRunner func(ctx context.Context, name string, args ...string) error
	OutputPath      string
	Assembly        []assembly.Option
}

// DefaultStages wires the production handler for every stage.
func DefaultStages(cfg *config.Config, logger *slog.Logger, opts StageOptions) StageSet {
	base := func() handlerBase { return handlerBase{cfg: cfg, logger: logger} }
	return StageSet{
		Importer:   &importHandler{handlerBase: base()},
		TOC:        &tocHandler{handlerBase: base()},
		Markdown:   &markdownHandler{handlerBase: base()},
		Narrator:   &narrateHandler{handlerBase: base(), request: opts.Narration, runner: opts.NarrationRunner},
		Reconciler: &reconcileHandler{handlerBase: base()},
		Assembler:  &assembleHandler{handlerBase: base(), outputPath: opts.OutputPath, options: opts.Assembly},
	}
}

type handlerBase struct {
	cfg    *config.Config
	logger *slog.Logger
	layout library.Layout
}

func (h *handlerBase) SetLogger(logger *slog.Logger) {
	h.logger = logger
}

func (h *handlerBase) reporter() logging.Reporter {
	return logging.NewReporter(h.logger)
}

func (h *handlerBase) prepareLayout(book *registry.Book) error {
	layout, err := stage.BookLayout(h.cfg, book)
	if err != nil {
		return err
	}
	h.layout = layout
	return nil
}

type importHandler struct {
	handlerBase
}

func (h *importHandler) Prepare(_ context.Context, book *registry.Book) error {
	if strings.TrimSpace(book.SourcePath) != "" {
		return nil
	}
	h.layout = library.NewLayout(h.cfg.Paths.BaseDir, book.Stem)
	if h.layout.Exists() {
		return nil
	}
	return services.Wrap(services.ErrValidation, StageImport, "prepare", "book has no source EPUB and no book directory", nil)
}

func (h *importHandler) Execute(ctx context.Context, book *registry.Book) error {
	if strings.TrimSpace(book.SourcePath) != "" {
		result, err := library.NewImporter(h.cfg, h.logger).Import(ctx, book.SourcePath)
		if err != nil {
			return err
		}
		h.layout = result.Layout
		if result.Layout.Stem != book.Stem {
			return services.Wrap(services.ErrConfiguration, StageImport, "execute",
				fmt.Sprintf("EPUB imports as %q but the book is registered as %q", result.Layout.Stem, book.Stem), nil)
		}
	}

	opfPath, err := epub.FindPackage(h.layout.ExtractedDir())
	if err != nil {
		h.reporter().Warning("package document not found; title falls back to stem", logging.Error(err))
		return nil
	}
	pkg, err := epub.ParsePackage(opfPath)
	if err != nil {
		h.reporter().Warning("package document unreadable; title falls back to stem", logging.Error(err))
		return nil
	}
	book.Title = strings.TrimSpace(pkg.Title())
	book.Author = strings.TrimSpace(pkg.Author())
	return nil
}

func (h *importHandler) HealthCheck(context.Context) stage.Health {
	return stage.DirHealth(StageImport, h.cfg.Paths.BaseDir)
}

type tocHandler struct {
	handlerBase
}

func (h *tocHandler) Prepare(_ context.Context, book *registry.Book) error {
	return h.prepareLayout(book)
}

func (h *tocHandler) Execute(ctx context.Context, book *registry.Book) error {
	result, err := toc.Generate(ctx, h.layout, h.reporter())
	if err != nil {
		return err
	}
	book.ChapterCount = len(result.Manifest.Entries)
	h.reporter().Event("manifest written",
		logging.String("navigation", result.NavigationPath),
		logging.String("manifest", result.ManifestPath),
		logging.Int("entries", book.ChapterCount),
	)
	return nil
}

func (h *tocHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(StageTOC)
}

type markdownHandler struct {
	handlerBase
}

func (h *markdownHandler) Prepare(_ context.Context, book *registry.Book) error {
	return h.prepareLayout(book)
}

func (h *markdownHandler) Execute(ctx context.Context, _ *registry.Book) error {
	result, err := markdown.Convert(ctx, h.layout, h.reporter())
	if err != nil {
		return err
	}
	h.reporter().Event("markdown written",
		logging.Int("written", len(result.Written)),
		logging.Int("skipped", result.Skipped),
	)
	return nil
}

func (h *markdownHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(StageMarkdown)
}

type narrateHandler struct {
	handlerBase
	request narration.Request
	runner  func(ctx context.Context, name string, args ...string) error
}

func (h *narrateHandler) Prepare(_ context.Context, book *registry.Book) error {
	if strings.TrimSpace(h.cfg.Narration.Command) == "" {
		return services.Wrap(services.ErrConfiguration, StageNarrate, "prepare", "narration.command is not configured", nil)
	}
	return h.prepareLayout(book)
}

func (h *narrateHandler) Execute(ctx context.Context, _ *registry.Book) error {
	narrator := narration.New(h.cfg, h.reporter())
	if h.runner != nil {
		narrator.WithCommandRunner(h.runner)
	}
	result, err := narrator.Narrate(ctx, h.layout, h.request)
	if err != nil {
		return err
	}
	h.reporter().Event("narration finished",
		logging.Int("start", result.Start),
		logging.Int("end", result.End),
		logging.Int("written", len(result.Written)),
		logging.Int("skipped", len(result.Skipped)),
	)
	return nil
}

func (h *narrateHandler) HealthCheck(context.Context) stage.Health {
	return stage.BinaryHealth(StageNarrate, h.cfg.Narration.Command)
}

type reconcileHandler struct {
	handlerBase
}

func (h *reconcileHandler) Prepare(_ context.Context, book *registry.Book) error {
	return h.prepareLayout(book)
}

// Execute matches the manifest against the audio directory without building
// anything, so the unresolved set can be reviewed before assembly.
func (h *reconcileHandler) Execute(_ context.Context, book *registry.Book) error {
	m, err := manifest.Load(h.layout.ManifestPath())
	if err != nil {
		return err
	}
	var exclude []string
	if out := strings.TrimSpace(book.OutputPath); out != "" {
		exclude = append(exclude, out)
	}
	idx, err := audioindex.Build(h.layout.AudioDir(), h.cfg.Audio.Extensions, exclude...)
	if err != nil {
		return err
	}
	result := reconcile.New(h.reporter(),
		reconcile.WithPolicy(h.cfg.Audio.Consumption),
		reconcile.WithBookDir(h.layout.Root()),
	).Resolve(m, idx)
	recordReconciliation(book, len(m.Entries), result)
	return nil
}

func (h *reconcileHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(StageReconcile)
}

type assembleHandler struct {
	handlerBase
	outputPath string
	options    []assembly.Option
}

func (h *assembleHandler) Prepare(_ context.Context, book *registry.Book) error {
	return h.prepareLayout(book)
}

func (h *assembleHandler) Execute(ctx context.Context, book *registry.Book) error {
	m, err := manifest.Load(h.layout.ManifestPath())
	if err != nil {
		return err
	}
	assembler := assembly.NewAssembler(h.cfg, h.reporter(), h.options...)
	result, err := assembler.Assemble(ctx, assembly.Request{Stem: book.Stem, OutputPath: h.outputPath})
	recordReconciliation(book, len(m.Entries), result.Reconciliation)
	if err != nil {
		return err
	}
	book.OutputPath = result.OutputPath
	if strings.TrimSpace(book.Title) == "" {
		book.Title = result.Metadata.Title
	}
	if strings.TrimSpace(book.Author) == "" {
		book.Author = result.Metadata.Author
	}
	return nil
}

func (h *assembleHandler) HealthCheck(context.Context) stage.Health {
	return stage.BinaryHealth(StageAssemble, h.cfg.FFmpegBinary())
}

func recordReconciliation(book *registry.Book, total int, result reconcile.Result) {
	book.ChapterCount = total
	book.ResolvedCount = len(result.Resolved)
	book.Unresolved = UnresolvedEntries(result.Unresolved)
}

// UnresolvedEntries converts manifest entries to their registry form.
func UnresolvedEntries(entries []manifest.Entry) []registry.UnresolvedEntry {
	out := make([]registry.UnresolvedEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, registry.UnresolvedEntry{
			Order:         entry.Order,
			ChapterNumber: entry.Number(),
			ChapterTitle:  entry.ChapterTitle,
			ChapterPath:   entry.ChapterPath,
		})
	}
	return out
}
