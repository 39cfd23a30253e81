package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"epub2audio/internal/config"
	"epub2audio/internal/library"
	"epub2audio/internal/logging"
	"epub2audio/internal/registry"
	"epub2audio/internal/services"
	"epub2audio/internal/stage"
	"epub2audio/internal/stageexec"
)

// Stage names accepted by RunOptions and the CLI.
const (
	StageImport    = "import"
	StageTOC       = "toc"
	StageMarkdown  = "markdown"
	StageNarrate   = "narrate"
	StageReconcile = "reconcile"
	StageAssemble  = "assemble"
)

// StageSet bundles the concrete handlers the pipeline orchestrates.
type StageSet struct {
	Importer   stage.Handler
	TOC        stage.Handler
	Markdown   stage.Handler
	Narrator   stage.Handler
	Reconciler stage.Handler
	Assembler  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	processingStatus registry.Status
	doneStatus       registry.Status
	recordUnresolved bool
}

// RunOptions selects the slice of stages to run. Empty bounds mean the first
// and last stage. Skip removes stages from the slice.
type RunOptions struct {
	From  string
	To    string
	Skip  []string
	RunID string
}

// Pipeline runs stages for registered books.
type Pipeline struct {
	cfg    *config.Config
	store  *registry.Store
	logger *slog.Logger
	stages []pipelineStage
}

// NewPipeline constructs a pipeline over the provided handlers. Nil handlers
// are allowed; running them fails with a clear error.
func NewPipeline(cfg *config.Config, store *registry.Store, logger *slog.Logger, set StageSet) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
		stages: stageOrder(set),
	}
}

func stageOrder(set StageSet) []pipelineStage {
	return []pipelineStage{
		{name: StageImport, handler: set.Importer, processingStatus: registry.StatusImporting, doneStatus: registry.StatusImported},
		{name: StageTOC, handler: set.TOC, processingStatus: registry.StatusIndexing, doneStatus: registry.StatusIndexed},
		{name: StageMarkdown, handler: set.Markdown, processingStatus: registry.StatusConverting, doneStatus: registry.StatusConverted},
		{name: StageNarrate, handler: set.Narrator, processingStatus: registry.StatusNarrating, doneStatus: registry.StatusNarrated},
		{name: StageReconcile, handler: set.Reconciler, processingStatus: registry.StatusReconciling, doneStatus: registry.StatusReconciled, recordUnresolved: true},
		{name: StageAssemble, handler: set.Assembler, processingStatus: registry.StatusAssembling, doneStatus: registry.StatusCompleted, recordUnresolved: true},
	}
}

// StageNames lists the stages in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, stg := range p.stages {
		names[i] = stg.name
	}
	return names
}

// Register records the EPUB at epubPath as a book, keeping the state of an
// already registered book with the same stem.
func (p *Pipeline) Register(ctx context.Context, epubPath string) (*registry.Book, error) {
	source := strings.TrimSpace(epubPath)
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "register", "epub path is required", nil)
	}
	stem := library.StemFor(source, p.cfg.Library.SlugifyStem)
	existing, err := p.store.Get(ctx, stem)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.SourcePath = source
		if err := p.store.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	return p.store.Upsert(ctx, &registry.Book{Stem: stem, SourcePath: source, Status: registry.StatusPending})
}

// Book returns the registered book for stem. Books whose folder exists but
// were never registered (for example, laid out by hand) are registered on
// first use.
func (p *Pipeline) Book(ctx context.Context, stem string) (*registry.Book, error) {
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "lookup", "book stem is required", nil)
	}
	book, err := p.store.Get(ctx, stem)
	if err != nil {
		return nil, err
	}
	if book != nil {
		return book, nil
	}
	if !library.NewLayout(p.cfg.Paths.BaseDir, stem).Exists() {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "lookup", fmt.Sprintf("book %q is not registered", stem), nil)
	}
	return p.store.Upsert(ctx, &registry.Book{Stem: stem, Status: registry.StatusPending})
}

// Run executes the selected stages in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, book *registry.Book, opts RunOptions) error {
	selected, err := p.selectStages(opts)
	if err != nil {
		return err
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	for _, stg := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runStage(ctx, stg, book, runID); err != nil {
			return err
		}
	}
	return nil
}

// RunStage executes a single named stage.
func (p *Pipeline) RunStage(ctx context.Context, name string, book *registry.Book, runID string) error {
	stg, ok := p.stage(name)
	if !ok {
		return services.Wrap(services.ErrValidation, "workflow", "select", fmt.Sprintf("unknown stage %q", name), nil)
	}
	if strings.TrimSpace(runID) == "" {
		runID = uuid.NewString()
	}
	return p.runStage(ctx, stg, book, runID)
}

func (p *Pipeline) runStage(ctx context.Context, stg pipelineStage, book *registry.Book, runID string) error {
	return stageexec.Run(ctx, stageexec.Options{
		Logger:           p.logger,
		Store:            p.store,
		Handler:          stg.handler,
		StageName:        stg.name,
		Processing:       stg.processingStatus,
		Done:             stg.doneStatus,
		Book:             book,
		RunID:            runID,
		RecordUnresolved: stg.recordUnresolved,
	})
}

func (p *Pipeline) stage(name string) (pipelineStage, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, stg := range p.stages {
		if stg.name == name {
			return stg, true
		}
	}
	return pipelineStage{}, false
}

func (p *Pipeline) selectStages(opts RunOptions) ([]pipelineStage, error) {
	from, to := 0, len(p.stages)-1
	if opts.From != "" {
		idx := p.indexOf(opts.From)
		if idx < 0 {
			return nil, services.Wrap(services.ErrValidation, "workflow", "select", fmt.Sprintf("unknown stage %q", opts.From), nil)
		}
		from = idx
	}
	if opts.To != "" {
		idx := p.indexOf(opts.To)
		if idx < 0 {
			return nil, services.Wrap(services.ErrValidation, "workflow", "select", fmt.Sprintf("unknown stage %q", opts.To), nil)
		}
		to = idx
	}
	if from > to {
		return nil, services.Wrap(services.ErrValidation, "workflow", "select", fmt.Sprintf("stage %q runs after %q", opts.From, opts.To), nil)
	}
	skip := make(map[string]struct{}, len(opts.Skip))
	for _, name := range opts.Skip {
		if p.indexOf(name) < 0 {
			return nil, services.Wrap(services.ErrValidation, "workflow", "select", fmt.Sprintf("unknown stage %q", name), nil)
		}
		skip[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	selected := make([]pipelineStage, 0, to-from+1)
	for _, stg := range p.stages[from : to+1] {
		if _, ok := skip[stg.name]; ok {
			continue
		}
		selected = append(selected, stg)
	}
	return selected, nil
}

func (p *Pipeline) indexOf(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, stg := range p.stages {
		if stg.name == name {
			return i
		}
	}
	return -1
}
