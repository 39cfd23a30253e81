package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"epub2audio/internal/logging"
	"epub2audio/internal/registry"
	"epub2audio/internal/services"
	"epub2audio/internal/stage"
)

// Options controls stage execution and registry persistence behavior.
type Options struct {
	Logger     *slog.Logger
	Store      *registry.Store
	Handler    stage.Handler
	StageName  string
	Processing registry.Status
	Done       registry.Status
	Book       *registry.Book
	// RunID groups the log lines of one pipeline invocation. A new ID is
	// generated when empty.
	RunID string
	// RecordUnresolved persists Book.Unresolved and the reconciliation
	// counts after a successful Execute.
	RecordUnresolved bool
}

// Run executes a stage and applies the registry transitions used by the pipeline.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Store == nil {
		return fmt.Errorf("registry store is required")
	}
	if opts.Book == nil {
		return fmt.Errorf("book is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}

	stageCtx := services.WithRunID(ctx, runID)
	stageCtx = services.WithBook(stageCtx, opts.Book.Stem)
	stageCtx = logging.WithStage(stageCtx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Processing)),
		logging.String("title", opts.Book.DisplayTitle()),
	)

	setProcessingState(opts.Book, opts.Processing, opts.StageName, runID)
	if err := opts.Store.Update(stageCtx, opts.Book); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := opts.Handler.Prepare(stageCtx, opts.Book); err != nil {
		return handleFailure(stageCtx, stageLogger, opts.Store, opts.Book, err)
	}
	if err := opts.Store.Update(stageCtx, opts.Book); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx, opts.Book); err != nil {
		return handleFailure(stageCtx, stageLogger, opts.Store, opts.Book, err)
	}

	if opts.Book.Status == opts.Processing || opts.Book.Status == "" {
		opts.Book.Status = opts.Done
	}
	if err := opts.Store.Update(stageCtx, opts.Book); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	if opts.RecordUnresolved {
		if err := opts.Store.SetUnresolved(stageCtx, opts.Book.Stem, opts.Book.ChapterCount, opts.Book.ResolvedCount, opts.Book.Unresolved); err != nil {
			return fmt.Errorf("persist unresolved entries: %w", err)
		}
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(opts.Book.Status)),
	)
	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, store *registry.Store, book *registry.Book, stageErr error) error {
	message := "stage failed"
	status := registry.StatusFailed
	if stageErr != nil {
		details := services.Details(stageErr)
		message = strings.TrimSpace(details.Message)
		if message == "" {
			message = strings.TrimSpace(stageErr.Error())
		}
		status = services.FailureStatus(stageErr)
	}
	book.SetFailed(status, message)

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(status)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if err := store.Update(ctx, book); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	return stageErr
}

func setProcessingState(book *registry.Book, processing registry.Status, stageName, runID string) {
	book.Status = processing
	book.Stage = stageName
	if book.Stage == "" {
		book.Stage = deriveStageLabel(processing)
	}
	book.LastRunID = runID
	book.ErrorMessage = ""
}

func deriveStageLabel(status registry.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
