package logging

import (
	"context"
	"log/slog"

	"epub2audio/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBook is the standardized key for the book storage stem.
	FieldBook = "book"
	// FieldStage is the standardized key for pipeline stage names.
	FieldStage = "stage"
	// FieldRunID is the standardized key for the per-run correlation identifier.
	FieldRunID = "run_id"
	// FieldEventType classifies a log line for filtering (e.g. "stage_start").
	FieldEventType = "event_type"
	// FieldErrorHint tells the reader what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if stem, ok := services.BookFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBook, stem))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

// WithStage annotates ctx with a stage name so derived loggers carry it.
func WithStage(ctx context.Context, stage string) context.Context {
	return services.WithStage(ctx, stage)
}
