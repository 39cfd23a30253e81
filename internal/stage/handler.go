package stage

import (
	"context"
	"log/slog"

	"epub2audio/internal/registry"
)

// Handler describes the contract the pipeline needs from each stage.
type Handler interface {
	Prepare(context.Context, *registry.Book) error
	Execute(context.Context, *registry.Book) error
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the stage-scoped logger before they run.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
