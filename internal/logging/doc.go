// Package logging assembles structured slog loggers and formatting helpers used
// across the epub2audio pipeline.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code can tag log lines with the
// book stem, stage, and run identifier. The Reporter interface is what the core
// packages (toc, reconcile, assembly) accept; NewReporter adapts a slog logger
// to it.
package logging
