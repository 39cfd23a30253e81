package logging

import (
	"log/slog"
)

// Reporter is the observability collaborator handed to the TOC builder,
// reconciler, and assembler. Core code reports through it instead of a
// process-wide logger.
type Reporter interface {
	Event(msg string, attrs ...Attr)
	Warning(msg string, attrs ...Attr)
	Fatal(msg string, err error, attrs ...Attr)
}

// NewReporter adapts a slog logger to the Reporter contract. A nil logger
// yields a reporter that discards everything.
func NewReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = NewNop()
	}
	return slogReporter{logger: logger}
}

type slogReporter struct {
	logger *slog.Logger
}

func (r slogReporter) Event(msg string, attrs ...Attr) {
	r.logger.Info(msg, Args(attrs...)...)
}

func (r slogReporter) Warning(msg string, attrs ...Attr) {
	WarnWithContext(r.logger, msg, "warning", attrs...)
}

func (r slogReporter) Fatal(msg string, err error, attrs ...Attr) {
	attrs = append(attrs, Error(err))
	ErrorWithContext(r.logger, msg, "fatal", attrs...)
}

// Discard returns a Reporter that drops every record.
func Discard() Reporter {
	return slogReporter{logger: NewNop()}
}
