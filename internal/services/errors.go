package services

import (
	"errors"
	"fmt"
	"strings"

	"epub2audio/internal/registry"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrParse         = errors.New("parse error")
	ErrUnresolved    = errors.New("unresolved entry")
	ErrProbe         = errors.New("probe failure")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the registry status the stage runner
// should persist after the stage fails. Missing or malformed inputs need a
// person to fix the book folder, so they land in review.
func FailureStatus(err error) registry.Status {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrParse),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration):
		return registry.StatusReview
	default:
		return registry.StatusFailed
	}
}

// ErrorDetails is the classified, user-facing form of a wrapped service error.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details classifies err by its marker and returns the message without the
// marker prefix.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "unknown", Message: strings.TrimSpace(err.Error())}
	for _, candidate := range []struct {
		marker error
		kind   string
	}{
		{ErrNotFound, "not_found"},
		{ErrParse, "parse"},
		{ErrUnresolved, "unresolved"},
		{ErrProbe, "probe"},
		{ErrExternalTool, "external_tool"},
		{ErrValidation, "validation"},
		{ErrConfiguration, "configuration"},
		{ErrTimeout, "timeout"},
	} {
		if errors.Is(err, candidate.marker) {
			details.Kind = candidate.kind
			details.Message = strings.TrimPrefix(details.Message, candidate.marker.Error()+": ")
			break
		}
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
