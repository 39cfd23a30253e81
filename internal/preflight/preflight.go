package preflight

import (
	"context"
	"fmt"
	"strings"

	"epub2audio/internal/config"
	"epub2audio/internal/deps"
	"epub2audio/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Book directory", cfg.Paths.BaseDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, fromStatus(status))
	}
	return results
}

// Failures joins the failed required checks into a single configuration error.
// It returns nil when every required check passed.
func Failures(results []Result) error {
	var failures []string
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check",
		fmt.Sprintf("preflight checks failed: %s", strings.Join(failures, "; ")), nil)
}

func fromStatus(status deps.Status) Result {
	detail := status.Detail
	if status.Available {
		detail = status.Path
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   detail,
	}
}
