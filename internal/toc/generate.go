package toc

import (
	"context"

	"epub2audio/internal/epub"
	"epub2audio/internal/library"
	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
)

// Result is the outcome of Generate.
type Result struct {
	NavigationPath string
	ManifestPath   string
	Manifest       manifest.Manifest
}

// Generate locates the book's navigation document, builds the manifest, and
// merges it into json/toc.json so fields written by later stages survive.
func Generate(ctx context.Context, layout library.Layout, reporter logging.Reporter) (Result, error) {
	navPath, err := epub.FindNavigation(layout.ExtractedDir())
	if err != nil {
		return Result{}, err
	}
	built, err := NewBuilder(reporter, WithRoot(layout.ExtractedDir())).Build(ctx, navPath)
	if err != nil {
		return Result{}, err
	}
	merged, err := manifest.SaveMerged(ctx, layout.ManifestPath(), built)
	if err != nil {
		return Result{}, err
	}
	return Result{
		NavigationPath: navPath,
		ManifestPath:   layout.ManifestPath(),
		Manifest:       merged,
	}, nil
}
