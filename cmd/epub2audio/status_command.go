package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"epub2audio/internal/config"
	"epub2audio/internal/preflight"
	"epub2audio/internal/registry"
)

type checkView struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail,omitempty"`
}

type statusView struct {
	ConfigPath string         `json:"configPath"`
	Registry   string         `json:"registry"`
	FFmpeg     string         `json:"ffmpeg,omitempty"`
	Books      map[string]int `json:"books"`
	Checks     []checkView    `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show registry counts and external tool health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRegistry(func(cfg *config.Config, store *registry.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				checks := preflight.RunAll(cmd.Context(), cfg)
				view := statusView{
					ConfigPath: ctx.configPath,
					Registry:   store.Path(),
					FFmpeg:     preflight.ToolVersion(cmd.Context(), cfg.FFmpegBinary()),
					Books:      make(map[string]int, len(stats)),
					Checks:     make([]checkView, 0, len(checks)),
				}
				for status, count := range stats {
					view.Books[string(status)] = count
				}
				for _, check := range checks {
					view.Checks = append(view.Checks, checkView(check))
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				renderStatus(cmd, ctx, view, stats, checks)
				return nil
			})
		},
	}
}

func renderStatus(cmd *cobra.Command, ctx *commandContext, view statusView, stats map[registry.Status]int, checks []preflight.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Configuration", colorize))
	configNote := view.ConfigPath
	if !ctx.configExists {
		configNote += " (not found; defaults in use)"
	}
	fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configNote, colorize))
	fmt.Fprintln(out, renderStatusLine("Registry", statusInfo, view.Registry, colorize))
	if view.FFmpeg != "" {
		fmt.Fprintln(out, renderStatusLine("FFmpeg version", statusInfo, view.FFmpeg, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Checks", colorize))
	for _, check := range checks {
		kind := statusOK
		switch {
		case !check.Passed && check.Optional:
			kind = statusWarn
		case !check.Passed:
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Books", colorize))
	rows := buildStatusRows(stats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No books registered")
		return
	}
	fmt.Fprintln(out, renderTable(out, []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}
