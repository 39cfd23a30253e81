package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"epub2audio/internal/narration"
	"epub2audio/internal/preflight"
	"epub2audio/internal/reconcile"
	"epub2audio/internal/registry"
	"epub2audio/internal/workflow"
)

type rangeFlags struct {
	start int
	end   int
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&r.start, "start", 0, "First chapter number to narrate")
	cmd.Flags().IntVar(&r.end, "end", 0, "Last chapter number to narrate")
}

func (r *rangeFlags) request(cmd *cobra.Command) narration.Request {
	var req narration.Request
	if cmd.Flags().Changed("start") {
		start := r.start
		req.Start = &start
	}
	if cmd.Flags().Changed("end") {
		end := r.end
		req.End = &end
	}
	return req
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newImportCommand(ctx),
		newBookStageCommand(ctx, workflow.StageTOC, "toc <stem>", "Build json/toc.json from the book's navigation document", nil),
		newBookStageCommand(ctx, workflow.StageMarkdown, "markdown <stem>", "Convert manifest chapters to Markdown narration text", nil),
		newNarrateCommand(ctx),
		newReconcileCommand(ctx),
		newAssembleCommand(ctx),
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.epub>",
		Short: "Copy an EPUB into the library and extract it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(workflow.StageOptions{}, func(p *workflow.Pipeline, _ *registry.Store) error {
				book, err := p.Register(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := p.RunStage(cmd.Context(), workflow.StageImport, book, ""); err != nil {
					return err
				}
				return printBookResult(cmd, ctx, book)
			})
		},
	}
}

func newBookStageCommand(ctx *commandContext, stageName, use, short string, opts func(*cobra.Command) workflow.StageOptions) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stageOpts workflow.StageOptions
			if opts != nil {
				stageOpts = opts(cmd)
			}
			book, err := runBookStage(cmd.Context(), ctx, stageName, args[0], stageOpts)
			if err != nil {
				return err
			}
			return printBookResult(cmd, ctx, book)
		},
	}
}

func newNarrateCommand(ctx *commandContext) *cobra.Command {
	var chapters rangeFlags
	cmd := newBookStageCommand(ctx, workflow.StageNarrate, "narrate <stem>", "Synthesize chapter audio with the configured speech command",
		func(cmd *cobra.Command) workflow.StageOptions {
			return workflow.StageOptions{Narration: chapters.request(cmd)}
		})
	chapters.register(cmd)
	return cmd
}

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := newBookStageCommand(ctx, workflow.StageAssemble, "assemble <stem>", "Build the chaptered audiobook from the book's audio directory",
		func(*cobra.Command) workflow.StageOptions {
			return workflow.StageOptions{OutputPath: strings.TrimSpace(output)}
		})
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default audio/<title><ext>)")
	return cmd
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "reconcile <stem>",
		Short: "Match manifest chapters to audio files and list the unresolved ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := runBookStage(cmd.Context(), ctx, workflow.StageReconcile, args[0], workflow.StageOptions{})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, newBookView(book)); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %d of %d chapters resolved\n", book.Stem, book.ResolvedCount, book.ChapterCount)
				if len(book.Unresolved) > 0 {
					fmt.Fprint(out, renderUnresolvedTable(out, book.Unresolved))
					fmt.Fprintln(out)
				}
			}
			if strict {
				return reconcile.UnresolvedError(len(book.Unresolved), book.ChapterCount)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any chapter has no audio")
	return cmd
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var from, to, output string
	var skip []string
	var skipPreflight bool
	var chapters rangeFlags

	cmd := &cobra.Command{
		Use:   "convert <file.epub>",
		Short: "Run every stage from import to assemble for one EPUB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !skipPreflight {
				if err := preflight.Failures(preflight.RunAll(cmd.Context(), cfg)); err != nil {
					return err
				}
			}
			opts := workflow.StageOptions{
				Narration:  chapters.request(cmd),
				OutputPath: strings.TrimSpace(output),
			}
			return ctx.withPipeline(opts, func(p *workflow.Pipeline, _ *registry.Store) error {
				book, err := p.Register(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := p.Run(cmd.Context(), book, workflow.RunOptions{From: from, To: to, Skip: skip}); err != nil {
					return err
				}
				return printBookResult(cmd, ctx, book)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First stage to run")
	cmd.Flags().StringVar(&to, "to", "", "Last stage to run")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Stages to skip (for example --skip narrate when audio already exists)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default audio/<title><ext>)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not check external tools before running")
	chapters.register(cmd)
	return cmd
}

func runBookStage(ctx context.Context, cc *commandContext, stageName, stem string, opts workflow.StageOptions) (*registry.Book, error) {
	var book *registry.Book
	err := cc.withPipeline(opts, func(p *workflow.Pipeline, _ *registry.Store) error {
		found, err := p.Book(ctx, stem)
		if err != nil {
			return err
		}
		book = found
		return p.RunStage(ctx, stageName, book, "")
	})
	return book, err
}

func printBookResult(cmd *cobra.Command, ctx *commandContext, book *registry.Book) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, newBookView(book))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s (%s)\n", book.Stem, formatStatusLabel(string(book.Status)), book.DisplayTitle())
	if book.OutputPath != "" && book.Status == registry.StatusCompleted {
		fmt.Fprintf(out, "Audiobook: %s\n", book.OutputPath)
	}
	if n := len(book.Unresolved); n > 0 {
		fmt.Fprintf(out, "%d chapter(s) without audio; run `epub2audio show %s` for details\n", n, book.Stem)
	}
	return nil
}
