package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"epub2audio/internal/config"
	"epub2audio/internal/registry"
)

func newBooksCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List registered books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]registry.Status, 0, len(statuses))
			for _, value := range statuses {
				status, ok := registry.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				filter = append(filter, status)
			}
			return ctx.withRegistry(func(_ *config.Config, store *registry.Store) error {
				books, err := store.List(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					views := make([]bookView, 0, len(books))
					for _, book := range books {
						views = append(views, newBookView(book))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(books) == 0 {
					fmt.Fprintln(out, "No books registered")
					return nil
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Stem", "Title", "Status", "Resolved", "Updated"},
					buildBookRows(books),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only list books in these statuses")
	cmd.AddCommand(newBooksRemoveCommand(ctx))
	return cmd
}

func newBooksRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <stem>...",
		Short: "Forget books in the registry (files on disk are kept)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRegistry(func(_ *config.Config, store *registry.Store) error {
				out := cmd.OutOrStdout()
				for _, stem := range args {
					removed, err := store.Remove(cmd.Context(), strings.TrimSpace(stem))
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Book %s removed\n", stem)
					} else {
						fmt.Fprintf(out, "Book %s not found\n", stem)
					}
				}
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <stem>",
		Short: "Show a book's pipeline state and unresolved chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRegistry(func(_ *config.Config, store *registry.Store) error {
				stem := strings.TrimSpace(args[0])
				book, err := store.Get(cmd.Context(), stem)
				if err != nil {
					return err
				}
				if book == nil {
					return fmt.Errorf("book %q is not registered", stem)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, newBookView(book))
				}
				printBookDetail(cmd, book)
				return nil
			})
		},
	}
}

func printBookDetail(cmd *cobra.Command, book *registry.Book) {
	out := cmd.OutOrStdout()
	field := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(out, "%-12s %s\n", label+":", value)
		}
	}
	field("Stem", book.Stem)
	field("Title", book.Title)
	field("Author", book.Author)
	field("Status", formatStatusLabel(string(book.Status)))
	field("Stage", book.Stage)
	field("Chapters", fmt.Sprintf("%d resolved of %d", book.ResolvedCount, book.ChapterCount))
	field("Source", book.SourcePath)
	field("Output", book.OutputPath)
	field("Run", book.LastRunID)
	field("Error", book.ErrorMessage)
	field("Updated", formatDisplayTime(book.UpdatedAt))
	if len(book.Unresolved) == 0 {
		return
	}
	fmt.Fprintf(out, "\nUnresolved chapters (%d):\n", len(book.Unresolved))
	fmt.Fprintln(out, renderUnresolvedTable(out, book.Unresolved))
}
