// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/promptscan/internal/issue"
	"github.com/invowk/promptscan/pkg/promptfile"
)

type listFlags struct {
	category string
	storage  string
}

// newListCommand creates the `promptscan list` command.
func newListCommand(app *App) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered prompt files",
		Long: `List the instruction, prompt and agent files found in the workspace
folders, the user profile and registered contributions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runList(cmd.Context(), app, flags))
		},
	}
	cmd.Flags().StringVarP(&flags.category, "category", "c", "", "only list one category (instructions, prompt, agent)")
	cmd.Flags().StringVarP(&flags.storage, "storage", "s", "", "only list one storage tier (local, user, extension)")
	return cmd
}

func runList(ctx context.Context, app *App, flags listFlags) error {
	cats, err := categoriesFlag(flags.category)
	if err != nil {
		return err
	}

	var storage promptfile.Storage
	if flags.storage != "" {
		storage, err = promptfile.ParseStorage(flags.storage)
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("parse storage").
				WithResource(flags.storage).
				WithIssue(issue.InvalidStorageId).
				Wrap(err).
				BuildError()
		}
	}

	return app.withSession(ctx, func(s *Session) error {
		total := 0
		for _, cat := range cats {
			var files []promptfile.Descriptor
			if storage != "" {
				files, err = s.Prompts.ListPromptFilesForStorage(ctx, cat, storage)
			} else {
				files, err = s.Prompts.ListPromptFiles(ctx, cat)
			}
			if err != nil {
				return fmt.Errorf("failed to list %s files: %w", cat, err)
			}
			if len(files) == 0 {
				continue
			}
			total += len(files)

			fmt.Fprintln(app.stdout, TitleStyle.Render(cat.String()))
			for _, d := range files {
				fmt.Fprintf(app.stdout, "  %s %s  %s\n",
					storageStyle.Render(d.Storage.String()),
					PathStyle.Render(d.URI.FSPath()),
					SubtitleStyle.Render(s.Prompts.PromptLocationLabel(d)))
			}
			fmt.Fprintln(app.stdout)
		}

		if total == 0 {
			return issue.NewErrorContext().
				WithOperation("list prompt files").
				WithIssue(issue.NoPromptFilesId).
				BuildError()
		}
		return nil
	})
}

// newSourcesCommand creates the `promptscan sources` command.
func newSourcesCommand(app *App) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Show the folders searched for each category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runSources(cmd.Context(), app, category))
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only show one category (instructions, prompt, agent)")
	return cmd
}

func runSources(ctx context.Context, app *App, category string) error {
	cats, err := categoriesFlag(category)
	if err != nil {
		return err
	}

	return app.withSession(ctx, func(s *Session) error {
		for _, cat := range cats {
			fmt.Fprintln(app.stdout, TitleStyle.Render(cat.String()))
			fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("creation folders:"))
			for _, d := range s.Prompts.SourceFolders(cat) {
				if d.URI.IsZero() {
					continue
				}
				status := SuccessStyle.Render("✓")
				if !s.FS.Exists(ctx, d.URI) {
					status = SubtitleStyle.Render("-")
				}
				fmt.Fprintf(app.stdout, "    %s %s %s\n",
					status,
					storageStyle.Render(d.Storage.String()),
					PathStyle.Render(d.URI.FSPath()))
			}

			res := s.Discovery.SourceRoots(cat)
			fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("search roots:"))
			for _, r := range res.Roots {
				line := PathStyle.Render(r.Dir.FSPath())
				if r.Pattern != "" {
					line += " " + SubtitleStyle.Render(r.Pattern)
				}
				fmt.Fprintf(app.stdout, "    %s\n", line)
			}
			for _, d := range res.Diagnostics {
				fmt.Fprintf(app.stdout, "    %s %s: %s\n", WarningStyle.Render("!"), d.Message, d.Path)
			}
			fmt.Fprintln(app.stdout)
		}
		return nil
	})
}
