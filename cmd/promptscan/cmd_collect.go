// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/invowk/promptscan/internal/instructions"
	"github.com/invowk/promptscan/pkg/uri"
)

type collectFlags struct {
	attach       []string
	readFileTool string
	render       bool
}

// newCollectCommand creates the `promptscan collect` command.
func newCollectCommand(app *App) *cobra.Command {
	var flags collectFlags
	cmd := &cobra.Command{
		Use:   "collect [files...]",
		Short: "Show the instructions that apply to a set of files",
		Long: `Collect the instruction files that apply to the given files.

Instructions are attached when their applyTo pattern matches one of the files,
when they are repository-wide convention files (copilot-instructions.md,
AGENTS.md), or when an attached instruction file references them.

With --read-file-tool, a listing of every instruction file is also printed,
as it would be offered to a model that can read files on demand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runCollect(cmd.Context(), app, flags, args))
		},
	}
	cmd.Flags().StringArrayVarP(&flags.attach, "attach", "a", nil, "instruction file already attached (repeatable)")
	cmd.Flags().StringVar(&flags.readFileTool, "read-file-tool", "", "name of the read-file tool; enables the instruction listing")
	cmd.Flags().BoolVar(&flags.render, "render", false, "render the listing as styled markdown")
	return cmd
}

func runCollect(ctx context.Context, app *App, flags collectFlags, args []string) error {
	files := fileURIs(args)
	attached := fileURIs(flags.attach)

	return app.withSession(ctx, func(s *Session) error {
		ac := instructions.NewAttachedContext(files...)
		for _, u := range attached {
			ac.AddInstruction(instructions.Entry{URI: u})
		}

		var opts []instructions.Option
		if flags.readFileTool != "" {
			opts = append(opts, instructions.WithReadFileTool(flags.readFileTool))
		}
		tel := s.Prompts.Collector(opts...).Collect(ctx, ac)
		if err := ctx.Err(); err != nil {
			return err
		}

		entries := ac.Instructions()
		fmt.Fprintln(app.stdout, TitleStyle.Render("Attached instructions"))
		if len(entries) == 0 {
			fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
		}
		for _, e := range entries {
			fmt.Fprintf(app.stdout, "  %s\n", PathStyle.Render(s.Workspace.Label(e.URI)))
			if e.Reason != "" {
				fmt.Fprintf(app.stdout, "    %s\n", SubtitleStyle.Render(e.Reason))
			}
		}
		fmt.Fprintln(app.stdout)
		fmt.Fprintf(app.stdout, "%s %d applied by pattern, %d referenced, %d convention files, %d discovered\n",
			SubtitleStyle.Render("Summary:"),
			tel.AppliedByGlob, tel.PulledInByReference, tel.AgentOrRootInstructionFiles, tel.Total)

		listing := ac.Listing()
		if listing == "" {
			return nil
		}
		fmt.Fprintln(app.stdout)
		if !flags.render {
			fmt.Fprintln(app.stdout, listing)
			return nil
		}
		rendered, err := glamour.Render(listing, "dark")
		if err != nil {
			app.logger.Warn("failed to render listing", "error", err)
			rendered = listing
		}
		fmt.Fprint(app.stdout, rendered)
		return nil
	})
}

// fileURIs converts command-line paths to file URIs.
func fileURIs(paths []string) []uri.URI {
	out := make([]uri.URI, 0, len(paths))
	for _, p := range paths {
		out = append(out, uri.File(p))
	}
	return out
}
