// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// newDisableCommand creates `promptscan disable` or, when disable is false,
// `promptscan enable`.
func newDisableCommand(app *App, disable bool) *cobra.Command {
	use, short := "enable <file>...", "Remove files from the disabled set"
	if disable {
		use, short = "disable <file>...", "Add files to the disabled set"
	}
	category := promptfile.CategoryAgent.String()
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Disabled agent files are left out of the custom agents. The set is kept in
the --state database; without it the change only lasts for this run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runDisable(cmd.Context(), app, category, args, disable))
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", category, "category of the files")
	return cmd
}

func runDisable(ctx context.Context, app *App, category string, args []string, disable bool) error {
	cat, err := parseCategory(category)
	if err != nil {
		return err
	}
	if app.flags.statePath == "" {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+"no --state database given, the change will not be kept")
	}

	return app.withSession(ctx, func(s *Session) error {
		set := s.Prompts.GetDisabledPromptFiles(ctx, cat)
		for _, u := range fileURIs(args) {
			if disable {
				set[u] = struct{}{}
			} else {
				delete(set, u)
			}
		}

		disabled := slices.SortedFunc(maps.Keys(set), func(a, b uri.URI) int {
			return strings.Compare(a.String(), b.String())
		})
		if err := s.Prompts.SetDisabledPromptFiles(ctx, cat, disabled); err != nil {
			return fmt.Errorf("failed to store disabled %s files: %w", cat, err)
		}

		fmt.Fprintf(app.stdout, "%s %d disabled %s file(s)\n", SuccessStyle.Render("✓"), len(disabled), cat)
		for _, u := range disabled {
			fmt.Fprintf(app.stdout, "  %s\n", PathStyle.Render(u.FSPath()))
		}
		return nil
	})
}
