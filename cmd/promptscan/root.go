// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/invowk/promptscan/internal/issue"
	"github.com/invowk/promptscan/pkg/promptfile"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "promptscan",
		Short: "Inspect instruction, prompt and agent files",
		Long: TitleStyle.Render("promptscan") + SubtitleStyle.Render(" - inspect instruction, prompt and agent files") + `

promptscan discovers the instruction, prompt and agent files of a workspace,
your user profile and registered contributions, and shows which instructions
apply to a set of files.

` + SubtitleStyle.Render("Examples:") + `
  promptscan list                      List every discovered file
  promptscan collect src/app.ts        Show the instructions for a file
  promptscan agents                    List the active custom agents
  promptscan watch                     Follow changes to agents and commands`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.configureLogging()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is the promptscan config directory)")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringArrayVarP(&app.flags.workspaces, "workspace", "w", nil, "workspace folder (repeatable, default is the current directory)")
	flags.StringVar(&app.flags.profileDir, "profile-dir", "", "user profile prompts folder")
	flags.StringVar(&app.flags.statePath, "state", "", "SQLite file holding the disabled-files sets (default keeps them in memory)")

	root.AddCommand(
		newListCommand(app),
		newSourcesCommand(app),
		newCollectCommand(app),
		newAgentsCommand(app),
		newCommandsCommand(app),
		newSkillsCommand(app),
		newDisableCommand(app, true),
		newDisableCommand(app, false),
		newWatchCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// handleError prints errors fang receives, except ExitErrors whose message
// was already reported.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// reportError prints err with its catalogued help on stderr and returns an
// ExitError so fang does not print it a second time.
func (a *App) reportError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	cmd.SilenceErrors = true
	fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.flags.verbose))

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if help := ae.Help(); help != nil {
			rendered, renderErr := help.Render("dark")
			if renderErr != nil {
				a.logger.Warn("failed to render issue catalog entry", "issueID", ae.Issue, "error", renderErr)
			} else {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: 1, Err: err}
}

// parseCategory parses a --category value into an actionable error on failure.
func parseCategory(s string) (promptfile.Category, error) {
	c, err := promptfile.ParseCategory(s)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("parse category").
			WithResource(s).
			WithIssue(issue.InvalidCategoryId).
			Wrap(err).
			BuildError()
	}
	return c, nil
}

// categoriesFlag expands an optional --category value; empty means all.
func categoriesFlag(s string) ([]promptfile.Category, error) {
	if s == "" {
		return promptfile.Categories(), nil
	}
	c, err := parseCategory(s)
	if err != nil {
		return nil, err
	}
	return []promptfile.Category{c}, nil
}
