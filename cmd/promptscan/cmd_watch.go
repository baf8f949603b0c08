// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type watchTopic int

const (
	topicAgents watchTopic = iota
	topicCommands
)

// newWatchCommand creates the `promptscan watch` command.
func newWatchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow changes to custom agents and slash commands",
		Long: `Watch the prompt source folders and print the custom agents and slash
commands whenever they change. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runWatch(cmd.Context(), app))
		},
	}
}

func runWatch(ctx context.Context, app *App) error {
	return app.withSession(ctx, func(s *Session) error {
		changes := make(chan watchTopic, 16)
		notify := func(t watchTopic) func(struct{}) {
			return func(struct{}) {
				select {
				case changes <- t:
				default:
				}
			}
		}
		unsubAgents := s.Prompts.OnDidChangeCustomAgents()(notify(topicAgents))
		defer unsubAgents()
		unsubCommands := s.Prompts.OnDidChangeSlashCommands()(notify(topicCommands))
		defer unsubCommands()

		printAgentSummary(ctx, app, s)
		printCommandSummary(ctx, app, s)
		app.logger.Info("watching for changes", "folders", len(s.Workspace.Folders()))

		for {
			select {
			case <-ctx.Done():
				app.logger.Info("watch stopped")
				return nil
			case t := <-changes:
				switch t {
				case topicAgents:
					printAgentSummary(ctx, app, s)
				case topicCommands:
					printCommandSummary(ctx, app, s)
				}
			}
		}
	})
}

func printAgentSummary(ctx context.Context, app *App, s *Session) {
	agents, err := s.Prompts.GetCustomAgents(ctx)
	if err != nil {
		if ctx.Err() == nil {
			app.logger.Error("failed to list custom agents", "error", err)
		}
		return
	}
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}
	fmt.Fprintf(app.stdout, "%s %s %d: %v\n",
		SubtitleStyle.Render(time.Now().Format(time.TimeOnly)),
		TitleStyle.Render("agents"), len(agents), names)
}

func printCommandSummary(ctx context.Context, app *App, s *Session) {
	cmds, err := s.Prompts.GetPromptSlashCommands(ctx)
	if err != nil {
		if ctx.Err() == nil {
			app.logger.Error("failed to list slash commands", "error", err)
		}
		return
	}
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, "/"+c.Name)
	}
	fmt.Fprintf(app.stdout, "%s %s %d: %v\n",
		SubtitleStyle.Render(time.Now().Format(time.TimeOnly)),
		TitleStyle.Render("commands"), len(cmds), names)
}
