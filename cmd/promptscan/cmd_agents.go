// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/promptscan/internal/issue"
	"github.com/invowk/promptscan/internal/prompts"
)

// newAgentsCommand creates the `promptscan agents` command.
func newAgentsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "agents [name]",
		Short: "List custom agents, or show one in detail",
		Long: `List the custom agents that are not disabled.

With a name, print the agent's header fields, tool references and hand-offs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runAgents(cmd.Context(), app, args))
		},
	}
}

func runAgents(ctx context.Context, app *App, args []string) error {
	return app.withSession(ctx, func(s *Session) error {
		agents, err := s.Prompts.GetCustomAgents(ctx)
		if err != nil {
			return fmt.Errorf("failed to list custom agents: %w", err)
		}

		if len(args) == 1 {
			i := slices.IndexFunc(agents, func(a prompts.CustomAgent) bool { return a.Name == args[0] })
			if i < 0 {
				return fmt.Errorf("custom agent %q not found", args[0])
			}
			printAgent(app, agents[i])
			return nil
		}

		fmt.Fprintln(app.stdout, TitleStyle.Render("Custom agents"))
		if len(agents) == 0 {
			fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
			return nil
		}
		for _, a := range agents {
			fmt.Fprintf(app.stdout, "  %s %s", storageStyle.Render(a.Source.Storage.String()), PathStyle.Render(a.Name))
			if a.Description != "" {
				fmt.Fprintf(app.stdout, "  %s", SubtitleStyle.Render(a.Description))
			}
			if refs := a.Instructions.ToolReferences; len(refs) > 0 {
				names := make([]string, 0, len(refs))
				for _, r := range refs {
					names = append(names, "#tool:"+r.Name)
				}
				fmt.Fprintf(app.stdout, "  %s", strings.Join(names, " "))
			}
			fmt.Fprintln(app.stdout)
		}
		return nil
	})
}

func printAgent(app *App, a prompts.CustomAgent) {
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(app.stdout, "%s: %s\n", SubtitleStyle.Render(k), v)
		}
	}
	fmt.Fprintln(app.stdout, TitleStyle.Render(a.Name))
	field("file", a.URI.FSPath())
	field("storage", a.Source.Storage.String())
	field("extension", a.Source.ExtensionID)
	field("description", a.Description)
	field("model", a.Model)
	field("target", a.Target)
	field("argument hint", a.ArgumentHint)
	field("tools", strings.Join(a.Tools, ", "))

	if len(a.Instructions.ToolReferences) > 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("tool references:"))
		for _, r := range a.Instructions.ToolReferences {
			fmt.Fprintf(app.stdout, "  %s [%d:%d]\n", r.Name, r.Start, r.End)
		}
	}
	if len(a.HandOffs) > 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("hand-offs:"))
		for _, h := range a.HandOffs {
			fmt.Fprintf(app.stdout, "  %s -> %s\n", h.Label, h.Agent)
		}
	}
	if len(a.Instructions.Metadata) > 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("metadata:"))
		keys := make([]string, 0, len(a.Instructions.Metadata))
		for k := range a.Instructions.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(app.stdout, "  %s: %s\n", k, a.Instructions.Metadata[k])
		}
	}
}

// newCommandsCommand creates the `promptscan commands` command.
func newCommandsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "commands [name]",
		Short: "List prompt slash commands, or resolve one by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runCommands(cmd.Context(), app, args))
		},
	}
}

func runCommands(ctx context.Context, app *App, args []string) error {
	return app.withSession(ctx, func(s *Session) error {
		if len(args) == 1 {
			c, ok := s.Prompts.ResolvePromptSlashCommand(ctx, args[0])
			if !ok {
				return fmt.Errorf("slash command /%s not found", args[0])
			}
			fmt.Fprintf(app.stdout, "/%s %s\n", c.Name, PathStyle.Render(c.URI.FSPath()))
			return nil
		}

		cmds, err := s.Prompts.GetPromptSlashCommands(ctx)
		if err != nil {
			return fmt.Errorf("failed to list slash commands: %w", err)
		}
		fmt.Fprintln(app.stdout, TitleStyle.Render("Slash commands"))
		if len(cmds) == 0 {
			fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
			return nil
		}
		for _, c := range cmds {
			line := "/" + c.Name
			if c.ArgumentHint != "" {
				line += " " + c.ArgumentHint
			}
			fmt.Fprintf(app.stdout, "  %s %s", storageStyle.Render(c.Storage.String()), PathStyle.Render(line))
			if c.Description != "" {
				fmt.Fprintf(app.stdout, "  %s", SubtitleStyle.Render(c.Description))
			}
			fmt.Fprintln(app.stdout)
		}
		return nil
	})
}

// newSkillsCommand creates the `promptscan skills` command.
func newSkillsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List project and personal skills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, runSkills(cmd.Context(), app))
		},
	}
}

func runSkills(ctx context.Context, app *App) error {
	return app.withSession(ctx, func(s *Session) error {
		skills, err := s.Prompts.FindClaudeSkills(ctx)
		if errors.Is(err, prompts.ErrSkillsDisabled) {
			return issue.NewErrorContext().
				WithOperation("list skills").
				WithIssue(issue.SkillsDisabledId).
				Wrap(err).
				BuildError()
		}
		if err != nil {
			return fmt.Errorf("failed to list skills: %w", err)
		}

		fmt.Fprintln(app.stdout, TitleStyle.Render("Skills"))
		if len(skills) == 0 {
			fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
			return nil
		}
		for _, sk := range skills {
			fmt.Fprintf(app.stdout, "  %s %s  %s\n",
				storageStyle.Render(string(sk.Type)),
				PathStyle.Render(sk.Name),
				SubtitleStyle.Render(sk.Description))
		}
		return nil
	})
}
