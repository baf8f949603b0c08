// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/internal/issue"
	"github.com/invowk/promptscan/pkg/promptfile"
)

// newConfigCommand creates the `promptscan config` command tree.
// Subcommands that read configuration use the App's config provider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage promptscan configuration",
		Long: `Manage promptscan configuration.

Configuration is stored in:
  - Linux: ~/.config/promptscan/config.cue
  - macOS: ~/Library/Application Support/promptscan/config.cue
  - Windows: %APPDATA%\promptscan\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, showConfig(cmd.Context(), app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.reportError(cmd, initConfig(app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), app)
			if err != nil {
				return app.reportError(cmd, err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func loadConfig(ctx context.Context, app *App) (*config.Config, error) {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(app.flags.configPath).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := loadConfig(ctx, app)
	if err != nil {
		return err
	}

	keyStyle := PathStyle
	valueStyle := SuccessStyle
	out := app.stdout

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	path, pathErr := config.ResolvedPath(ctx, config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if pathErr != nil || path == "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%s:\n", keyStyle.Render("chat"))
	for _, cat := range promptfile.Categories() {
		fmt.Fprintf(out, "  %s:\n", config.LocationsKey(cat))
		locs := cfg.Locations(cat)
		if len(locs) == 0 {
			fmt.Fprintf(out, "    %s\n", SubtitleStyle.Render("(none configured)"))
		}
		for _, l := range locs {
			enabled, ok := l.Bool()
			state := valueStyle.Render("enabled")
			switch {
			case !ok:
				state = SubtitleStyle.Render(fmt.Sprintf("ignored (%v)", l.Enabled))
			case !enabled:
				state = WarningStyle.Render("disabled")
			}
			fmt.Fprintf(out, "    - %s %s\n", valueStyle.Render(l.Path), state)
		}
	}
	for _, kv := range []struct {
		key   string
		value any
	}{
		{"use_agents_md_file", cfg.Chat.UseAgentsMDFile},
		{"use_nested_agents_md_files", cfg.Chat.UseNestedAgentsMDFiles},
		{"use_copilot_instruction_files", cfg.Chat.UseCopilotInstructionFiles},
		{"use_claude_skills", cfg.Chat.UseClaudeSkills},
		{"include_applying_instructions", cfg.Chat.IncludeApplyingInstructions},
		{"include_referenced_instructions", cfg.Chat.IncludeReferencedInstructions},
		{"cache_debounce", cfg.Chat.Debounce()},
	} {
		fmt.Fprintf(out, "  %s: %s\n", kv.key, valueStyle.Render(fmt.Sprint(kv.value)))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("search"))
	fmt.Fprintf(out, "  exclude: %s\n", valueStyle.Render(fmt.Sprint(cfg.Search.Exclude)))
	fmt.Fprintf(out, "  use_ignore_files: %s\n", valueStyle.Render(fmt.Sprint(cfg.Search.UseIgnoreFiles)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(out, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(out, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))

	return nil
}

func initConfig(app *App) error {
	path, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)

	profile, err := config.ProfileDir()
	if err != nil {
		app.logger.Warn("failed to determine profile directory", "error", err)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s User prompt files go in %s\n", SubtitleStyle.Render("•"), profile)
	return nil
}
