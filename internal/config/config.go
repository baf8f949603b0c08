// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/invowk/promptscan/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "promptscan"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProfileDirName is the folder below ConfigDir holding user-profile prompt files.
	ProfileDirName = "prompts"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the promptscan configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ProfileDir returns the user-profile folder that holds prompt files of
// every category side by side.
func ProfileDir() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ProfileDirName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'promptscan config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", cueLoadError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if !fileExists(candidate) {
				continue
			}
			if err := loadCUEIntoViper(v, candidate); err != nil {
				return nil, "", cueLoadError(candidate, err)
			}
			resolvedPath = candidate
			break
		}
		// If no config file found, use defaults (no error)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Use a Go duration such as \"250ms\" for chat.cache_debounce").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault(KeyInstructionsLocations, defaults.Chat.InstructionsLocations)
	v.SetDefault(KeyPromptLocations, defaults.Chat.PromptLocations)
	v.SetDefault(KeyAgentLocations, defaults.Chat.AgentLocations)
	v.SetDefault(KeyUseAgentsMDFile, defaults.Chat.UseAgentsMDFile)
	v.SetDefault(KeyUseNestedAgentsMDFiles, defaults.Chat.UseNestedAgentsMDFiles)
	v.SetDefault(KeyUseCopilotInstructionFiles, defaults.Chat.UseCopilotInstructionFiles)
	v.SetDefault(KeyUseClaudeSkills, defaults.Chat.UseClaudeSkills)
	v.SetDefault(KeyIncludeApplyingInstructions, defaults.Chat.IncludeApplyingInstructions)
	v.SetDefault(KeyIncludeReferencedInstructions, defaults.Chat.IncludeReferencedInstructions)
	v.SetDefault(KeyCacheDebounce, defaults.Chat.CacheDebounce)
	v.SetDefault(KeySearchExclude, defaults.Search.Exclude)
	v.SetDefault(KeySearchUseIgnoreFiles, defaults.Search.UseIgnoreFiles)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

func cueLoadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'promptscan config --help' for configuration options").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	// Unify with schema to validate against #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merge into Viper (preserves defaults for absent keys)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig creates a default config file if it doesn't exist
// and returns its path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil // File exists
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// promptscan configuration file\n\n")

	sb.WriteString("chat: {\n")
	writeLocations(&sb, "instructions_locations", cfg.Chat.InstructionsLocations)
	writeLocations(&sb, "prompt_locations", cfg.Chat.PromptLocations)
	writeLocations(&sb, "agent_locations", cfg.Chat.AgentLocations)
	fmt.Fprintf(&sb, "\tuse_agents_md_file: %v\n", cfg.Chat.UseAgentsMDFile)
	fmt.Fprintf(&sb, "\tuse_nested_agents_md_files: %v\n", cfg.Chat.UseNestedAgentsMDFiles)
	fmt.Fprintf(&sb, "\tuse_copilot_instruction_files: %v\n", cfg.Chat.UseCopilotInstructionFiles)
	fmt.Fprintf(&sb, "\tuse_claude_skills: %v\n", cfg.Chat.UseClaudeSkills)
	fmt.Fprintf(&sb, "\tinclude_applying_instructions: %v\n", cfg.Chat.IncludeApplyingInstructions)
	fmt.Fprintf(&sb, "\tinclude_referenced_instructions: %v\n", cfg.Chat.IncludeReferencedInstructions)
	fmt.Fprintf(&sb, "\tcache_debounce: %q\n", cfg.Chat.CacheDebounce)
	sb.WriteString("}\n")

	sb.WriteString("\nsearch: {\n")
	sb.WriteString("\texclude: [")
	for i, pattern := range cfg.Search.Exclude {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", pattern)
	}
	sb.WriteString("]\n")
	fmt.Fprintf(&sb, "\tuse_ignore_files: %v\n", cfg.Search.UseIgnoreFiles)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func writeLocations(sb *strings.Builder, field string, entries []LocationEntry) {
	fmt.Fprintf(sb, "\t%s: [\n", field)
	for _, entry := range entries {
		switch v := entry.Enabled.(type) {
		case bool:
			fmt.Fprintf(sb, "\t\t{path: %q, enabled: %v},\n", entry.Path, v)
		case string:
			fmt.Fprintf(sb, "\t\t{path: %q, enabled: %q},\n", entry.Path, v)
		default:
			fmt.Fprintf(sb, "\t\t{path: %q},\n", entry.Path)
		}
	}
	sb.WriteString("\t]\n")
}
