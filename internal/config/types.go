// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/promptscan/pkg/promptfile"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// KeyInstructionsLocations configures instruction file locations.
	KeyInstructionsLocations = "chat.instructions_locations"
	// KeyPromptLocations configures prompt file locations.
	KeyPromptLocations = "chat.prompt_locations"
	// KeyAgentLocations configures agent file locations.
	KeyAgentLocations = "chat.agent_locations"
	// KeyUseAgentsMDFile enables AGENTS.md files.
	KeyUseAgentsMDFile = "chat.use_agents_md_file"
	// KeyUseNestedAgentsMDFiles enables AGENTS.md files below workspace roots.
	KeyUseNestedAgentsMDFiles = "chat.use_nested_agents_md_files"
	// KeyUseCopilotInstructionFiles enables .github/copilot-instructions.md.
	KeyUseCopilotInstructionFiles = "chat.use_copilot_instruction_files"
	// KeyUseClaudeSkills enables .claude/skills discovery.
	KeyUseClaudeSkills = "chat.use_claude_skills"
	// KeyIncludeApplyingInstructions enables applyTo matching.
	KeyIncludeApplyingInstructions = "chat.include_applying_instructions"
	// KeyIncludeReferencedInstructions enables reference resolution.
	KeyIncludeReferencedInstructions = "chat.include_referenced_instructions"
	// KeyCacheDebounce sets the debounce of derived-list change events.
	KeyCacheDebounce = "chat.cache_debounce"
	// KeySearchExclude lists glob patterns excluded from pattern searches.
	KeySearchExclude = "search.exclude"
	// KeySearchUseIgnoreFiles makes pattern searches honour .gitignore.
	KeySearchUseIgnoreFiles = "search.use_ignore_files"

	defaultCacheDebounce = 100 * time.Millisecond
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLocationEntry is the sentinel error wrapped by InvalidLocationEntryError.
	ErrInvalidLocationEntry = errors.New("invalid location entry")
	// ErrInvalidDebounce is returned when chat.cache_debounce is not a duration.
	ErrInvalidDebounce = errors.New("invalid cache debounce")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LocationEntry is one configured source location. Enabled holds the raw
	// configured value: a boolean, or a when-clause string that is ignored.
	LocationEntry struct {
		Path    string `json:"path" mapstructure:"path"`
		Enabled any    `json:"enabled" mapstructure:"enabled"`
	}

	// InvalidLocationEntryError is returned when a LocationEntry has an empty path.
	InvalidLocationEntryError struct {
		Entry LocationEntry
	}

	// ChatConfig holds prompt and instruction discovery settings.
	ChatConfig struct {
		InstructionsLocations         []LocationEntry `json:"instructions_locations" mapstructure:"instructions_locations"`
		PromptLocations               []LocationEntry `json:"prompt_locations" mapstructure:"prompt_locations"`
		AgentLocations                []LocationEntry `json:"agent_locations" mapstructure:"agent_locations"`
		UseAgentsMDFile               bool            `json:"use_agents_md_file" mapstructure:"use_agents_md_file"`
		UseNestedAgentsMDFiles        bool            `json:"use_nested_agents_md_files" mapstructure:"use_nested_agents_md_files"`
		UseCopilotInstructionFiles    bool            `json:"use_copilot_instruction_files" mapstructure:"use_copilot_instruction_files"`
		UseClaudeSkills               bool            `json:"use_claude_skills" mapstructure:"use_claude_skills"`
		IncludeApplyingInstructions   bool            `json:"include_applying_instructions" mapstructure:"include_applying_instructions"`
		IncludeReferencedInstructions bool            `json:"include_referenced_instructions" mapstructure:"include_referenced_instructions"`
		// CacheDebounce is a Go duration string such as "100ms".
		CacheDebounce string `json:"cache_debounce" mapstructure:"cache_debounce"`
	}

	// SearchConfig controls the pattern search backend.
	SearchConfig struct {
		Exclude        []string `json:"exclude" mapstructure:"exclude"`
		UseIgnoreFiles bool     `json:"use_ignore_files" mapstructure:"use_ignore_files"`
	}

	// UIConfig contains UI-related configuration
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// Config holds the application configuration
	Config struct {
		Chat   ChatConfig   `json:"chat" mapstructure:"chat"`
		Search SearchConfig `json:"search" mapstructure:"search"`
		UI     UIConfig     `json:"ui" mapstructure:"ui"`
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			InstructionsLocations:         []LocationEntry{{Path: promptfile.CategoryInstructions.DefaultSourceFolder(), Enabled: true}},
			PromptLocations:               []LocationEntry{{Path: promptfile.CategoryPrompt.DefaultSourceFolder(), Enabled: true}},
			AgentLocations:                []LocationEntry{{Path: promptfile.CategoryAgent.DefaultSourceFolder(), Enabled: true}},
			UseAgentsMDFile:               true,
			UseNestedAgentsMDFiles:        false,
			UseCopilotInstructionFiles:    true,
			UseClaudeSkills:               false,
			IncludeApplyingInstructions:   true,
			IncludeReferencedInstructions: true,
			CacheDebounce:                 defaultCacheDebounce.String(),
		},
		Search: SearchConfig{
			Exclude:        []string{"**/node_modules/**", "**/.git/**"},
			UseIgnoreFiles: true,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}

// LocationsKey returns the settings key that governs the locations of c.
func LocationsKey(c promptfile.Category) string {
	switch c {
	case promptfile.CategoryInstructions:
		return KeyInstructionsLocations
	case promptfile.CategoryPrompt:
		return KeyPromptLocations
	case promptfile.CategoryAgent:
		return KeyAgentLocations
	default:
		return ""
	}
}

// Locations returns the configured locations of category c.
func (c *Config) Locations(cat promptfile.Category) []LocationEntry {
	switch cat {
	case promptfile.CategoryInstructions:
		return c.Chat.InstructionsLocations
	case promptfile.CategoryPrompt:
		return c.Chat.PromptLocations
	case promptfile.CategoryAgent:
		return c.Chat.AgentLocations
	default:
		return nil
	}
}

// Bool returns the boolean value of the entry. ok is false when the value
// is absent or not boolean-coercible (for example a when-clause).
func (e LocationEntry) Bool() (enabled, ok bool) {
	switch v := e.Enabled.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// IsValid returns whether the entry has a usable path.
func (e LocationEntry) IsValid() (bool, []error) {
	if strings.TrimSpace(e.Path) == "" || strings.ContainsRune(e.Path, 0) {
		return false, []error{&InvalidLocationEntryError{Entry: e}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidLocationEntryError) Error() string {
	return fmt.Sprintf("invalid location entry %q", e.Entry.Path)
}

// Unwrap returns ErrInvalidLocationEntry for errors.Is() compatibility.
func (e *InvalidLocationEntryError) Unwrap() error { return ErrInvalidLocationEntry }

// Debounce returns the parsed cache debounce, falling back to the default
// when the value is empty or invalid.
func (c ChatConfig) Debounce() time.Duration {
	if c.CacheDebounce == "" {
		return defaultCacheDebounce
	}
	d, err := time.ParseDuration(c.CacheDebounce)
	if err != nil || d < 0 {
		return defaultCacheDebounce
	}
	return d
}

// String returns the color scheme name.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid validates the fields CUE cannot check: the debounce duration.
// Invalid location entries are not errors here; discovery logs and skips them.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Chat.CacheDebounce != "" {
		if _, err := time.ParseDuration(c.Chat.CacheDebounce); err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %w", ErrInvalidDebounce, c.Chat.CacheDebounce, err))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
