// SPDX-License-Identifier: MPL-2.0

package promptfile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/promptscan/pkg/uri"
)

const (
	// CategoryInstructions identifies instruction files (`*.instructions.md`).
	CategoryInstructions Category = "instructions"
	// CategoryPrompt identifies reusable prompt files (`*.prompt.md`).
	CategoryPrompt Category = "prompt"
	// CategoryAgent identifies custom agent files (`*.agent.md`).
	CategoryAgent Category = "agent"

	// StorageLocal marks files found in workspace folders.
	StorageLocal Storage = "local"
	// StorageUser marks files found in the user profile folder.
	StorageUser Storage = "user"
	// StorageExtension marks files contributed by extensions.
	StorageExtension Storage = "extension"

	// CopilotInstructionsFile is the convention-named root instruction file,
	// looked up under each workspace folder's .github directory.
	CopilotInstructionsFile = "copilot-instructions.md"
	// AgentsMDFile is the convention-named agent instruction file.
	AgentsMDFile = "AGENTS.md"
	// SkillFile is the definition file inside each skill folder.
	SkillFile = "SKILL.md"

	// legacyModeExtension is the pre-agent suffix still recognised for agents.
	legacyModeExtension = ".chatmode.md"
	markdownExtension   = ".md"
)

// ErrInvalidCategory is returned when a string names no known category.
var ErrInvalidCategory = errors.New("invalid category")

type (
	// Category is the kind of a prompt file.
	Category string

	// Storage is the tier a prompt file was discovered in.
	Storage string
)

// Categories returns every category in a stable order.
func Categories() []Category {
	return []Category{CategoryInstructions, CategoryPrompt, CategoryAgent}
}

// ParseCategory parses a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate returns ErrInvalidCategory for unknown categories.
func (c Category) Validate() error {
	switch c {
	case CategoryInstructions, CategoryPrompt, CategoryAgent:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// FileExtension returns the filename suffix of the category.
func (c Category) FileExtension() string {
	switch c {
	case CategoryInstructions:
		return ".instructions.md"
	case CategoryPrompt:
		return ".prompt.md"
	case CategoryAgent:
		return ".agent.md"
	default:
		return ""
	}
}

// DefaultSourceFolder returns the workspace-relative folder that is searched
// for the category unless explicitly disabled.
func (c Category) DefaultSourceFolder() string {
	switch c {
	case CategoryInstructions:
		return ".github/instructions"
	case CategoryPrompt:
		return ".github/prompts"
	case CategoryAgent:
		return ".github/agents"
	default:
		return ""
	}
}

// LanguageID returns the document language id of the category.
func (c Category) LanguageID() string {
	switch c {
	case CategoryInstructions:
		return "instructions"
	case CategoryPrompt:
		return "prompt"
	case CategoryAgent:
		return "chatagent"
	default:
		return ""
	}
}

// MatchesFileName reports whether name carries the category's suffix. When
// lenient is set, agents also accept any markdown file; this applies inside
// workspace agent folders.
func (c Category) MatchesFileName(name string, lenient bool) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, c.FileExtension()) {
		return true
	}
	if c != CategoryAgent {
		return false
	}
	if strings.HasSuffix(lower, legacyModeExtension) {
		return true
	}
	return lenient && strings.HasSuffix(lower, markdownExtension)
}

// CategoryForLanguageID maps a document language id to its category.
func CategoryForLanguageID(id string) (Category, bool) {
	for _, c := range Categories() {
		if c.LanguageID() == id {
			return c, true
		}
	}
	return "", false
}

// CategoryForFile infers the category of u from its file name suffix.
func CategoryForFile(u uri.URI) (Category, bool) {
	name := u.Base()
	for _, c := range Categories() {
		if c.MatchesFileName(name, false) {
			return c, true
		}
	}
	return "", false
}

// CleanName returns the base name of u without its category suffix (or
// plain ".md" extension).
func CleanName(u uri.URI) string {
	name := u.Base()
	lower := strings.ToLower(name)
	for _, ext := range []string{
		CategoryInstructions.FileExtension(),
		CategoryPrompt.FileExtension(),
		CategoryAgent.FileExtension(),
		legacyModeExtension,
		markdownExtension,
	} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// String returns the storage name.
func (s Storage) String() string {
	return string(s)
}

// ParseStorage parses a storage tier name.
func ParseStorage(s string) (Storage, error) {
	st := Storage(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StorageLocal, StorageUser, StorageExtension:
		return st, nil
	default:
		return "", fmt.Errorf("invalid storage %q", s)
	}
}
