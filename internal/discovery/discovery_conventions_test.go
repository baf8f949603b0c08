// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/promptscan/internal/config"
)

var conventionFiles = map[string]string{
	"/proj/AGENTS.md":                          "root",
	"/proj/folder1/AGENTS.md":                  "nested",
	"/proj/node_modules/dep/AGENTS.md":         "excluded",
	"/proj/.github/copilot-instructions.md":    "copilot",
	"/lib/agents.md":                           "lowercase",
	"/proj/.claude/skills/lint/SKILL.md":       "---\nname: lint\n---\n",
	"/proj/.claude/skills/empty/README.md":     "",
	"/home/user/.claude/skills/notes/SKILL.md": "---\nname: notes\n---\n",
}

// TestFindAgentMDs distinguishes root-only lookup from nested search.
func TestFindAgentMDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"/proj", "/lib"}, conventionFiles, nil)
	ctx := context.Background()

	roots := uriPaths(f.d.FindAgentMDsInWorkspaceRoots(ctx))
	if diff := cmp.Diff([]string{"/proj/AGENTS.md", "/lib/agents.md"}, roots); diff != "" {
		t.Errorf("FindAgentMDsInWorkspaceRoots() mismatch (-want +got):\n%s", diff)
	}

	nested := uriPaths(f.d.FindAgentMDsInWorkspace(ctx))
	if diff := cmp.Diff([]string{"/proj/AGENTS.md", "/proj/folder1/AGENTS.md"}, nested); diff != "" {
		t.Errorf("FindAgentMDsInWorkspace() mismatch (-want +got):\n%s", diff)
	}
}

// TestFindCopilotInstructionsMDs returns only folders that have the file.
func TestFindCopilotInstructionsMDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"/proj", "/lib"}, conventionFiles, nil)
	got := uriPaths(f.d.FindCopilotInstructionsMDs(context.Background()))
	if diff := cmp.Diff([]string{"/proj/.github/copilot-instructions.md"}, got); diff != "" {
		t.Errorf("FindCopilotInstructionsMDs() mismatch (-want +got):\n%s", diff)
	}
}

// TestFindClaudeSkills looks one folder deep for SKILL.md files.
func TestFindClaudeSkills(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"/proj"}, conventionFiles, func(c *config.Config) {
		c.Chat.UseClaudeSkills = true
	})
	ctx := context.Background()

	if diff := cmp.Diff([]string{"/proj/.claude/skills/lint/SKILL.md"}, uriPaths(f.d.FindClaudeSkillsInWorkspace(ctx))); diff != "" {
		t.Errorf("FindClaudeSkillsInWorkspace() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/home/user/.claude/skills/notes/SKILL.md"}, uriPaths(f.d.FindClaudeSkillsInUserHome(ctx))); diff != "" {
		t.Errorf("FindClaudeSkillsInUserHome() mismatch (-want +got):\n%s", diff)
	}
}

// TestFinders_Cancelled return nothing on a cancelled context.
func TestFinders_Cancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"/proj"}, conventionFiles, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := f.d.FindAgentMDsInWorkspace(ctx); len(got) != 0 {
		t.Errorf("FindAgentMDsInWorkspace() = %v", got)
	}
	if got := f.d.FindCopilotInstructionsMDs(ctx); len(got) != 0 {
		t.Errorf("FindCopilotInstructionsMDs() = %v", got)
	}
}
