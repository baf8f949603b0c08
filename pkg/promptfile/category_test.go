// SPDX-License-Identifier: MPL-2.0

package promptfile_test

import (
	"errors"
	"testing"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// TestCategoryForFile infers categories from file suffixes.
func TestCategoryForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want promptfile.Category
		ok   bool
	}{
		{"/p/a.instructions.md", promptfile.CategoryInstructions, true},
		{"/p/A.Prompt.MD", promptfile.CategoryPrompt, true},
		{"/p/a.agent.md", promptfile.CategoryAgent, true},
		{"/p/a.chatmode.md", promptfile.CategoryAgent, true},
		{"/p/codestyle.md", "", false},
	}
	for _, tt := range tests {
		got, ok := promptfile.CategoryForFile(uri.FromPath(tt.path))
		if got != tt.want || ok != tt.ok {
			t.Errorf("CategoryForFile(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

// TestMatchesFileName_LenientAgents accepts plain markdown only for lenient
// agent lookups.
func TestMatchesFileName_LenientAgents(t *testing.T) {
	t.Parallel()

	if !promptfile.CategoryAgent.MatchesFileName("reviewer.md", true) {
		t.Error("lenient agent match of reviewer.md = false")
	}
	if promptfile.CategoryAgent.MatchesFileName("reviewer.md", false) {
		t.Error("strict agent match of reviewer.md = true")
	}
	if promptfile.CategoryPrompt.MatchesFileName("x.md", true) {
		t.Error("prompt match of x.md = true")
	}
}

// TestCleanName strips category suffixes.
func TestCleanName(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"/p/fix bug.prompt.md":     "fix bug",
		"/p/style.instructions.md": "style",
		"/p/reviewer.md":           "reviewer",
		"/p/noext":                 "noext",
	} {
		if got := promptfile.CleanName(uri.FromPath(in)); got != want {
			t.Errorf("CleanName(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestParseCategory rejects unknown names.
func TestParseCategory(t *testing.T) {
	t.Parallel()

	if c, err := promptfile.ParseCategory(" Agent "); err != nil || c != promptfile.CategoryAgent {
		t.Errorf("ParseCategory(Agent) = (%q, %v)", c, err)
	}
	if _, err := promptfile.ParseCategory("mode"); !errors.Is(err, promptfile.ErrInvalidCategory) {
		t.Errorf("ParseCategory(mode) error = %v, want ErrInvalidCategory", err)
	}
}
