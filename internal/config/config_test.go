// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/promptscan/internal/issue"
	"github.com/invowk/promptscan/pkg/promptfile"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestDefaultConfig checks the documented defaults.
func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	for _, c := range promptfile.Categories() {
		locs := cfg.Locations(c)
		if len(locs) != 1 || locs[0].Path != c.DefaultSourceFolder() {
			t.Errorf("Locations(%s) = %+v, want the default folder", c, locs)
		}
	}
	if !cfg.Chat.UseAgentsMDFile || cfg.Chat.UseNestedAgentsMDFiles {
		t.Error("expected AGENTS.md enabled and nested AGENTS.md disabled by default")
	}
	if !cfg.Chat.UseCopilotInstructionFiles {
		t.Error("expected copilot instruction files enabled by default")
	}
	if cfg.Chat.UseClaudeSkills {
		t.Error("expected skills disabled by default")
	}
	if got := cfg.Chat.Debounce(); got != 100*time.Millisecond {
		t.Errorf("Debounce() = %v, want 100ms", got)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig().IsValid() = false: %v", errs)
	}
}

// TestLoad_DefaultsWithoutFile falls back to defaults when no file exists.
func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

// TestLoad_FromFile merges file values over defaults and keeps entry order.
func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
chat: {
	prompt_locations: [
		{path: ".github/prompts", enabled: false},
		{path: "gen/text/nested/*.prompt.md", enabled: true},
		{path: "/abs/Prompts", enabled: "resourceLangId == markdown"},
	]
	use_claude_skills: true
}
search: use_ignore_files: false
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []LocationEntry{
		{Path: ".github/prompts", Enabled: false},
		{Path: "gen/text/nested/*.prompt.md", Enabled: true},
		{Path: "/abs/Prompts", Enabled: "resourceLangId == markdown"},
	}
	if diff := cmp.Diff(want, cfg.Chat.PromptLocations); diff != "" {
		t.Errorf("PromptLocations mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Chat.UseClaudeSkills {
		t.Error("UseClaudeSkills = false, want true")
	}
	if cfg.Search.UseIgnoreFiles {
		t.Error("UseIgnoreFiles = true, want false")
	}
	if !cfg.Chat.UseAgentsMDFile {
		t.Error("UseAgentsMDFile default was not preserved")
	}
}

// TestLoad_SchemaViolation returns an actionable error naming the file.
func TestLoad_SchemaViolation(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `chat: use_claude_skills: "yes"`)
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err == nil {
		t.Fatal("Load() expected error for schema violation")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %T, want *issue.ActionableError", err)
	}
	if ae.Resource != path {
		t.Errorf("Resource = %q, want %q", ae.Resource, path)
	}
}

// TestLoad_InvalidDebounce is rejected after decoding.
func TestLoad_InvalidDebounce(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `chat: cache_debounce: "soon"`)
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if !errors.Is(err, ErrInvalidDebounce) {
		t.Errorf("Load() error = %v, want ErrInvalidDebounce", err)
	}
}

// TestLoad_MissingFile reports a missing explicit config file.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want config file not found", err)
	}
}

// TestLoad_Canceled honours an already-canceled context.
func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

// TestGenerateCUE_RoundTrip loads the generated file back unchanged.
func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Chat.AgentLocations = append(cfg.Chat.AgentLocations, LocationEntry{Path: "~/agents"})
	path := writeConfig(t, GenerateCUE(cfg))

	got, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestLocationEntry_Bool reduces values to boolean-or-absent.
func TestLocationEntry_Bool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value       any
		wantEnabled bool
		wantOK      bool
	}{
		{true, true, true},
		{false, false, true},
		{"TRUE", true, true},
		{"false", false, true},
		{"resourceLangId == markdown", false, false},
		{nil, false, false},
		{1, false, false},
	}
	for _, tt := range tests {
		enabled, ok := LocationEntry{Path: "x", Enabled: tt.value}.Bool()
		if enabled != tt.wantEnabled || ok != tt.wantOK {
			t.Errorf("Bool(%v) = (%v, %v), want (%v, %v)", tt.value, enabled, ok, tt.wantEnabled, tt.wantOK)
		}
	}
}

// TestLocationEntry_IsValid rejects empty paths.
func TestLocationEntry_IsValid(t *testing.T) {
	t.Parallel()

	if valid, _ := (LocationEntry{Path: "  "}).IsValid(); valid {
		t.Error("IsValid() = true for a blank path")
	}
	valid, errs := LocationEntry{Path: "a\x00b"}.IsValid()
	if valid || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidLocationEntry) {
		t.Errorf("IsValid() = (%v, %v), want ErrInvalidLocationEntry", valid, errs)
	}
}

// TestProfileDir lives below the (overridden) config directory.
func TestProfileDir(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ProfileDir()
	if err != nil {
		t.Fatalf("ProfileDir() error: %v", err)
	}
	if want := filepath.Join(dir, ProfileDirName); got != want {
		t.Errorf("ProfileDir() = %q, want %q", got, want)
	}
}
