// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/internal/discovery"
	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/internal/testutil"
	"github.com/invowk/promptscan/internal/workspace"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

var errSkillsOff = errors.New("skills disabled")

// fakePrompts serves the collector from a real discovery engine over an
// in-memory filesystem and parses files on every call.
type fakePrompts struct {
	fs     *fsys.Local
	d      *discovery.Discovery
	skills []promptfile.Skill
	parses int
}

func (f *fakePrompts) ListPromptFiles(ctx context.Context, cat promptfile.Category) ([]promptfile.Descriptor, error) {
	return f.d.ListFiles(ctx, cat, promptfile.StorageLocal)
}

func (f *fakePrompts) ParseNew(ctx context.Context, u uri.URI) (*promptfile.ParsedFile, error) {
	f.parses++
	b, err := f.fs.ReadFile(ctx, u)
	if err != nil {
		return nil, err
	}
	return promptfile.Parse(u, string(b))
}

func (f *fakePrompts) ListCopilotInstructionsMDs(ctx context.Context) []uri.URI {
	return f.d.FindCopilotInstructionsMDs(ctx)
}

func (f *fakePrompts) ListAgentMDs(ctx context.Context, includeNested bool) []uri.URI {
	if includeNested {
		return f.d.FindAgentMDsInWorkspace(ctx)
	}
	return f.d.FindAgentMDsInWorkspaceRoots(ctx)
}

func (f *fakePrompts) FindClaudeSkills(context.Context) ([]promptfile.Skill, error) {
	if f.skills == nil {
		return nil, errSkillsOff
	}
	return f.skills, nil
}

func newCollector(t *testing.T, files map[string]string, mutate func(*config.Config), opts ...Option) (*Collector, *fakePrompts) {
	t.Helper()

	afs := afero.NewMemMapFs()
	testutil.WriteFiles(t, afs, files)
	fs := fsys.New(afs)

	cfg := config.DefaultConfig()
	cfg.Chat.InstructionsLocations = append(cfg.Chat.InstructionsLocations,
		config.LocationEntry{Path: ".github/prompts", Enabled: true})
	if mutate != nil {
		mutate(cfg)
	}
	store := config.NewStore(cfg)
	ws := workspace.New([]uri.URI{uri.FromPath("/proj")})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d := discovery.New(store, ws, fs, fs,
		discovery.WithProfileDir(uri.FromPath("/home/user/.config/promptscan/prompts")),
		discovery.WithUserHome(uri.FromPath("/home/user")),
		discovery.WithLogger(logger),
	)
	fake := &fakePrompts{fs: fs, d: d}
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewCollector(fake, store, ws, fs, opts...), fake
}

func instructionPaths(ac *AttachedContext) []string {
	var out []string
	for _, u := range ac.InstructionURIs() {
		out = append(out, u.Path)
	}
	sort.Strings(out)
	return out
}

// TestMatchApplyTo covers pattern normalization and first-match semantics.
func TestMatchApplyTo(t *testing.T) {
	t.Parallel()

	button := uri.FromPath("/proj/src/ui/Button.tsx")
	nested := uri.FromPath("/proj/docs/src/Button.tsx")

	tests := []struct {
		name     string
		patterns []string
		files    []uri.URI
		want     bool
		pattern  string
		file     uri.URI
	}{
		{"double star no files", []string{"**"}, nil, true, "**", uri.URI{}},
		{"star no files", []string{"*"}, nil, true, "*", uri.URI{}},
		{"double star slash star", []string{"**/*"}, []uri.URI{button}, true, "**/*", uri.URI{}},
		{"unrooted matches at depth", []string{"src/**/*.tsx"}, []uri.URI{button}, true, "src/**/*.tsx", button},
		{"unrooted matches nested src", []string{"src/**/*.tsx"}, []uri.URI{nested}, true, "src/**/*.tsx", nested},
		{"rooted does not match nested", []string{"/src/**/*.tsx"}, []uri.URI{nested}, false, "", uri.URI{}},
		{"case insensitive", []string{"**/*.TSX"}, []uri.URI{button}, true, "**/*.TSX", button},
		{"empty patterns skipped", []string{"", " ", "**/*.tsx"}, []uri.URI{button}, true, "**/*.tsx", button},
		{"first matching pattern wins", []string{"**/*.go", "**/ui/*", "**/*.tsx"}, []uri.URI{button}, true, "**/ui/*", button},
		{"no match", []string{"**/*.go"}, []uri.URI{button}, false, "", uri.URI{}},
		{"invalid pattern", []string{"[z-a"}, []uri.URI{button}, false, "", uri.URI{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := MatchApplyTo(tt.patterns, tt.files)
			if ok != tt.want {
				t.Fatalf("MatchApplyTo() ok = %v, want %v", ok, tt.want)
			}
			if m.Pattern != tt.pattern || m.File != tt.file {
				t.Errorf("MatchApplyTo() = %+v, want pattern %q file %v", m, tt.pattern, tt.file)
			}
		})
	}
}

// TestAddApplyingInstructions verifies that only the instruction whose
// pattern matches an attached file is added.
func TestAddApplyingInstructions(t *testing.T) {
	t.Parallel()

	c, _ := newCollector(t, map[string]string{
		"/proj/.github/prompts/a.instructions.md": "---\napplyTo: \"**/*.tsx\"\n---\nA",
		"/proj/.github/prompts/b.instructions.md": "---\napplyTo: \"**/folder2/*.tsx\"\n---\nB",
		"/proj/.github/prompts/c.instructions.md": "no header",
		"/proj/folder1/main.tsx":                  "",
	}, nil)

	ctx := context.Background()
	files, err := c.prompts.ListPromptFiles(ctx, promptfile.CategoryInstructions)
	if err != nil {
		t.Fatalf("ListPromptFiles() error = %v", err)
	}
	ac := NewAttachedContext(uri.FromPath("/proj/folder1/main.tsx"))
	var tel Telemetry
	c.AddApplyingInstructions(ctx, files, ac, &tel)

	got := ac.Instructions()
	if len(got) != 1 || got[0].URI.Path != "/proj/.github/prompts/a.instructions.md" {
		t.Fatalf("Instructions() = %+v, want only a.instructions.md", got)
	}
	wantReason := "automatically attached as pattern `**/*.tsx` matches `folder1/main.tsx`"
	if got[0].Reason != wantReason {
		t.Errorf("Reason = %q, want %q", got[0].Reason, wantReason)
	}
	if tel.AppliedByGlob != 1 {
		t.Errorf("AppliedByGlob = %d, want 1", tel.AppliedByGlob)
	}
}

// TestApplyToEverywhere verifies that catch-all patterns match an empty
// attached context.
func TestApplyToEverywhere(t *testing.T) {
	t.Parallel()

	for _, pattern := range []string{"**", "*", "**/*"} {
		t.Run(pattern, func(t *testing.T) {
			t.Parallel()
			c, _ := newCollector(t, map[string]string{
				"/proj/.github/instructions/all.instructions.md": "---\napplyTo: '" + pattern + "'\n---\n",
			}, nil)
			ac := NewAttachedContext()
			tel := c.Collect(context.Background(), ac)
			if tel.AppliedByGlob != 1 || !ac.HasInstruction(uri.FromPath("/proj/.github/instructions/all.instructions.md")) {
				t.Errorf("pattern %q: instructions = %v", pattern, instructionPaths(ac))
			}
		})
	}
}

// TestCollectConventionFiles attaches AGENTS.md and copilot-instructions.md
// and follows the copilot file's references, but not a nested AGENTS.md.
func TestCollectConventionFiles(t *testing.T) {
	t.Parallel()

	c, _ := newCollector(t, map[string]string{
		"/proj/AGENTS.md":                       "Root agents",
		"/proj/.github/copilot-instructions.md": "See [style](../codestyle.md) and [more](./more-codestyle.md).",
		"/proj/codestyle.md":                    "Code style",
		"/proj/.github/more-codestyle.md":       "More code style",
		"/proj/folder1/AGENTS.md":               "Nested agents",
		"/proj/folder1/file.txt":                "unrelated",
	}, nil)

	ac := NewAttachedContext(uri.FromPath("/proj/folder1/file.txt"))
	tel := c.Collect(context.Background(), ac)

	want := []string{
		"/proj/.github/copilot-instructions.md",
		"/proj/.github/more-codestyle.md",
		"/proj/AGENTS.md",
		"/proj/codestyle.md",
	}
	if diff := cmp.Diff(want, instructionPaths(ac)); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
	if tel.AgentOrRootInstructionFiles != 2 || tel.PulledInByReference != 2 {
		t.Errorf("telemetry = %+v", tel)
	}
}

// TestCollectConventionReferencesWithoutReferencedSetting keeps following
// convention file references when referenced instructions are disabled.
func TestCollectConventionReferencesWithoutReferencedSetting(t *testing.T) {
	t.Parallel()

	c, _ := newCollector(t, map[string]string{
		"/proj/.github/copilot-instructions.md":             "[style](../codestyle.md)",
		"/proj/codestyle.md":                                "Code style",
		"/proj/.github/instructions/ts.instructions.md":     "---\napplyTo: '**/*.ts'\n---\n[extra](../../extra.md)",
		"/proj/extra.md":                                    "extra",
		"/proj/.github/instructions/unused.instructions.md": "---\napplyTo: '**/*.go'\n---\n",
	}, func(cfg *config.Config) {
		cfg.Chat.IncludeReferencedInstructions = false
	})

	ac := NewAttachedContext(uri.FromPath("/proj/main.ts"))
	c.Collect(context.Background(), ac)

	want := []string{
		"/proj/.github/copilot-instructions.md",
		"/proj/.github/instructions/ts.instructions.md",
		"/proj/codestyle.md",
	}
	if diff := cmp.Diff(want, instructionPaths(ac)); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
}

// TestCollectSettingsDisablePasses turns off glob matching and the
// convention files.
func TestCollectSettingsDisablePasses(t *testing.T) {
	t.Parallel()

	c, _ := newCollector(t, map[string]string{
		"/proj/AGENTS.md":                               "Root agents",
		"/proj/.github/copilot-instructions.md":         "copilot",
		"/proj/.github/instructions/ts.instructions.md": "---\napplyTo: '**'\n---\n",
	}, func(cfg *config.Config) {
		cfg.Chat.IncludeApplyingInstructions = false
		cfg.Chat.UseAgentsMDFile = false
		cfg.Chat.UseCopilotInstructionFiles = false
	})
	c.prompts = &settingsAwarePrompts{fakePrompts: c.prompts.(*fakePrompts), cfg: c.cfg}

	ac := NewAttachedContext(uri.FromPath("/proj/main.ts"))
	tel := c.Collect(context.Background(), ac)
	if got := ac.Instructions(); len(got) != 0 {
		t.Errorf("Instructions() = %+v, want none", got)
	}
	if tel.Total != 1 {
		t.Errorf("Total = %d, want 1", tel.Total)
	}
}

// settingsAwarePrompts gates the convention lists on their settings the way
// the prompts service does.
type settingsAwarePrompts struct {
	*fakePrompts
	cfg *config.Store
}

func (s *settingsAwarePrompts) ListCopilotInstructionsMDs(ctx context.Context) []uri.URI {
	if !s.cfg.Get().Chat.UseCopilotInstructionFiles {
		return nil
	}
	return s.fakePrompts.ListCopilotInstructionsMDs(ctx)
}

func (s *settingsAwarePrompts) ListAgentMDs(ctx context.Context, includeNested bool) []uri.URI {
	if !s.cfg.Get().Chat.UseAgentsMDFile {
		return nil
	}
	return s.fakePrompts.ListAgentMDs(ctx, includeNested)
}

// TestReferenceCycle resolves A -> B -> A once each.
func TestReferenceCycle(t *testing.T) {
	t.Parallel()

	a := uri.FromPath("/proj/.github/instructions/a.instructions.md")
	c, fake := newCollector(t, map[string]string{
		"/proj/.github/instructions/a.instructions.md": "---\napplyTo: '**'\n---\n#file:b.instructions.md",
		"/proj/.github/instructions/b.instructions.md": "[back](a.instructions.md) [self](./b.instructions.md)",
	}, nil)

	ac := NewAttachedContext()
	ac.AddInstruction(Entry{URI: a})
	var tel Telemetry
	c.AddReferencedInstructions(context.Background(), []uri.URI{a}, ac, &tel)

	want := []string{
		"/proj/.github/instructions/a.instructions.md",
		"/proj/.github/instructions/b.instructions.md",
	}
	if diff := cmp.Diff(want, instructionPaths(ac)); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
	if tel.PulledInByReference != 1 {
		t.Errorf("PulledInByReference = %d, want 1", tel.PulledInByReference)
	}
	if fake.parses != 2 {
		t.Errorf("parses = %d, want 2", fake.parses)
	}
	if got := ac.Instructions()[1].Reason; got != "referenced by `a.instructions.md`" {
		t.Errorf("Reason = %q", got)
	}
}

// TestReferencesOutsideWorkspace attaches external prompt files but not
// arbitrary external files, and skips missing targets.
func TestReferencesOutsideWorkspace(t *testing.T) {
	t.Parallel()

	seed := uri.FromPath("/proj/seed.instructions.md")
	c, _ := newCollector(t, map[string]string{
		"/proj/seed.instructions.md":   "[x](/etc/notes.md) [y](/shared/team.instructions.md) [z](missing.md) [w](https://example.com/a.md)",
		"/etc/notes.md":                "external",
		"/shared/team.instructions.md": "[n](nested.md)",
		"/shared/nested.md":            "outside",
		"/proj/unrelated.md":           "",
	}, nil)

	ac := NewAttachedContext()
	ac.AddInstruction(Entry{URI: seed})
	var tel Telemetry
	c.AddReferencedInstructions(context.Background(), []uri.URI{seed}, ac, &tel)

	want := []string{"/proj/seed.instructions.md", "/shared/team.instructions.md"}
	if diff := cmp.Diff(want, instructionPaths(ac)); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
}

// TestListing builds the on-demand listing with nested AGENTS.md files and
// skills, and reports the telemetry once.
func TestListing(t *testing.T) {
	t.Parallel()

	var reported []Telemetry
	c, fake := newCollector(t, map[string]string{
		"/proj/.github/instructions/go.instructions.md": "---\napplyTo: '**/*.go'\ndescription: Go | rules\n---\n",
		"/proj/.github/instructions/ts.instructions.md": "---\napplyTo: '**/*.ts'\n---\n",
		"/proj/sub/AGENTS.md":                           "nested",
	}, func(cfg *config.Config) {
		cfg.Chat.UseNestedAgentsMDFiles = true
	}, WithReadFileTool("read_file"), WithTelemetryReporter(func(tel Telemetry) {
		reported = append(reported, tel)
	}))
	fake.skills = []promptfile.Skill{{
		URI:         uri.FromPath("/proj/.claude/skills/lint/SKILL.md"),
		Type:        promptfile.SkillTypeProject,
		Name:        "lint",
		Description: "Run linters",
	}}

	ac := NewAttachedContext(uri.FromPath("/proj/main.go"))
	tel := c.Collect(context.Background(), ac)
	listing := ac.Listing()

	for _, want := range []string{
		"`read_file`",
		"| /proj/.github/instructions/go.instructions.md | **/*.go | Go \\| rules |",
		"| /proj/.github/instructions/ts.instructions.md | **/*.ts |  |",
		"| /proj/sub/AGENTS.md |  | instructions for folder sub |",
		"| lint | /proj/.claude/skills/lint/SKILL.md | Run linters |",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
	if tel.ListedButNotIncluded != 2 {
		t.Errorf("ListedButNotIncluded = %d, want 2", tel.ListedButNotIncluded)
	}
	if diff := cmp.Diff([]Telemetry{tel}, reported); diff != "" {
		t.Errorf("reported telemetry mismatch (-want +got):\n%s", diff)
	}
}

// TestCollectCancelled returns without attaching anything.
func TestCollectCancelled(t *testing.T) {
	t.Parallel()

	c, _ := newCollector(t, map[string]string{
		"/proj/AGENTS.md": "Root agents",
		"/proj/.github/instructions/all.instructions.md": "---\napplyTo: '**'\n---\n",
	}, nil, WithReadFileTool("read_file"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ac := NewAttachedContext()
	c.Collect(ctx, ac)
	if got := ac.Instructions(); len(got) != 0 {
		t.Errorf("Instructions() = %+v, want none", got)
	}
	if ac.Listing() != "" {
		t.Error("cancelled collect should not build a listing")
	}
}

// TestAttachedContextDedup keeps the first entry for a URI.
func TestAttachedContextDedup(t *testing.T) {
	t.Parallel()

	u := uri.FromPath("/proj/a.md")
	ac := NewAttachedContext(u, u)
	if got := ac.Files(); len(got) != 1 {
		t.Errorf("Files() = %v", got)
	}
	if !ac.AddInstruction(Entry{URI: u, Reason: "first"}) || ac.AddInstruction(Entry{URI: u, Reason: "second"}) {
		t.Error("AddInstruction should accept the first entry only")
	}
	if got := ac.Instructions()[0].Reason; got != "first" {
		t.Errorf("Reason = %q, want first", got)
	}
}
