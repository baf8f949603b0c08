// SPDX-License-Identifier: MPL-2.0

package documents

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// TestRegistryVersions bumps the version on every update.
func TestRegistryVersions(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	u := uri.FromPath("/proj/a.prompt.md")
	reg.Open(u, "prompt", "v1")

	snap, err := reg.Update(u, "v2")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if snap.Version != 2 || snap.Content != "v2" {
		t.Errorf("Update() = %+v", snap)
	}
	if reopened := reg.Open(u, "prompt", "v3"); reopened.Version != 3 {
		t.Errorf("re-Open() version = %d, want 3", reopened.Version)
	}
	if _, err := reg.Update(uri.FromPath("/nope"), "x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Update(unknown) error = %v", err)
	}

	reg.Close(u)
	if _, ok := reg.Get(u); ok {
		t.Error("Get() after Close should fail")
	}
}

// TestTrackerEmitsForPromptDocuments reports edits of prompt-language
// documents only, including documents open before the tracker existed.
func TestTrackerEmitsForPromptDocuments(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	early := uri.FromPath("/proj/early.agent.md")
	reg.Open(early, "chatagent", "")

	tr := NewTracker(reg, nil)
	defer tr.Close()

	var got []Change
	unsubscribe := tr.OnDidChange()(func(c Change) { got = append(got, c) })
	defer unsubscribe()

	prompt := uri.FromPath("/proj/a.prompt.md")
	plain := uri.FromPath("/proj/main.go")
	reg.Open(prompt, "prompt", "")
	reg.Open(plain, "go", "")

	_, _ = reg.Update(early, "x")
	_, _ = reg.Update(prompt, "x")
	_, _ = reg.Update(plain, "x")

	want := []Change{
		{URI: early, Category: promptfile.CategoryAgent},
		{URI: prompt, Category: promptfile.CategoryPrompt},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	if tr.Tracked(plain) {
		t.Error("non-prompt document is tracked")
	}
}

// TestTrackerLanguageChange removes the old subscription before adding the
// new one, so an edit is reported exactly once with the new category.
func TestTrackerLanguageChange(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	tr := NewTracker(reg, nil)
	defer tr.Close()

	u := uri.FromPath("/proj/x.md")
	reg.Open(u, "prompt", "")

	var got []Change
	unsubscribe := tr.OnDidChange()(func(c Change) { got = append(got, c) })
	defer unsubscribe()

	_, _ = reg.SetLanguage(u, "instructions")
	_, _ = reg.Update(u, "edit")
	_, _ = reg.SetLanguage(u, "markdown")
	_, _ = reg.Update(u, "edit again")

	want := []Change{
		{URI: u, Category: promptfile.CategoryPrompt},
		{URI: u, Category: promptfile.CategoryInstructions},
		{URI: u, Category: promptfile.CategoryInstructions},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	if tr.Tracked(u) {
		t.Error("document still tracked after switching to markdown")
	}
}

// TestTrackerClose reports a closed prompt document and stops afterwards.
func TestTrackerClose(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	tr := NewTracker(reg, nil)

	u := uri.FromPath("/proj/a.prompt.md")
	reg.Open(u, "prompt", "")

	var got []Change
	unsubscribe := tr.OnDidChange()(func(c Change) { got = append(got, c) })
	defer unsubscribe()

	reg.Close(u)
	if len(got) != 1 || got[0].URI != u {
		t.Fatalf("close changes = %+v", got)
	}

	tr.Close()
	other := uri.FromPath("/proj/b.prompt.md")
	reg.Open(other, "prompt", "")
	_, _ = reg.Update(other, "x")
	if len(got) != 1 {
		t.Errorf("tracker emitted after Close: %+v", got)
	}
}
