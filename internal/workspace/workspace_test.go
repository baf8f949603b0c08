// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/promptscan/pkg/uri"
)

// TestLabel covers single-root, multi-root and external resources.
func TestLabel(t *testing.T) {
	t.Parallel()

	single := New([]uri.URI{uri.FromPath("/proj")})
	multi := New([]uri.URI{uri.FromPath("/proj"), uri.FromPath("/lib")})

	tests := []struct {
		name string
		ws   *Workspace
		in   string
		want string
	}{
		{"single nested", single, "/proj/src/a.ts", "src/a.ts"},
		{"single root", single, "/proj", "."},
		{"outside", single, "/etc/hosts", "/etc/hosts"},
		{"multi nested", multi, "/lib/x/y.md", "lib/x/y.md"},
		{"multi root", multi, "/proj", "proj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.ws.Label(uri.FromPath(tt.in)); got != tt.want {
				t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestFolderForPrefersInnermost picks the deepest containing folder.
func TestFolderForPrefersInnermost(t *testing.T) {
	t.Parallel()

	ws := New([]uri.URI{uri.FromPath("/proj"), uri.FromPath("/proj/sub")})
	f, ok := ws.FolderFor(uri.FromPath("/proj/sub/a.md"))
	if !ok || f.Name != "sub" {
		t.Errorf("FolderFor() = %+v, %v", f, ok)
	}
	if ws.Contains(uri.FromPath("/projector/a.md")) {
		t.Error("Contains() matched a sibling with a shared prefix")
	}
}

// TestSetFoldersFiresChange reports added and removed folders once.
func TestSetFoldersFiresChange(t *testing.T) {
	t.Parallel()

	ws := New([]uri.URI{uri.FromPath("/a"), uri.FromPath("/b")})
	var got []FoldersChange
	unsubscribe := ws.OnDidChangeFolders()(func(c FoldersChange) { got = append(got, c) })
	defer unsubscribe()

	ws.SetFolders([]uri.URI{uri.FromPath("/b"), uri.FromPath("/c")})
	ws.SetFolders([]uri.URI{uri.FromPath("/b"), uri.FromPath("/c")})

	if len(got) != 1 {
		t.Fatalf("got %d change events, want 1", len(got))
	}
	added := []string{}
	for _, f := range got[0].Added {
		added = append(added, f.URI.Path)
	}
	removed := []string{}
	for _, f := range got[0].Removed {
		removed = append(removed, f.URI.Path)
	}
	if diff := cmp.Diff([]string{"/c"}, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/a"}, removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
}

// TestNewDeduplicatesRoots keeps the first occurrence of each root.
func TestNewDeduplicatesRoots(t *testing.T) {
	t.Parallel()

	ws := New([]uri.URI{uri.FromPath("/a"), uri.FromPath("/a")}, WithRemoteAuthority("ssh-remote+box"))
	if n := len(ws.Folders()); n != 1 {
		t.Errorf("len(Folders()) = %d, want 1", n)
	}
	if ws.RemoteAuthority() != "ssh-remote+box" {
		t.Errorf("RemoteAuthority() = %q", ws.RemoteAuthority())
	}
}
