// SPDX-License-Identifier: MPL-2.0

package fsys_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/internal/testutil"
	"github.com/invowk/promptscan/pkg/uri"
)

func newMemFS(t *testing.T, files map[string]string) *fsys.Local {
	t.Helper()
	afs := afero.NewMemMapFs()
	testutil.WriteFiles(t, afs, files)
	return fsys.New(afs)
}

func paths(uris []uri.URI) []string {
	out := make([]string, 0, len(uris))
	for _, u := range uris {
		out = append(out, u.Path)
	}
	return out
}

// TestResolveListsChildren returns one level of sorted children.
func TestResolveListsChildren(t *testing.T) {
	t.Parallel()

	fs := newMemFS(t, map[string]string{
		"/proj/b.md":        "b",
		"/proj/a.md":        "a",
		"/proj/sub/deep.md": "d",
	})

	st, err := fs.Resolve(context.Background(), uri.FromPath("/proj"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !st.IsDirectory || st.IsFile {
		t.Fatalf("Resolve() = %+v, want a directory", st)
	}
	var got []string
	for _, c := range st.Children {
		got = append(got, c.URI.Path)
	}
	if diff := cmp.Diff([]string{"/proj/a.md", "/proj/b.md", "/proj/sub"}, got); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

// TestResolveMissing wraps ErrNotFound.
func TestResolveMissing(t *testing.T) {
	t.Parallel()

	fs := newMemFS(t, nil)
	if _, err := fs.Resolve(context.Background(), uri.FromPath("/nope")); !errors.Is(err, fsys.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
	if _, err := fs.ReadFile(context.Background(), uri.FromPath("/nope")); !errors.Is(err, fsys.ErrNotFound) {
		t.Errorf("ReadFile() error = %v, want ErrNotFound", err)
	}
	if _, err := fs.Resolve(context.Background(), uri.Untitled("Untitled-1")); !errors.Is(err, fsys.ErrUnsupportedScheme) {
		t.Errorf("Resolve(untitled) error = %v, want ErrUnsupportedScheme", err)
	}
}

// TestResolveAll reports per-uri success.
func TestResolveAll(t *testing.T) {
	t.Parallel()

	fs := newMemFS(t, map[string]string{"/proj/a.md": "a"})
	res := fs.ResolveAll(context.Background(), []uri.URI{uri.FromPath("/proj/a.md"), uri.FromPath("/proj/x.md")})
	if len(res) != 2 {
		t.Fatalf("len = %d", len(res))
	}
	if !res[0].Success() || !res[0].Stat.IsFile {
		t.Errorf("res[0] = %+v", res[0])
	}
	if res[1].Success() {
		t.Errorf("res[1] should fail: %+v", res[1])
	}
}

// TestCancelledContext short-circuits every call.
func TestCancelledContext(t *testing.T) {
	t.Parallel()

	fs := newMemFS(t, map[string]string{"/proj/a.md": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fs.Resolve(ctx, uri.FromPath("/proj")); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v", err)
	}
	if _, err := fs.FileSearch(ctx, fsys.FileQuery{Folder: uri.FromPath("/proj")}); !errors.Is(err, context.Canceled) {
		t.Errorf("FileSearch() error = %v", err)
	}
	if fs.Exists(ctx, uri.FromPath("/proj/a.md")) {
		t.Error("Exists() should be false on a cancelled context")
	}
}

// TestFileSearch covers pattern matching, excludes and ignore files.
func TestFileSearch(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/proj/.gitignore":                     "build/\n# comment\n*.tmp.md\n",
		"/proj/docs/a.instructions.md":         "",
		"/proj/docs/nested/b.instructions.md":  "",
		"/proj/docs/c.prompt.md":               "",
		"/proj/build/d.instructions.md":        "",
		"/proj/docs/e.tmp.md":                  "",
		"/proj/node_modules/f.instructions.md": "",
	}

	tests := []struct {
		name  string
		query fsys.FileQuery
		want  []string
	}{
		{
			name: "pattern with ignore files",
			query: fsys.FileQuery{
				Folder:         uri.FromPath("/proj"),
				FilePattern:    "**/*.instructions.md",
				ExcludePattern: []string{"**/node_modules/**"},
			},
			want: []string{"/proj/docs/a.instructions.md", "/proj/docs/nested/b.instructions.md"},
		},
		{
			name: "disregard ignore files",
			query: fsys.FileQuery{
				Folder:               uri.FromPath("/proj"),
				FilePattern:          "**/*.instructions.md",
				ExcludePattern:       []string{"**/node_modules/**"},
				DisregardIgnoreFiles: true,
			},
			want: []string{
				"/proj/build/d.instructions.md",
				"/proj/docs/a.instructions.md",
				"/proj/docs/nested/b.instructions.md",
			},
		},
		{
			name: "nested folder inherits parent ignore file",
			query: fsys.FileQuery{
				Folder: uri.FromPath("/proj/docs"),
			},
			want: []string{
				"/proj/docs/a.instructions.md",
				"/proj/docs/c.prompt.md",
				"/proj/docs/nested/b.instructions.md",
			},
		},
		{
			name:  "max results",
			query: fsys.FileQuery{Folder: uri.FromPath("/proj/docs"), FilePattern: "*.md", MaxResults: 1},
			want:  []string{"/proj/docs/a.instructions.md"},
		},
		{
			name:  "missing folder",
			query: fsys.FileQuery{Folder: uri.FromPath("/missing"), FilePattern: "**"},
			want:  nil,
		},
	}

	fs := newMemFS(t, files)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := fs.FileSearch(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("FileSearch() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, paths(got)); diff != "" {
				t.Errorf("FileSearch() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestFileSearchBadPattern rejects malformed globs.
func TestFileSearchBadPattern(t *testing.T) {
	t.Parallel()

	fs := newMemFS(t, map[string]string{"/proj/a.md": ""})
	if _, err := fs.FileSearch(context.Background(), fsys.FileQuery{Folder: uri.FromPath("/proj"), FilePattern: "[x"}); err == nil {
		t.Error("FileSearch() with a bad pattern should fail")
	}
}

// TestNotifyChanged fans published batches out to subscribers.
func TestNotifyChanged(t *testing.T) {
	t.Parallel()

	fs := newMemFS(t, nil)
	var got []fsys.FileChanges
	unsubscribe := fs.OnDidFilesChange()(func(c fsys.FileChanges) { got = append(got, c) })
	defer unsubscribe()

	fs.NotifyChanged(fsys.FileChanges{})
	fs.NotifyChanged(fsys.FileChanges{Added: []uri.URI{uri.FromPath("/proj/a.md")}})

	if len(got) != 1 {
		t.Fatalf("got %d batches, want 1", len(got))
	}
	if !got[0].Affects(uri.FromPath("/proj")) || got[0].Affects(uri.FromPath("/other")) {
		t.Errorf("Affects() wrong for %+v", got[0])
	}
}

// TestUpdateReadonly clears and restores the write bits.
func TestUpdateReadonly(t *testing.T) {
	t.Parallel()

	afs := afero.NewMemMapFs()
	testutil.WriteFiles(t, afs, map[string]string{"/ext/a.prompt.md": "x"})
	fs := fsys.New(afs)
	u := uri.FromPath("/ext/a.prompt.md")

	if err := fs.UpdateReadonly(context.Background(), u, true); err != nil {
		t.Fatalf("UpdateReadonly(true) error = %v", err)
	}
	info, _ := afs.Stat("/ext/a.prompt.md")
	if info.Mode().Perm()&0o222 != 0 {
		t.Errorf("mode = %v, want no write bits", info.Mode())
	}
	if err := fs.UpdateReadonly(context.Background(), u, false); err != nil {
		t.Fatalf("UpdateReadonly(false) error = %v", err)
	}
	info, _ = afs.Stat("/ext/a.prompt.md")
	if info.Mode().Perm()&0o200 == 0 {
		t.Errorf("mode = %v, want owner write", info.Mode())
	}
}

// TestWatchOS reports real filesystem changes through the change stream.
func TestWatchOS(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := fsys.NewOS()
	root := uri.File(dir)

	got := make(chan fsys.FileChanges, 4)
	unsubscribe := fs.OnDidFilesChange()(func(c fsys.FileChanges) { got <- c })
	defer unsubscribe()

	stop, err := fs.Watch(root, fsys.WatchOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer stop()

	if err := os.WriteFile(filepath.Join(dir, "a.prompt.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-got:
		if !c.Affects(root.JoinPath("a.prompt.md")) {
			t.Errorf("change %+v does not include a.prompt.md", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

// TestWatchInertOnMemFS returns a no-op stop function.
func TestWatchInertOnMemFS(t *testing.T) {
	t.Parallel()

	fs := newMemFS(t, map[string]string{"/proj/a.md": ""})
	stop, err := fs.Watch(uri.FromPath("/proj"), fsys.WatchOptions{})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	stop()
	stop()
}
