// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// MustSetenv sets the environment variable key to value.
// It returns a cleanup function that restores the original value (or unsets it).
// The test fails immediately if the operation fails.
func MustSetenv(t testing.TB, key, value string) func() {
	t.Helper()
	originalValue, hadValue := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	return func() {
		if hadValue {
			if err := os.Setenv(key, originalValue); err != nil {
				t.Errorf("failed to restore env %s: %v", key, err)
			}
		} else {
			if err := os.Unsetenv(key); err != nil {
				t.Errorf("failed to unset env %s: %v", key, err)
			}
		}
	}
}

// SetHomeDir points the platform's home variable at dir and returns a
// cleanup function.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()
	if runtime.GOOS == "windows" {
		return MustSetenv(t, "USERPROFILE", dir)
	}
	return MustSetenv(t, "HOME", dir)
}

// WriteFiles creates every file in files (path to content) on fs, creating
// parent directories as needed. Paths are slash-separated and absolute.
func WriteFiles(t testing.TB, fs afero.Fs, files map[string]string) {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		MustMkdirAll(t, fs, path.Dir(p))
		if err := afero.WriteFile(fs, filepath.FromSlash(p), []byte(files[p]), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
}

// MustMkdirAll creates dir and its parents on fs.
func MustMkdirAll(t testing.TB, fs afero.Fs, dir string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.FromSlash(dir), 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
}

// MustRemove deletes p from fs.
func MustRemove(t testing.TB, fs afero.Fs, p string) {
	t.Helper()
	if err := fs.RemoveAll(filepath.FromSlash(p)); err != nil {
		t.Fatalf("failed to remove %s: %v", p, err)
	}
}
