// SPDX-License-Identifier: MPL-2.0

package fsys

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/invowk/promptscan/pkg/uri"
)

// errMaxResults stops the walk once the result cap is reached.
var errMaxResults = errors.New("max results reached")

// ignoreScope is a compiled .gitignore and the directory it applies to.
type ignoreScope struct {
	dir     string // slash path
	matcher *gitignore.GitIgnore
}

// FileSearch walks q.Folder and returns the files whose path relative to
// the folder matches q.FilePattern. A missing folder yields no results.
// Cancellation returns ctx.Err().
func (l *Local) FileSearch(ctx context.Context, q FileQuery) ([]uri.URI, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := osPath(q.Folder)
	if err != nil {
		return nil, err
	}
	if q.FilePattern != "" && !doublestar.ValidatePattern(q.FilePattern) {
		return nil, doublestar.ErrBadPattern
	}

	var scopes []ignoreScope
	if !q.DisregardIgnoreFiles {
		scopes = l.ancestorIgnores(root)
	}

	var out []uri.URI
	walkErr := afero.Walk(l.fs, root, func(p string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == root {
				return err
			}
			return nil //nolint:nilerr // unreadable subtrees are skipped
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil //nolint:nilerr // the root itself is never a result
		}
		rel = filepath.ToSlash(rel)
		abs := filepath.ToSlash(p)

		if info.IsDir() {
			if excluded(q.ExcludePattern, rel+"/") || excluded(q.ExcludePattern, rel) || ignored(scopes, abs, true) {
				return filepath.SkipDir
			}
			if !q.DisregardIgnoreFiles {
				if scope, ok := l.loadIgnore(abs); ok {
					scopes = append(scopes, scope)
				}
			}
			return nil
		}

		if excluded(q.ExcludePattern, rel) || ignored(scopes, abs, false) {
			return nil
		}
		if q.FilePattern != "" {
			if ok, _ := doublestar.Match(q.FilePattern, rel); !ok {
				return nil
			}
		}
		out = append(out, q.Folder.JoinPath(rel))
		if q.MaxResults > 0 && len(out) >= q.MaxResults {
			return errMaxResults
		}
		return nil
	})

	switch {
	case walkErr == nil, errors.Is(walkErr, errMaxResults):
		return out, nil
	case errors.Is(walkErr, fs.ErrNotExist):
		return nil, nil
	default:
		return nil, walkErr
	}
}

func excluded(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// ignored applies every scope whose directory contains abs.
func ignored(scopes []ignoreScope, abs string, isDir bool) bool {
	for _, s := range scopes {
		rel, ok := strings.CutPrefix(abs, strings.TrimSuffix(s.dir, "/")+"/")
		if !ok {
			continue
		}
		if isDir {
			rel += "/"
		}
		if s.matcher.MatchesPath(rel) {
			return true
		}
	}
	return false
}

// ancestorIgnores loads the .gitignore files of root and its parents.
func (l *Local) ancestorIgnores(root string) []ignoreScope {
	var scopes []ignoreScope
	dir := filepath.ToSlash(root)
	for {
		if scope, ok := l.loadIgnore(dir); ok {
			scopes = append(scopes, scope)
		}
		parent := path.Dir(dir)
		if parent == dir {
			return scopes
		}
		dir = parent
	}
}

func (l *Local) loadIgnore(dir string) (ignoreScope, bool) {
	data, err := afero.ReadFile(l.fs, filepath.FromSlash(path.Join(dir, ".gitignore")))
	if err != nil {
		return ignoreScope{}, false
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ignoreScope{}, false
	}
	return ignoreScope{dir: dir, matcher: gitignore.CompileIgnoreLines(lines...)}, true
}
