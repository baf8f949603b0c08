// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/pkg/fspath"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// SourceRoot is a directory to list, plus an optional glob relative to it.
// Dir never contains glob metacharacters.
type SourceRoot struct {
	Dir     uri.URI
	Pattern string
}

// String returns the root as "dir" or "dir/pattern".
func (r SourceRoot) String() string {
	if r.Pattern == "" {
		return r.Dir.String()
	}
	return r.Dir.JoinPath(r.Pattern).String()
}

// ConfiguredPaths returns the enabled location strings of a category in
// resolution order: the default folder first unless it is explicitly
// disabled, then every configured entry whose value is true. Entries whose
// value is not a boolean are treated as absent.
func (d *Discovery) ConfiguredPaths(cat promptfile.Category) ([]string, []Diagnostic) {
	entries := d.cfg.Get().Locations(cat)
	def := cat.DefaultSourceFolder()

	var (
		diags    []Diagnostic
		explicit []string
		defaultOn = true
	)
	for _, e := range entries {
		if ok, errs := e.IsValid(); !ok {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeLocationInvalid,
				Message:  "skipping invalid location entry",
				Path:     e.Path,
				Cause:    errs[0],
			})
			continue
		}
		enabled, ok := e.Bool()
		if !ok {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeLocationDisabledValue,
				Message:  fmt.Sprintf("location value %v is not a boolean and is ignored", e.Enabled),
				Path:     e.Path,
			})
			continue
		}
		p := strings.TrimSpace(e.Path)
		if samePath(p, def) {
			defaultOn = enabled
			continue
		}
		if enabled && !slices.Contains(explicit, p) {
			explicit = append(explicit, p)
		}
	}

	var out []string
	if defaultOn && def != "" {
		out = append(out, def)
	}
	out = append(out, explicit...)
	for _, diag := range diags {
		d.logger.Warn(diag.Message, diag.logArgs()...)
	}
	return out, diags
}

func samePath(a, b string) bool {
	norm := func(p string) string {
		p = filepath.ToSlash(p)
		p = strings.TrimPrefix(p, "./")
		return strings.TrimRight(p, "/")
	}
	return norm(a) == norm(b)
}

// resolve turns a configured location into absolute URIs: one per workspace
// folder for relative paths, a single one otherwise.
func (d *Discovery) resolve(p string) ([]uri.URI, error) {
	slash := filepath.ToSlash(p)
	switch {
	case strings.HasPrefix(slash, "~/") || slash == "~":
		if d.userHome.IsZero() {
			return nil, fmt.Errorf("cannot resolve %q: user home directory unknown", p)
		}
		return []uri.URI{d.userHome.JoinPath(strings.TrimPrefix(strings.TrimPrefix(slash, "~"), "/"))}, nil
	case strings.HasPrefix(slash, "/"):
		return []uri.URI{uri.FromPath(slash).WithAuthority(d.ws.RemoteAuthority())}, nil
	case filepath.IsAbs(p):
		return []uri.URI{uri.File(p).WithAuthority(d.ws.RemoteAuthority())}, nil
	}

	folders := d.ws.Folders()
	out := make([]uri.URI, 0, len(folders))
	for _, f := range folders {
		out = append(out, f.URI.JoinPath(slash))
	}
	return out, nil
}

// ConfigBasedSourceFolders returns the folders new files of cat would be
// created in. Trailing "any file" patterns are stripped. Locations that
// still contain a glob afterwards are not folders and are left out.
func (d *Discovery) ConfigBasedSourceFolders(cat promptfile.Category) []uri.URI {
	paths, _ := d.ConfiguredPaths(cat)

	var out []uri.URI
	for _, p := range paths {
		stripped := fspath.StripAnyFilePattern(filepath.ToSlash(p), cat.FileExtension())
		if fspath.ContainsGlob(stripped) {
			continue
		}
		resolved, err := d.resolve(stripped)
		if err != nil {
			d.logger.Warn("skipping unresolvable location", "path", p, "error", err)
			continue
		}
		for _, u := range resolved {
			if !slices.Contains(out, u) {
				out = append(out, u)
			}
		}
	}
	return out
}

// SourceRoots resolves the workspace-tier roots of cat. Each configured
// location is split at its first glob segment.
func (d *Discovery) SourceRoots(cat promptfile.Category) SourceRootsResult {
	paths, diags := d.ConfiguredPaths(cat)

	var roots []SourceRoot
	for _, p := range paths {
		resolved, err := d.resolve(p)
		if err != nil {
			diag := Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeLocationInvalid,
				Message:  "skipping unresolvable location",
				Path:     p,
				Cause:    err,
			}
			d.logger.Warn(diag.Message, diag.logArgs()...)
			diags = append(diags, diag)
			continue
		}
		for _, u := range resolved {
			base, pattern := fspath.SplitAtFirstGlobSegment(u.Path)
			dir := u
			dir.Path = base
			root := SourceRoot{Dir: dir, Pattern: pattern}
			if !slices.Contains(roots, root) {
				roots = append(roots, root)
			}
		}
	}
	return SourceRootsResult{Roots: roots, Diagnostics: diags}
}

// configKeys returns the settings keys whose change can alter the result of
// listing cat.
func configKeys(cat promptfile.Category) []string {
	return []string{config.LocationsKey(cat), config.KeySearchExclude, config.KeySearchUseIgnoreFiles}
}
