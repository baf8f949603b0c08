// SPDX-License-Identifier: MPL-2.0

// Package uri models the resource identifiers used across promptscan.
//
// A URI is a comparable value (usable as a map key) made of a scheme, an
// optional authority and a slash-separated absolute path. Local files use the
// "file" scheme, unsaved in-memory documents use "untitled" and files on a
// remote host use "vscode-remote" with the remote authority set.
package uri

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	// SchemeFile identifies local files.
	SchemeFile = "file"
	// SchemeUntitled identifies unsaved in-memory documents.
	SchemeUntitled = "untitled"
	// SchemeRemote identifies files served by a remote host.
	SchemeRemote = "vscode-remote"
)

// ErrInvalid is returned when a string cannot be parsed as a URI.
var ErrInvalid = errors.New("invalid uri")

// URI identifies a resource.
type URI struct {
	Scheme    string
	Authority string
	Path      string
}

// jsonForm is the serialized shape stored in persisted state.
type jsonForm struct {
	Scheme    string `json:"scheme"`
	Authority string `json:"authority,omitempty"`
	Path      string `json:"path"`
}

// File returns a file URI for an OS path. Relative paths are made absolute
// against the current working directory.
func File(p string) URI {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return URI{Scheme: SchemeFile, Path: cleanPath(filepath.ToSlash(p))}
}

// FromPath returns a file URI for a slash-separated absolute path without
// consulting the working directory.
func FromPath(p string) URI {
	return URI{Scheme: SchemeFile, Path: cleanPath(p)}
}

// Untitled returns the URI of an unsaved document.
func Untitled(name string) URI {
	return URI{Scheme: SchemeUntitled, Path: name}
}

// Parse parses the string form produced by String.
func Parse(s string) (URI, error) {
	u, err := url.Parse(s)
	if err != nil {
		return URI{}, fmt.Errorf("%w %q: %w", ErrInvalid, s, err)
	}
	if u.Scheme == "" {
		return URI{}, fmt.Errorf("%w %q: missing scheme", ErrInvalid, s)
	}
	p := u.Path
	if u.Scheme == SchemeUntitled && p == "" {
		p = u.Opaque
	}
	if u.Scheme != SchemeUntitled {
		p = cleanPath(p)
	}
	return URI{Scheme: u.Scheme, Authority: u.Host, Path: p}, nil
}

// String returns the canonical string form.
func (u URI) String() string {
	if u.Scheme == SchemeUntitled {
		return u.Scheme + ":" + u.Path
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Authority, Path: u.Path}).String()
}

// IsZero reports whether u is the zero value.
func (u URI) IsZero() bool {
	return u == URI{}
}

// FSPath returns the OS path of u.
func (u URI) FSPath() string {
	return filepath.FromSlash(u.Path)
}

// JoinPath appends slash-separated elements to the path. A leading "~" or
// ".." element is joined literally and cleaned like any other element.
func (u URI) JoinPath(elem ...string) URI {
	parts := make([]string, 0, len(elem)+1)
	parts = append(parts, u.Path)
	parts = append(parts, elem...)
	u.Path = cleanPath(path.Join(parts...))
	return u
}

// Dir returns the parent of u.
func (u URI) Dir() URI {
	u.Path = path.Dir(u.Path)
	return u
}

// Base returns the last path element.
func (u URI) Base() string {
	return path.Base(u.Path)
}

// WithAuthority returns u rewritten to the remote scheme for authority. An
// empty authority returns u unchanged.
func (u URI) WithAuthority(authority string) URI {
	if authority == "" {
		return u
	}
	u.Scheme = SchemeRemote
	u.Authority = authority
	return u
}

// IsEqualOrParent reports whether u equals parent or lies beneath it.
func (u URI) IsEqualOrParent(parent URI) bool {
	if u.Scheme != parent.Scheme || u.Authority != parent.Authority {
		return false
	}
	if u.Path == parent.Path || parent.Path == "/" {
		return true
	}
	return strings.HasPrefix(u.Path, parent.Path+"/")
}

// RelativeTo returns the slash-separated path of u relative to parent. ok
// is false when u is not beneath parent.
func (u URI) RelativeTo(parent URI) (rel string, ok bool) {
	if !u.IsEqualOrParent(parent) {
		return "", false
	}
	if u.Path == parent.Path {
		return "", true
	}
	return strings.TrimPrefix(strings.TrimPrefix(u.Path, parent.Path), "/"), true
}

// MarshalJSON encodes u in its object form.
func (u URI) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonForm{Scheme: u.Scheme, Authority: u.Authority, Path: u.Path})
}

// UnmarshalJSON accepts the object form or the string form.
func (u *URI) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := Parse(s)
		if perr != nil {
			return perr
		}
		*u = parsed
		return nil
	}
	var f jsonForm
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if f.Scheme == "" || f.Path == "" {
		return fmt.Errorf("%w: missing scheme or path", ErrInvalid)
	}
	*u = URI{Scheme: f.Scheme, Authority: f.Authority, Path: f.Path}
	return nil
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
