// SPDX-License-Identifier: MPL-2.0

// Package fspath provides pure helpers for slash-separated paths that may
// carry glob patterns. None of these functions touch the filesystem.
package fspath

import "strings"

// IsLikelyGlob reports whether s contains an unescaped glob metacharacter.
//
// A backslash escapes the character that follows it. An unescaped `*` or `?`
// is always a glob. A `]` (or `}`) only counts when an unescaped `[` (or `{`)
// is still open, so unbalanced brackets such as "repo[1,2,3" or "repo1,2,3]"
// are treated as literal text.
func IsLikelyGlob(s string) bool {
	brackets, braces := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '*', '?':
			return true
		case '[':
			brackets++
		case ']':
			if brackets > 0 {
				return true
			}
		case '{':
			braces++
		case '}':
			if braces > 0 {
				return true
			}
		}
	}
	return false
}

// SplitAtFirstGlobSegment splits a slash-separated path at its first segment
// that looks like a glob. base holds the segments before it and pattern the
// rest, re-joined with "/". pattern is empty when the path has no glob
// segment, or when the only glob is a trailing "*" (a directory listing
// of base is enough in that case).
func SplitAtFirstGlobSegment(p string) (base, pattern string) {
	segments := strings.Split(p, "/")
	idx := -1
	for i, seg := range segments {
		if IsLikelyGlob(seg) {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(p) > 1 {
			p = strings.TrimRight(p, "/")
		}
		return p, ""
	}

	base = joinBase(segments[:idx], strings.HasPrefix(p, "/"))
	rest := segments[idx:]
	if len(rest) == 1 && (rest[0] == "*" || rest[0] == "") {
		return base, ""
	}
	return base, strings.Join(rest, "/")
}

// StripAnyFilePattern removes a trailing "any file" segment (`*`, `*.md` or
// `*` + ext) from p. The result is a folder path suitable as a target for
// new files. Paths without such a suffix are returned unchanged, minus any
// trailing slash.
func StripAnyFilePattern(p, ext string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return p
	}
	dir, last := "", trimmed
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		dir, last = trimmed[:i], trimmed[i+1:]
	}
	switch {
	case last == "*", last == "*.md", ext != "" && last == "*"+ext:
		if dir == "" && strings.HasPrefix(trimmed, "/") {
			return "/"
		}
		return dir
	default:
		return trimmed
	}
}

// ContainsGlob reports whether any segment of the slash-separated path p
// looks like a glob.
func ContainsGlob(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if IsLikelyGlob(seg) {
			return true
		}
	}
	return false
}

func joinBase(segments []string, absolute bool) string {
	base := strings.Join(segments, "/")
	if base == "" && absolute {
		return "/"
	}
	return base
}
