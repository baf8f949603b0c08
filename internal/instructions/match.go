// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// Match is the outcome of matching applyTo patterns against files.
	Match struct {
		Pattern string
		// File is the first attached file the pattern matched. It is zero
		// when the pattern applies to every file.
		File uri.URI
	}
)

// unconditional reports patterns that apply to every file.
func unconditional(pattern string) bool {
	switch pattern {
	case "**", "**/*", "*":
		return true
	}
	return false
}

// normalizePattern lower-cases pattern and anchors it for matching against a
// path without its leading slash. Patterns not rooted with "/" or "**/"
// match at any depth.
func normalizePattern(pattern string) string {
	p := strings.ToLower(pattern)
	if rooted, ok := strings.CutPrefix(p, "/"); ok {
		return rooted
	}
	if strings.HasPrefix(p, "**/") {
		return p
	}
	return "**/" + p
}

// MatchApplyTo returns the first pattern, in declaration order, that matches
// any of files. Matching ignores case. Invalid patterns never match.
func MatchApplyTo(patterns []string, files []uri.URI) (Match, bool) {
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if unconditional(pattern) {
			return Match{Pattern: pattern}, true
		}
		glob := normalizePattern(pattern)
		for _, f := range files {
			target := strings.TrimPrefix(strings.ToLower(f.Path), "/")
			if ok, err := doublestar.Match(glob, target); err == nil && ok {
				return Match{Pattern: pattern, File: f}, true
			}
		}
	}
	return Match{}, false
}

// AddApplyingInstructions adds every instruction file in files whose applyTo
// patterns match one of the context's plain files.
func (c *Collector) AddApplyingInstructions(ctx context.Context, files []promptfile.Descriptor, ac *AttachedContext, tel *Telemetry) {
	attached := ac.Files()
	for _, d := range files {
		if ctx.Err() != nil {
			return
		}
		if ac.HasInstruction(d.URI) {
			continue
		}
		pf := c.parse(ctx, d.URI)
		if pf == nil {
			continue
		}
		patterns := pf.Header.ApplyToPatterns()
		if len(patterns) == 0 {
			continue
		}
		m, ok := MatchApplyTo(patterns, attached)
		if !ok {
			continue
		}
		if ac.AddInstruction(Entry{
			URI:         d.URI,
			Reason:      c.matchReason(m),
			Description: pf.Header.Description,
			Automatic:   true,
		}) {
			tel.AppliedByGlob++
		}
	}
}

func (c *Collector) matchReason(m Match) string {
	if m.File.IsZero() {
		return fmt.Sprintf("automatically attached as pattern `%s` applies to all files", m.Pattern)
	}
	return fmt.Sprintf("automatically attached as pattern `%s` matches `%s`", m.Pattern, c.ws.Label(m.File))
}
