// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

type row struct {
	file, applyTo, description string
}

// buildListing renders the discovered instruction files, nested AGENTS.md
// files and skills as markdown tables the consumer can fetch on demand.
func (c *Collector) buildListing(ctx context.Context, files []promptfile.Descriptor, ac *AttachedContext, tel *Telemetry) string {
	var rows []row
	listed := func(u uri.URI) {
		if !ac.HasInstruction(u) {
			tel.ListedButNotIncluded++
		}
	}

	for _, d := range files {
		r := row{file: d.URI.FSPath(), description: d.Description}
		if pf := c.parse(ctx, d.URI); pf != nil && pf.Header != nil {
			r.applyTo = pf.Header.ApplyTo
			if pf.Header.Description != "" {
				r.description = pf.Header.Description
			}
		}
		rows = append(rows, r)
		listed(d.URI)
	}

	if c.cfg.Get().Chat.UseNestedAgentsMDFiles {
		for _, u := range c.prompts.ListAgentMDs(ctx, true) {
			if ac.HasInstruction(u) {
				continue
			}
			rows = append(rows, row{file: u.FSPath(), description: c.folderDescription(u)})
			listed(u)
		}
	}

	var sb strings.Builder
	if len(rows) > 0 {
		fmt.Fprintf(&sb, "Here is a list of instruction files that contain rules for working with this codebase.\n")
		fmt.Fprintf(&sb, "If a file is not already attached, use the `%s` tool to read it before making changes it applies to.\n\n", c.readFileTool)
		sb.WriteString("| File | Applies To | Description |\n")
		sb.WriteString("| ---- | ---------- | ----------- |\n")
		for _, r := range rows {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", cell(r.file), cell(r.applyTo), cell(r.description))
		}
	}

	skills, err := c.prompts.FindClaudeSkills(ctx)
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		c.logger.Debug("skills not listed", "error", err)
	case len(skills) > 0:
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Here is a list of skills. Use the `%s` tool to read a skill's file when the task calls for it.\n\n", c.readFileTool)
		sb.WriteString("| Skill | File | Description |\n")
		sb.WriteString("| ----- | ---- | ----------- |\n")
		for _, s := range skills {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", cell(s.Name), cell(s.URI.FSPath()), cell(s.Description))
		}
	}
	return sb.String()
}

// cell makes s safe for a single markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
