// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"strings"

	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

const (
	githubFolder = ".github"
	skillsFolder = ".claude/skills"
)

// FindAgentMDsInWorkspaceRoots returns the AGENTS.md file directly inside
// each workspace folder. The name is matched case-insensitively.
func (d *Discovery) FindAgentMDsInWorkspaceRoots(ctx context.Context) []uri.URI {
	var out []uri.URI
	for _, f := range d.ws.Folders() {
		st, err := d.fs.Resolve(ctx, f.URI)
		if err != nil {
			continue
		}
		for _, c := range st.Children {
			if c.IsFile && strings.EqualFold(c.URI.Base(), promptfile.AgentsMDFile) {
				out = append(out, c.URI)
			}
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return out
}

// FindAgentMDsInWorkspace searches every workspace folder for AGENTS.md
// files at any depth, honouring the search excludes.
func (d *Discovery) FindAgentMDsInWorkspace(ctx context.Context) []uri.URI {
	cfg := d.cfg.Get()
	var out []uri.URI
	for _, f := range d.ws.Folders() {
		found, err := d.search.FileSearch(ctx, fsys.FileQuery{
			Folder:               f.URI,
			FilePattern:          "**/" + promptfile.AgentsMDFile,
			ExcludePattern:       cfg.Search.Exclude,
			DisregardIgnoreFiles: !cfg.Search.UseIgnoreFiles,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Warn("AGENTS.md search failed", "path", f.URI.String(), "error", err)
			continue
		}
		out = append(out, found...)
	}
	return out
}

// FindCopilotInstructionsMDs returns the .github/copilot-instructions.md
// file of every workspace folder that has one.
func (d *Discovery) FindCopilotInstructionsMDs(ctx context.Context) []uri.URI {
	folders := d.ws.Folders()
	candidates := make([]uri.URI, 0, len(folders))
	for _, f := range folders {
		candidates = append(candidates, f.URI.JoinPath(githubFolder, promptfile.CopilotInstructionsFile))
	}
	return d.existingFiles(ctx, candidates)
}

// FindClaudeSkillsInWorkspace returns the SKILL.md files under each
// workspace folder's .claude/skills directory.
func (d *Discovery) FindClaudeSkillsInWorkspace(ctx context.Context) []uri.URI {
	var out []uri.URI
	for _, f := range d.ws.Folders() {
		out = append(out, d.findSkills(ctx, f.URI.JoinPath(skillsFolder))...)
	}
	return out
}

// FindClaudeSkillsInUserHome returns the SKILL.md files under
// ~/.claude/skills.
func (d *Discovery) FindClaudeSkillsInUserHome(ctx context.Context) []uri.URI {
	if d.userHome.IsZero() {
		return nil
	}
	return d.findSkills(ctx, d.userHome.JoinPath(skillsFolder))
}

// findSkills checks every direct subfolder of root for a SKILL.md file.
func (d *Discovery) findSkills(ctx context.Context, root uri.URI) []uri.URI {
	st, err := d.fs.Resolve(ctx, root)
	if err != nil || !st.IsDirectory {
		return nil
	}
	var candidates []uri.URI
	for _, c := range st.Children {
		if c.IsDirectory {
			candidates = append(candidates, c.URI.JoinPath(promptfile.SkillFile))
		}
	}
	return d.existingFiles(ctx, candidates)
}

// existingFiles resolves candidates in one batch and keeps the regular files.
func (d *Discovery) existingFiles(ctx context.Context, candidates []uri.URI) []uri.URI {
	if len(candidates) == 0 {
		return nil
	}
	var out []uri.URI
	for _, r := range d.fs.ResolveAll(ctx, candidates) {
		if r.Success() && r.Stat.IsFile {
			out = append(out, r.URI)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return out
}
