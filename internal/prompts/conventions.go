// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"fmt"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// ListAgentMDs returns the AGENTS.md files of the workspace: only those at
// folder roots, or every one when includeNested is set. It returns nothing
// when AGENTS.md support is turned off.
func (s *Service) ListAgentMDs(ctx context.Context, includeNested bool) []uri.URI {
	if !s.cfg.Get().Chat.UseAgentsMDFile {
		return nil
	}
	if includeNested {
		return s.disc.FindAgentMDsInWorkspace(ctx)
	}
	return s.disc.FindAgentMDsInWorkspaceRoots(ctx)
}

// ListCopilotInstructionsMDs returns the .github/copilot-instructions.md
// files of the workspace folders.
func (s *Service) ListCopilotInstructionsMDs(ctx context.Context) []uri.URI {
	if !s.cfg.Get().Chat.UseCopilotInstructionFiles {
		return nil
	}
	return s.disc.FindCopilotInstructionsMDs(ctx)
}

// FindClaudeSkills returns the project and personal skills. It returns
// ErrSkillsDisabled when skills are turned off. Skills without a name are
// logged and dropped.
func (s *Service) FindClaudeSkills(ctx context.Context) ([]promptfile.Skill, error) {
	if !s.cfg.Get().Chat.UseClaudeSkills {
		return nil, ErrSkillsDisabled
	}

	var out []promptfile.Skill
	collect := func(uris []uri.URI, typ promptfile.SkillType) {
		for _, u := range uris {
			skill, err := s.parseSkill(ctx, u, typ)
			if err != nil {
				s.logger.Warn("skipping skill", "uri", u.String(), "error", err)
				continue
			}
			out = append(out, skill)
		}
	}
	collect(s.disc.FindClaudeSkillsInWorkspace(ctx), promptfile.SkillTypeProject)
	collect(s.disc.FindClaudeSkillsInUserHome(ctx), promptfile.SkillTypePersonal)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) parseSkill(ctx context.Context, u uri.URI, typ promptfile.SkillType) (promptfile.Skill, error) {
	pf, err := s.ParseNew(ctx, u)
	if err != nil {
		return promptfile.Skill{}, err
	}
	if pf.Header == nil || pf.Header.Name == "" {
		return promptfile.Skill{}, fmt.Errorf("%w: %s", ErrSkillNameMissing, u)
	}
	return promptfile.Skill{
		URI:         u,
		Type:        typ,
		Name:        pf.Header.Name,
		Description: pf.Header.Description,
	}, nil
}
