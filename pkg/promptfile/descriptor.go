// SPDX-License-Identifier: MPL-2.0

package promptfile

import "github.com/invowk/promptscan/pkg/uri"

const (
	// SkillTypeProject marks skills found under a workspace folder.
	SkillTypeProject SkillType = "project"
	// SkillTypePersonal marks skills found under the user home directory.
	SkillTypePersonal SkillType = "personal"
)

type (
	// Descriptor describes a discovered prompt file. Its identity is URI.
	Descriptor struct {
		URI      uri.URI
		Storage  Storage
		Category Category
		// Name and Description are only set for contributed files.
		Name        string
		Description string
		// ExtensionID names the contributing extension (extension storage only).
		ExtensionID string
	}

	// SkillType distinguishes project skills from personal ones.
	SkillType string

	// Skill is a discovered `.claude/skills/<dir>/SKILL.md` definition.
	Skill struct {
		URI         uri.URI
		Type        SkillType
		Name        string
		Description string
	}
)
