// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalogued issue.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	WorkspaceNotFoundId
	InvalidCategoryId
	InvalidStorageId
	StateStoreFailedId
	NoPromptFilesId
	SkillsDisabledId
)

type MarkdownMsg string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id    Id          // ID used to lookup the issue
	mdMsg MarkdownMsg // Markdown text that will be rendered
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the issue's markdown for the terminal.
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the effective defaults:
~~~
$ promptscan config show
~~~
- Locations are lists of entries, not maps:
~~~cue
chat: prompt_locations: [
  {path: ".github/prompts", enabled: true},
]
~~~`,
	}

	workspaceNotFoundIssue = &Issue{
		id: WorkspaceNotFoundId,
		mdMsg: `
# Workspace folder not found

One of the ` + "`--workspace`" + ` folders does not exist or is not a directory.

## Things you can try:
- Pass existing directories, one flag per folder:
~~~
$ promptscan list --workspace ./app --workspace ./lib
~~~`,
	}

	invalidCategoryIssue = &Issue{
		id: InvalidCategoryId,
		mdMsg: `
# Unknown category

Valid categories are ` + "`instructions`, `prompt` and `agent`" + `.`,
	}

	invalidStorageIssue = &Issue{
		id: InvalidStorageId,
		mdMsg: `
# Unknown storage tier

Valid storage tiers are ` + "`local`, `user` and `extension`" + `.`,
	}

	stateStoreFailedIssue = &Issue{
		id: StateStoreFailedId,
		mdMsg: `
# Failed to open the state database

The disabled-files state is kept in a SQLite database.

## Things you can try:
- Check that the directory of the ` + "`--state`" + ` path exists and is writable.
- Omit ` + "`--state`" + ` to keep state in memory for this run.`,
	}

	noPromptFilesIssue = &Issue{
		id: NoPromptFilesId,
		mdMsg: `
# No prompt files found

Nothing matched the configured locations.

## Search locations:
1. ` + "`.github/instructions`, `.github/prompts` and `.github/agents`" + ` in each workspace folder
2. Locations configured in ` + "`chat.*_locations`" + `
3. The user profile folder

## Things you can try:
~~~
$ promptscan sources
~~~`,
	}

	skillsDisabledIssue = &Issue{
		id: SkillsDisabledId,
		mdMsg: `
# Skills are disabled

Enable them in the configuration:
~~~cue
chat: use_claude_skills: true
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		workspaceNotFoundIssue.Id(): workspaceNotFoundIssue,
		invalidCategoryIssue.Id():   invalidCategoryIssue,
		invalidStorageIssue.Id():    invalidStorageIssue,
		stateStoreFailedIssue.Id():  stateStoreFailedIssue,
		noPromptFilesIssue.Id():     noPromptFilesIssue,
		skillsDisabledIssue.Id():    skillsDisabledIssue,
	}
)

func Values() []*Issue {
	return slices.Collect(maps.Values(issues))
}

func Get(id Id) *Issue {
	return issues[id]
}
