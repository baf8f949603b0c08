// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"context"
	"fmt"

	"github.com/invowk/promptscan/pkg/uri"
)

// addConventionFiles attaches the copilot-instructions.md files and the
// AGENTS.md files at workspace folder roots. It returns the URIs it added.
// Nested AGENTS.md files are left to the listing.
func (c *Collector) addConventionFiles(ctx context.Context, ac *AttachedContext, tel *Telemetry) []uri.URI {
	if ctx.Err() != nil {
		return nil
	}
	var added []uri.URI
	attach := func(u uri.URI, reason, description string) {
		if ac.AddInstruction(Entry{URI: u, Reason: reason, Description: description, Automatic: true}) {
			tel.AgentOrRootInstructionFiles++
			added = append(added, u)
		}
	}

	for _, u := range c.prompts.ListCopilotInstructionsMDs(ctx) {
		attach(u, "automatically attached as repository instructions", "")
	}
	for _, u := range c.prompts.ListAgentMDs(ctx, false) {
		attach(u, "automatically attached as agent instructions", c.folderDescription(u))
	}
	if ctx.Err() != nil {
		return nil
	}
	return added
}

// folderDescription describes the instructions held by the AGENTS.md file u.
func (c *Collector) folderDescription(u uri.URI) string {
	dir := u.Dir()
	if f, ok := c.ws.FolderFor(dir); ok && f.URI == dir {
		return fmt.Sprintf("instructions for folder %s", f.Name)
	}
	return fmt.Sprintf("instructions for folder %s", c.ws.Label(dir))
}
