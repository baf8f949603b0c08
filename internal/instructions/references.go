// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"context"
	"fmt"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// AddReferencedInstructions follows the file references of seeds
// transitively. Each URI is visited at most once, so reference cycles
// terminate. Referenced files are attached when they are inside the
// workspace or are themselves prompt files; prompt and instruction files
// are followed further.
func (c *Collector) AddReferencedInstructions(ctx context.Context, seeds []uri.URI, ac *AttachedContext, tel *Telemetry) {
	seen := make(map[uri.URI]struct{}, len(seeds))
	for _, s := range ac.InstructionURIs() {
		seen[s] = struct{}{}
	}
	stack := make([]uri.URI, 0, len(seeds))
	for _, s := range seeds {
		seen[s] = struct{}{}
		stack = append(stack, s)
	}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return
		}
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pf := c.parse(ctx, next)
		if pf == nil || pf.Body == nil {
			continue
		}

		var candidates []uri.URI
		for _, ref := range pf.Body.FileReferences {
			target, ok := pf.Body.ResolveReference(ref.Text)
			if !ok {
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			candidates = append(candidates, target)
		}
		if len(candidates) == 0 {
			continue
		}

		reason := fmt.Sprintf("referenced by `%s`", next.Base())
		for _, res := range c.fs.ResolveAll(ctx, candidates) {
			if !res.Success() || !res.Stat.IsFile {
				continue
			}
			cat, isPromptFile := promptfile.CategoryForFile(res.URI)
			if isPromptFile && cat != promptfile.CategoryAgent {
				stack = append(stack, res.URI)
			}
			if !isPromptFile && !c.ws.Contains(res.URI) {
				continue
			}
			if ac.AddInstruction(Entry{URI: res.URI, Reason: reason, Automatic: true}) {
				tel.PulledInByReference++
			}
		}
	}
}
