// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"slices"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// CustomAgent is an active agent definition.
	CustomAgent struct {
		URI          uri.URI
		Name         string
		Description  string
		Tools        []string
		Model        string
		ArgumentHint string
		Target       string
		HandOffs     []promptfile.HandOff
		Instructions AgentInstructions
		Source       AgentSource
	}

	// AgentInstructions is the body of an agent file.
	AgentInstructions struct {
		Content        string
		ToolReferences []ToolReference
		// Metadata holds the advanced header options.
		Metadata map[string]promptfile.OptionValue
	}

	// ToolReference is a `#tool:<name>` marker in an agent body. Offsets are
	// relative to the start of the body: Start is the marker's '#' and End
	// is Start+len(Name)+1.
	ToolReference struct {
		Name  string
		Start int
		End   int
	}

	// AgentSource tells where an agent came from.
	AgentSource struct {
		Storage     promptfile.Storage
		ExtensionID string
	}
)

// GetCustomAgents returns the agents that are not disabled. Files that fail
// to parse are logged and skipped.
func (s *Service) GetCustomAgents(ctx context.Context) ([]CustomAgent, error) {
	agents, err := s.agents.Get(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(agents), nil
}

// OnDidChangeCustomAgents returns the debounced change event of the agent
// view. Subscribing enables its cache.
func (s *Service) OnDidChangeCustomAgents() event.Event[struct{}] {
	return s.agents.OnDidChange()
}

func (s *Service) computeCustomAgents(ctx context.Context) ([]CustomAgent, error) {
	files, err := s.ListPromptFiles(ctx, promptfile.CategoryAgent)
	if err != nil {
		return nil, err
	}
	disabled := s.GetDisabledPromptFiles(ctx, promptfile.CategoryAgent)

	var out []CustomAgent
	for _, d := range files {
		if _, off := disabled[d.URI]; off {
			continue
		}
		pf, err := s.ParseNew(ctx, d.URI)
		if err != nil {
			s.logger.Warn("failed to parse agent file", "uri", d.URI.String(), "error", err)
			continue
		}
		out = append(out, newCustomAgent(d, pf))
	}
	return out, nil
}

func newCustomAgent(d promptfile.Descriptor, pf *promptfile.ParsedFile) CustomAgent {
	a := CustomAgent{
		URI:    d.URI,
		Name:   d.Name,
		Source: AgentSource{Storage: d.Storage, ExtensionID: d.ExtensionID},
	}
	if h := pf.Header; h != nil {
		if h.Name != "" {
			a.Name = h.Name
		}
		a.Description = h.Description
		a.Tools = h.Tools
		a.Model = h.Model
		a.ArgumentHint = h.ArgumentHint
		a.Target = h.Target
		a.HandOffs = h.HandOffs
		a.Instructions.Metadata = h.Advanced
	}
	if a.Name == "" {
		a.Name = promptfile.CleanName(d.URI)
	}
	if a.Description == "" {
		a.Description = d.Description
	}
	if b := pf.Body; b != nil {
		a.Instructions.Content = b.Content
		// Last marker first.
		for i := len(b.VariableReferences) - 1; i >= 0; i-- {
			ref := b.VariableReferences[i]
			start := ref.Offset - b.Offset
			a.Instructions.ToolReferences = append(a.Instructions.ToolReferences, ToolReference{
				Name:  ref.Name,
				Start: start,
				End:   start + len(ref.Name) + 1,
			})
		}
	}
	return a
}
