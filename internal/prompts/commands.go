// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"regexp"
	"slices"

	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

var invalidCommandChars = regexp.MustCompile(`[^\p{L}\d_\-.]+`)

// SlashCommand is a prompt file invocable by name.
type SlashCommand struct {
	Name         string
	Description  string
	ArgumentHint string
	URI          uri.URI
	Storage      promptfile.Storage
}

// GetPromptSlashCommands returns a command for every prompt file, plus one
// for every unsaved prompt document.
func (s *Service) GetPromptSlashCommands(ctx context.Context) ([]SlashCommand, error) {
	cmds, err := s.commands.Get(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(cmds), nil
}

// ResolvePromptSlashCommand finds the command called name.
func (s *Service) ResolvePromptSlashCommand(ctx context.Context, name string) (SlashCommand, bool) {
	cmds, err := s.commands.Get(ctx)
	if err != nil {
		return SlashCommand{}, false
	}
	for _, c := range cmds {
		if c.Name == name {
			return c, true
		}
	}
	return SlashCommand{}, false
}

// OnDidChangeSlashCommands returns the debounced change event of the
// command view. Subscribing enables its cache.
func (s *Service) OnDidChangeSlashCommands() event.Event[struct{}] {
	return s.commands.OnDidChange()
}

// GetPromptSlashCommandName derives the command name of a prompt file: the
// header name, else the descriptor name, else the file name without its
// suffix. Characters that cannot appear in a command become '-'.
func GetPromptSlashCommandName(d promptfile.Descriptor, h *promptfile.Header) string {
	name := d.Name
	if h != nil && h.Name != "" {
		name = h.Name
	}
	if name == "" {
		name = promptfile.CleanName(d.URI)
	}
	return invalidCommandChars.ReplaceAllString(name, "-")
}

func (s *Service) computeSlashCommands(ctx context.Context) ([]SlashCommand, error) {
	files, err := s.ListPromptFiles(ctx, promptfile.CategoryPrompt)
	if err != nil {
		return nil, err
	}

	var out []SlashCommand
	add := func(d promptfile.Descriptor, pf *promptfile.ParsedFile) {
		c := SlashCommand{
			Name:        GetPromptSlashCommandName(d, pf.Header),
			Description: d.Description,
			URI:         d.URI,
			Storage:     d.Storage,
		}
		if h := pf.Header; h != nil {
			if h.Description != "" {
				c.Description = h.Description
			}
			c.ArgumentHint = h.ArgumentHint
		}
		out = append(out, c)
	}

	for _, d := range files {
		pf, err := s.ParseNew(ctx, d.URI)
		if err != nil {
			s.logger.Warn("failed to parse prompt file", "uri", d.URI.String(), "error", err)
			continue
		}
		add(d, pf)
	}

	lang := promptfile.CategoryPrompt.LanguageID()
	for _, doc := range s.docs.All() {
		if doc.URI.Scheme != uri.SchemeUntitled || doc.LanguageID != lang {
			continue
		}
		pf, err := s.ParseNew(ctx, doc.URI)
		if err != nil {
			s.logger.Warn("failed to parse unsaved prompt", "uri", doc.URI.String(), "error", err)
			continue
		}
		add(promptfile.Descriptor{URI: doc.URI, Storage: promptfile.StorageLocal, Category: promptfile.CategoryPrompt}, pf)
	}
	return out, nil
}
