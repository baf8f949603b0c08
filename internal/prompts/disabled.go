// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

const disabledKeyPrefix = "chat.disabledPromptFiles."

func disabledKey(cat promptfile.Category) string {
	return disabledKeyPrefix + cat.String()
}

// GetDisabledPromptFiles returns the disabled files of cat. A missing or
// unreadable stored value yields an empty set.
func (s *Service) GetDisabledPromptFiles(ctx context.Context, cat promptfile.Category) map[uri.URI]struct{} {
	out := make(map[uri.URI]struct{})
	raw, ok, err := s.storage.Get(ctx, disabledKey(cat))
	if err != nil {
		s.logger.Warn("failed to read disabled prompt files", "category", cat, "error", err)
		return out
	}
	if !ok {
		return out
	}
	var stored []uri.URI
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("ignoring invalid disabled prompt files value", "category", cat, "error", err)
		return out
	}
	for _, u := range stored {
		out[u] = struct{}{}
	}
	return out
}

// SetDisabledPromptFiles replaces the disabled set of cat. The custom agent
// view is refreshed.
func (s *Service) SetDisabledPromptFiles(ctx context.Context, cat promptfile.Category, disabled []uri.URI) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	value := ""
	if len(disabled) > 0 {
		b, err := json.Marshal(disabled)
		if err != nil {
			return fmt.Errorf("failed to encode disabled prompt files: %w", err)
		}
		value = string(b)
	}
	if err := s.storage.Set(ctx, disabledKey(cat), value); err != nil {
		return fmt.Errorf("failed to store disabled prompt files: %w", err)
	}
	if cat == promptfile.CategoryAgent {
		s.agents.Refresh()
	}
	return nil
}
