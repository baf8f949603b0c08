// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/invowk/promptscan/internal/event"
)

type (
	// ChangeEvent lists the keys whose values differ after an update.
	ChangeEvent struct {
		Keys []string
	}

	// Store holds the live configuration and notifies listeners about the
	// keys that change on each update. The zero value is not usable; call
	// NewStore.
	Store struct {
		mu      sync.RWMutex
		cfg     *Config
		changed event.Emitter[ChangeEvent]
	}
)

// keyAccessors maps every leaf settings key to its value.
var keyAccessors = map[string]func(*Config) any{
	KeyInstructionsLocations:         func(c *Config) any { return c.Chat.InstructionsLocations },
	KeyPromptLocations:               func(c *Config) any { return c.Chat.PromptLocations },
	KeyAgentLocations:                func(c *Config) any { return c.Chat.AgentLocations },
	KeyUseAgentsMDFile:               func(c *Config) any { return c.Chat.UseAgentsMDFile },
	KeyUseNestedAgentsMDFiles:        func(c *Config) any { return c.Chat.UseNestedAgentsMDFiles },
	KeyUseCopilotInstructionFiles:    func(c *Config) any { return c.Chat.UseCopilotInstructionFiles },
	KeyUseClaudeSkills:               func(c *Config) any { return c.Chat.UseClaudeSkills },
	KeyIncludeApplyingInstructions:   func(c *Config) any { return c.Chat.IncludeApplyingInstructions },
	KeyIncludeReferencedInstructions: func(c *Config) any { return c.Chat.IncludeReferencedInstructions },
	KeyCacheDebounce:                 func(c *Config) any { return c.Chat.CacheDebounce },
	KeySearchExclude:                 func(c *Config) any { return c.Search.Exclude },
	KeySearchUseIgnoreFiles:          func(c *Config) any { return c.Search.UseIgnoreFiles },
	"ui.color_scheme":                func(c *Config) any { return c.UI.ColorScheme },
	"ui.verbose":                     func(c *Config) any { return c.UI.Verbose },
}

// Affects reports whether key, or a section containing it, changed.
func (e ChangeEvent) Affects(key string) bool {
	for _, k := range e.Keys {
		if k == key || strings.HasPrefix(k, key+".") {
			return true
		}
	}
	return false
}

// NewStore creates a Store holding cfg, or the defaults when cfg is nil.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Store{cfg: cfg}
}

// Get returns the current configuration. Callers must not mutate it.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// OnDidChange fires after every update that changed at least one key.
func (s *Store) OnDidChange() event.Event[ChangeEvent] {
	return s.changed.Event()
}

// Update replaces the configuration and fires a ChangeEvent when any key
// changed. The event is also returned.
func (s *Store) Update(cfg *Config) ChangeEvent {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	ev := ChangeEvent{Keys: ChangedKeys(old, cfg)}
	if len(ev.Keys) > 0 {
		s.changed.Fire(ev)
	}
	return ev
}

// Reload loads the configuration through p and applies it with Update.
// The current configuration is kept when loading fails.
func (s *Store) Reload(ctx context.Context, p Provider, opts LoadOptions) (ChangeEvent, error) {
	cfg, err := p.Load(ctx, opts)
	if err != nil {
		return ChangeEvent{}, err
	}
	return s.Update(cfg), nil
}

// ChangedKeys returns the sorted leaf keys whose values differ.
func ChangedKeys(before, after *Config) []string {
	var keys []string
	for key, get := range keyAccessors {
		if !reflect.DeepEqual(get(before), get(after)) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}
