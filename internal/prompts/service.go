// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/invowk/promptscan/internal/cache"
	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/internal/discovery"
	"github.com/invowk/promptscan/internal/documents"
	"github.com/invowk/promptscan/internal/event"
	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/internal/instructions"
	"github.com/invowk/promptscan/internal/store"
	"github.com/invowk/promptscan/internal/workspace"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

const defaultParsedCacheSize = 256

var (
	// ErrSkillsDisabled is returned by FindClaudeSkills when skills are
	// turned off in the settings.
	ErrSkillsDisabled = errors.New("claude skills are disabled")
	// ErrSkillNameMissing marks a SKILL.md without a name header.
	ErrSkillNameMissing = errors.New("skill has no name")
)

type (
	// Service discovers, caches and resolves prompt files.
	Service struct {
		cfg     *config.Store
		ws      *workspace.Workspace
		fs      fsys.FileSystem
		disc    *discovery.Discovery
		docs    *documents.Registry
		tracker *documents.Tracker
		storage store.Storage
		logger  *slog.Logger

		files    map[promptfile.Category]*cache.Cached[[]promptfile.Descriptor]
		agents   *cache.Cached[[]CustomAgent]
		commands *cache.Cached[[]SlashCommand]

		mu            sync.Mutex
		contributions map[promptfile.Category]map[uri.URI]promptfile.Descriptor

		parsed    *lru.Cache[uri.URI, parsedEntry]
		parseSize int

		subs []func()
	}

	parsedEntry struct {
		version int
		file    *promptfile.ParsedFile
	}

	// Option configures a Service.
	Option func(*Service)
)

// WithDocuments sets the open-document registry. Without it the service
// only sees files on disk.
func WithDocuments(reg *documents.Registry) Option {
	return func(s *Service) { s.docs = reg }
}

// WithStorage sets where the disabled-files sets are persisted. The default
// is an in-memory store.
func WithStorage(st store.Storage) Option {
	return func(s *Service) { s.storage = st }
}

// WithParsedCacheSize bounds the number of open documents whose parse is
// cached.
func WithParsedCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parseSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service over the given collaborators. Call Close when the
// session ends.
func New(cfg *config.Store, ws *workspace.Workspace, fs fsys.FileSystem, disc *discovery.Discovery, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:           cfg,
		ws:            ws,
		fs:            fs,
		disc:          disc,
		logger:        slog.Default(),
		parseSize:     defaultParsedCacheSize,
		files:         make(map[promptfile.Category]*cache.Cached[[]promptfile.Descriptor]),
		contributions: make(map[promptfile.Category]map[uri.URI]promptfile.Descriptor),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.docs == nil {
		s.docs = documents.NewRegistry()
	}
	if s.storage == nil {
		s.storage = store.NewMemory()
	}

	parsed, err := lru.New[uri.URI, parsedEntry](s.parseSize)
	if err != nil {
		return nil, err
	}
	s.parsed = parsed
	s.tracker = documents.NewTracker(s.docs, s.logger)
	s.subs = append(s.subs, s.docs.OnDidClose()(func(d documents.Snapshot) {
		s.parsed.Remove(d.URI)
	}))

	delay := cfg.Get().Chat.Debounce()
	for _, cat := range promptfile.Categories() {
		s.files[cat] = cache.New(
			func(ctx context.Context) ([]promptfile.Descriptor, error) {
				return s.computePromptFiles(ctx, cat)
			},
			func() event.Event[struct{}] { return s.disc.FilesUpdatedEvent(cat) },
			delay,
		)
	}
	s.agents = cache.New(s.computeCustomAgents, s.documentSource(promptfile.CategoryAgent), delay)
	s.commands = cache.New(s.computeSlashCommands, s.documentSource(promptfile.CategoryPrompt), delay)
	return s, nil
}

// documentSource invalidates a derived view when the file list of cat
// changes or an open document of cat is edited, opened or closed.
func (s *Service) documentSource(cat promptfile.Category) cache.SourceFunc {
	return func() event.Event[struct{}] {
		return event.Any(
			s.files[cat].OnDidChange(),
			event.Signal(event.Filter(s.tracker.OnDidChange(), func(c documents.Change) bool {
				return c.Category == cat
			})),
			event.Signal(event.Filter(s.docs.OnDidOpen(), func(d documents.Snapshot) bool {
				return d.LanguageID == cat.LanguageID()
			})),
		)
	}
}

// Collector returns an instruction collector backed by this service.
func (s *Service) Collector(opts ...instructions.Option) *instructions.Collector {
	opts = append([]instructions.Option{instructions.WithLogger(s.logger)}, opts...)
	return instructions.NewCollector(s, s.cfg, s.ws, s.fs, opts...)
}

// Documents returns the open-document registry.
func (s *Service) Documents() *documents.Registry {
	return s.docs
}

// Close releases every cache and subscription.
func (s *Service) Close() {
	for _, unsub := range s.subs {
		unsub()
	}
	s.subs = nil
	s.agents.Close()
	s.commands.Close()
	for _, c := range s.files {
		c.Close()
	}
	s.tracker.Close()
	s.parsed.Purge()
}
