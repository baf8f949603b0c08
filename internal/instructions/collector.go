// SPDX-License-Identifier: MPL-2.0

package instructions

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/internal/workspace"
	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// PromptsService is the part of the prompts service the collector uses.
	PromptsService interface {
		ListPromptFiles(ctx context.Context, cat promptfile.Category) ([]promptfile.Descriptor, error)
		ParseNew(ctx context.Context, u uri.URI) (*promptfile.ParsedFile, error)
		ListCopilotInstructionsMDs(ctx context.Context) []uri.URI
		ListAgentMDs(ctx context.Context, includeNested bool) []uri.URI
		FindClaudeSkills(ctx context.Context) ([]promptfile.Skill, error)
	}

	// Collector computes the instruction files for an AttachedContext.
	Collector struct {
		prompts      PromptsService
		cfg          *config.Store
		ws           *workspace.Workspace
		fs           fsys.FileSystem
		readFileTool string
		report       TelemetryReporter
		logger       *slog.Logger
	}

	// Option configures a Collector.
	Option func(*Collector)
)

// WithReadFileTool enables the listing pass. name is the tool the consumer
// should use to fetch listed files.
func WithReadFileTool(name string) Option {
	return func(c *Collector) { c.readFileTool = name }
}

// WithTelemetryReporter sets the callback that receives the counters.
func WithTelemetryReporter(r TelemetryReporter) Option {
	return func(c *Collector) { c.report = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCollector returns a Collector over the given collaborators.
func NewCollector(prompts PromptsService, cfg *config.Store, ws *workspace.Workspace, fs fsys.FileSystem, opts ...Option) *Collector {
	c := &Collector{
		prompts: prompts,
		cfg:     cfg,
		ws:      ws,
		fs:      fs,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect extends ac with every applicable instruction file and returns the
// counters of the pass. A cancelled ctx stops the pass early without error;
// callers check ctx.Err() to tell a partial result from a complete one.
func (c *Collector) Collect(ctx context.Context, ac *AttachedContext) Telemetry {
	var tel Telemetry
	logger := c.logger.With("pass", uuid.NewString())
	chat := c.cfg.Get().Chat

	files, err := c.prompts.ListPromptFiles(ctx, promptfile.CategoryInstructions)
	if err != nil {
		logger.Warn("listing instruction files failed", "error", err)
	}
	tel.Total = len(files)

	if chat.IncludeApplyingInstructions {
		c.AddApplyingInstructions(ctx, files, ac, &tel)
	}

	conventions := c.addConventionFiles(ctx, ac, &tel)

	// Convention files always have their references followed.
	seeds := conventions
	if chat.IncludeReferencedInstructions {
		seeds = ac.InstructionURIs()
	}
	c.AddReferencedInstructions(ctx, seeds, ac, &tel)

	if c.readFileTool != "" && ctx.Err() == nil {
		ac.setListing(c.buildListing(ctx, files, ac, &tel))
	}

	if ctx.Err() != nil {
		logger.Debug("instruction collection cancelled", "error", ctx.Err())
	}
	logger.Debug("instruction collection finished", tel.logArgs()...)
	if c.report != nil {
		c.report(tel)
	}
	return tel
}

func (c *Collector) parse(ctx context.Context, u uri.URI) *promptfile.ParsedFile {
	pf, err := c.prompts.ParseNew(ctx, u)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("failed to parse instruction file", "uri", u.String(), "error", err)
		}
		return nil
	}
	return pf
}
