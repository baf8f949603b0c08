// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"log/slog"
	"os"

	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/internal/workspace"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// Discovery resolves source locations and lists prompt files for the
	// workspace and user-profile tiers. Extension contributions are owned by
	// the prompts service and never touch the filesystem.
	Discovery struct {
		cfg        *config.Store
		ws         *workspace.Workspace
		fs         fsys.FileSystem
		search     fsys.Searcher
		profileDir uri.URI
		userHome   uri.URI
		logger     *slog.Logger
	}

	// Option configures a Discovery.
	Option func(*Discovery)
)

// WithProfileDir sets the user-profile folder listed for the user tier.
func WithProfileDir(dir uri.URI) Option {
	return func(d *Discovery) { d.profileDir = dir }
}

// WithUserHome sets the directory that "~/" locations and personal skills
// resolve against.
func WithUserHome(dir uri.URI) Option {
	return func(d *Discovery) { d.userHome = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discovery) { d.logger = l }
}

// New creates a Discovery. The profile folder defaults to
// config.ProfileDir and the user home to os.UserHomeDir; either is left
// unset when it cannot be determined.
func New(cfg *config.Store, ws *workspace.Workspace, fs fsys.FileSystem, search fsys.Searcher, opts ...Option) *Discovery {
	d := &Discovery{
		cfg:    cfg,
		ws:     ws,
		fs:     fs,
		search: search,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.profileDir.IsZero() {
		if dir, err := config.ProfileDir(); err == nil {
			d.profileDir = uri.File(dir)
		}
	}
	if d.userHome.IsZero() {
		if home, err := os.UserHomeDir(); err == nil {
			d.userHome = uri.File(home)
		}
	}
	return d
}

// ProfileDir returns the user-profile folder.
func (d *Discovery) ProfileDir() uri.URI {
	return d.profileDir
}

// Workspace returns the workspace the discovery runs against.
func (d *Discovery) Workspace() *workspace.Workspace {
	return d.ws
}
