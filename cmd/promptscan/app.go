// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/promptscan/internal/config"
	"github.com/invowk/promptscan/internal/discovery"
	"github.com/invowk/promptscan/internal/fsys"
	"github.com/invowk/promptscan/internal/issue"
	"github.com/invowk/promptscan/internal/prompts"
	"github.com/invowk/promptscan/internal/store"
	"github.com/invowk/promptscan/internal/workspace"
	"github.com/invowk/promptscan/pkg/uri"
)

type (
	// App wires the CLI. Every command handler receives the App and opens a
	// Session through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		flags  globalFlags
		logger *slog.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	globalFlags struct {
		configPath string
		verbose    bool
		workspaces []string
		profileDir string
		statePath  string
	}

	// Session is one fully wired prompts service.
	Session struct {
		Config    *config.Store
		Workspace *workspace.Workspace
		FS        fsys.FileSystem
		Discovery *discovery.Discovery
		Prompts   *prompts.Service
		closers   []func() error
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	app.configureLogging()
	return app
}

// configureLogging routes slog through charmbracelet/log on stderr.
func (a *App) configureLogging() {
	level := log.InfoLevel
	if a.flags.verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(a.stderr, log.Options{
		Prefix: "promptscan",
		Level:  level,
	})
	a.logger = slog.New(handler)
}

// openSession loads the configuration and wires the prompts service for the
// requested workspace folders. The caller must Close the session.
func (a *App) openSession(ctx context.Context) (*Session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(a.flags.configPath).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	if !a.flags.verbose && cfg.UI.Verbose {
		a.flags.verbose = true
		a.configureLogging()
	}

	roots, err := a.workspaceRoots()
	if err != nil {
		return nil, err
	}

	s := &Session{Config: config.NewStore(cfg)}
	s.Workspace = workspace.New(roots)
	fs := fsys.NewOS(fsys.WithLogger(a.logger))
	s.FS = fs

	discOpts := []discovery.Option{discovery.WithLogger(a.logger)}
	if a.flags.profileDir != "" {
		discOpts = append(discOpts, discovery.WithProfileDir(uri.File(a.flags.profileDir)))
	}
	disc := discovery.New(s.Config, s.Workspace, fs, fs, discOpts...)
	s.Discovery = disc

	var st store.Storage = store.NewMemory()
	if a.flags.statePath != "" {
		db, err := store.OpenSQLite(ctx, a.flags.statePath)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("open state database").
				WithResource(a.flags.statePath).
				WithIssue(issue.StateStoreFailedId).
				Wrap(err).
				BuildError()
		}
		st = db
		s.closers = append(s.closers, db.Close)
	}

	svc, err := prompts.New(s.Config, s.Workspace, fs, disc,
		prompts.WithStorage(st),
		prompts.WithLogger(a.logger),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Prompts = svc
	return s, nil
}

func (a *App) workspaceRoots() ([]uri.URI, error) {
	dirs := a.flags.workspaces
	if len(dirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dirs = []string{wd}
	}

	roots := make([]uri.URI, 0, len(dirs))
	for _, d := range dirs {
		info, err := os.Stat(d)
		if err == nil && !info.IsDir() {
			err = errors.New("not a directory")
		}
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("open workspace folder").
				WithResource(d).
				WithSuggestion("Pass an existing directory with --workspace").
				WithIssue(issue.WorkspaceNotFoundId).
				Wrap(err).
				BuildError()
		}
		roots = append(roots, uri.File(d))
	}
	return roots, nil
}

// Close releases the service and the state database.
func (s *Session) Close() {
	if s.Prompts != nil {
		s.Prompts.Close()
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("failed to close session resource", "error", err)
		}
	}
}

// withSession opens a session, runs fn and closes the session.
func (a *App) withSession(ctx context.Context, fn func(*Session) error) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
