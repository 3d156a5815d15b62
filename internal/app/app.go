package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/specialistvlad/modbisect/internal/bisect"
	"github.com/specialistvlad/modbisect/internal/config"
	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/harness"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/modpack"
)

// ErrProblems is returned by Validate when the pack has problems.
var ErrProblems = errors.New("pack has problems")

// ErrNoInstance means no game directory was configured or discovered.
var ErrNoInstance = errors.New("game directory unknown")

// Options holds the command-line settings of one invocation. Zero values
// leave the configuration file or the defaults in charge.
type Options struct {
	ConfigPath       string
	ProfileDir       string
	LogLevel         string
	LogFormat        string
	OverrideVersions string
	LieDepends       string
	StatusPort       int
	HistoryFile      string
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	opts   Options
	config *config.Config

	newProcs func() (harness.ProcessTable, error)
}

// New builds an App. Reports go to outW and logs to logW. The configuration
// is loaded from the --config path or from the profile directory, then
// overlaid with opts.
func New(outW, logW io.Writer, opts Options) (*App, error) {
	logger := newLogger(opts.LogLevel, opts.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var paths []string
	switch {
	case opts.ConfigPath != "":
		if _, err := os.Stat(opts.ConfigPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		paths = append(paths, opts.ConfigPath)
	case opts.ProfileDir != "":
		paths = append(paths, filepath.Join(opts.ProfileDir, config.FileName))
	}
	cfg, err := config.Load(ctx, paths...)
	if err != nil {
		return nil, err
	}
	if err := overlay(cfg, opts); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded.", "game_dir", cfg.Instance.GameDir, "has_command", len(cfg.Instance.Command) > 0)

	return &App{
		outW:     outW,
		logger:   logger,
		opts:     opts,
		config:   cfg,
		newProcs: harness.NewProcessTable,
	}, nil
}

// overlay applies command-line values on top of cfg.
func overlay(cfg *config.Config, opts Options) error {
	if opts.ProfileDir != "" {
		cfg.Instance.GameDir = opts.ProfileDir
	}
	if opts.OverrideVersions != "" {
		versions, err := modpack.ParseVersionOverrides(opts.OverrideVersions)
		if err != nil {
			return err
		}
		for id, v := range versions {
			cfg.Overrides.Versions[id] = v
		}
	}
	cfg.Overrides.LieDepends = append(cfg.Overrides.LieDepends, modpack.ParseIDList(opts.LieDepends)...)
	return nil
}

// Config returns the resolved configuration. This is primarily for testing.
func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// ensureInstance makes sure the game directory is known and, when
// needCommand is set, that a launch command is too. Missing pieces are taken
// from the next game the user launches.
func (a *App) ensureInstance(ctx context.Context, needCommand bool) error {
	logger := ctxlog.FromContext(ctx)
	in := &a.config.Instance
	if in.GameDir == "" || (needCommand && len(in.Command) == 0) {
		procs, err := a.newProcs()
		if err != nil {
			return fmt.Errorf("reading the process table: %w", err)
		}
		logger.Info("Please start your modded game instance.")
		found, err := harness.Discover(ctx, procs, a.config.ProcessMatch, a.config.Search.PollInterval, a.config.Search.KillGrace)
		if err != nil {
			return fmt.Errorf("discovering the game instance: %w", err)
		}
		if len(in.Command) == 0 {
			in.Command = found.Command
		}
		if in.GameDir == "" {
			in.GameDir = found.GameDir
		}
	}
	if in.GameDir == "" {
		return ErrNoInstance
	}
	abs, err := filepath.Abs(in.GameDir)
	if err != nil {
		return err
	}
	in.GameDir = abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return fmt.Errorf("invalid instance directory %q", abs)
	}
	logger.Info("Found profile.", "game_dir", abs)
	return nil
}

func (a *App) modsDir() string {
	return a.config.Resolve(a.config.Instance.ModsDir)
}

// lock takes the instance lock. The returned func releases it.
func (a *App) lock(ctx context.Context) (func(), error) {
	fl, err := harness.Lock(a.config.Instance.GameDir)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Instance locked.", "path", fl.Path())
	return func() { unlock(ctx, fl) }, nil
}

func unlock(ctx context.Context, fl *flock.Flock) {
	if err := fl.Unlock(); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to release the instance lock.", "path", fl.Path(), "error", err)
	}
}

// loadPack loads and validates the mods directory with the configured
// overrides applied. It returns the pack and its problem mods.
func (a *App) loadPack(ctx context.Context, opts ...modpack.LoadOption) (*modpack.Pack, []*mod.Mod, error) {
	logger := ctxlog.FromContext(ctx)
	opts = append(opts, modpack.WithSetOptions(mod.WithCascade(a.config.Search.DisableCascade)))
	p, err := modpack.Load(ctx, a.modsDir(), opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := p.OverrideVersions(a.config.Overrides.Versions); err != nil {
		return nil, nil, err
	}
	p.LieDepends(a.config.Overrides.LieDepends)
	bad := p.Validate(a.config.Search.ReservedIDs...)
	if n := p.ProblemCount(bad); n > 0 {
		logger.Warn("Pack has problems; run validate for details.", "count", n)
	}
	return p, bad, nil
}

func (a *App) engineOptions() bisect.Options {
	return bisect.Options{
		PerModTimeout: a.config.Search.PerModTimeout,
		MinTimeout:    a.config.Search.MinTimeout,
		Reserved:      a.config.Search.ReservedIDs,
	}
}
