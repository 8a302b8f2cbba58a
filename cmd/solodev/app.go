package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/commands"
	"github.com/solodevflow/solodev/internal/config"
	"github.com/solodevflow/solodev/internal/fileio"
	"github.com/solodevflow/solodev/internal/state"
)

// app holds everything a CLI invocation needs, built from resolved config.
type app struct {
	cfg    *config.Config
	root   string
	logger *slog.Logger
	fio    *fileio.FileIO
	mgr    *state.Manager
	exec   *command.Executor
}

// newApp resolves configuration for the project root and wires the state
// manager and the command executor.
func newApp() (*app, error) {
	root, err := resolveRoot(projectDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root, cfgFile, &config.Config{Output: output, Verbose: verbose})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	verbose = cfg.Verbose

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fio := fileio.NewOS(root)
	mgr := state.NewManager(fio,
		state.WithBaseDir(cfg.BaseDir),
		state.WithCacheTTL(cfg.CacheTTLDuration()),
		state.WithSizeThresholds(cfg.SizeWarningKB, cfg.SizeLimitKB),
		state.WithLogger(logger),
	)

	reg := command.NewRegistry()
	if err := commands.Register(reg, mgr,
		commands.WithActor(cfg.Actor),
		commands.WithLogger(logger),
	); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}

	load := func(context.Context) (*state.State, error) {
		if !mgr.Exists() {
			return nil, nil
		}
		return mgr.GetState()
	}

	logger.Debug("project resolved", "root", root, "base_dir", cfg.BaseDir, "output", cfg.Output)
	return &app{
		cfg:    cfg,
		root:   root,
		logger: logger,
		fio:    fio,
		mgr:    mgr,
		exec:   command.NewExecutor(reg, mgr, load, command.WithLogger(logger)),
	}, nil
}

func resolveRoot(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return cwd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project dir %s is not a directory", abs)
	}
	return abs, nil
}

// lockPath is the advisory lock guarding state mutations.
func (a *app) lockPath() string {
	return filepath.Join(a.root, a.cfg.BaseDir, state.LockFile)
}
