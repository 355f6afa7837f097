package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dvamodel/internal/core/app"
	"dvamodel/internal/core/config"
	"dvamodel/internal/data/store"
	"dvamodel/internal/shared/observability"
	"dvamodel/internal/ui/report"
)

const versionString = "0.1.0"

type globalOptions struct {
	configPath string
	verbose    bool
	format     string
}

// runtime is everything a command needs once configuration is loaded.
type runtime struct {
	cfg        *config.Config
	configPath string
	app        *app.App
	store      *store.Store
	renderer   report.Renderer
	closers    []func(context.Context) error
}

func newRuntime(ctx context.Context, opts *globalOptions) (*runtime, error) {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, configPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, configPath: configPath}
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		root = cfg.ProjectRoot
	}
	rt.renderer = report.Renderer{Format: format, Root: root}

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			Enabled:      true,
			OTLPEndpoint: cfg.Observability.OTLPEndpoint,
			ServiceName:  cfg.Observability.ServiceName,
		})
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			rt.closers = append(rt.closers, shutdown)
		}
	}

	rt.store, err = openStoreIfEnabled(cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	deps := app.Dependencies{}
	if rt.store != nil {
		deps.Index = rt.store
		rt.closers = append(rt.closers, func(context.Context) error { return rt.store.Close() })
	}

	rt.app, err = app.NewWithDependencies(cfg, deps)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

// startObservability serves /metrics and /health when enabled in config.
func (rt *runtime) startObservability(ctx context.Context) {
	if !rt.cfg.Observability.Enabled {
		return
	}
	server := NewObservabilityServer(rt.cfg.Observability.Address, app.NewHealthService(rt.app))
	if err := server.Start(ctx); err != nil {
		slog.Warn("observability server not started", "error", err)
		return
	}
	rt.closers = append(rt.closers, server.Stop)
}

func (rt *runtime) Close(ctx context.Context) error {
	var firstErr error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	rt.closers = nil
	return firstErr
}

// loadConfig loads an explicit path, or discovers dvamodel.toml in cwd.
// The returned path is empty when built-in defaults are in use.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	if strings.TrimSpace(cwd) == "" {
		return nil, "", fmt.Errorf("cwd must not be empty")
	}
	candidate := filepath.Join(cwd, config.DefaultConfigFile)
	if _, err := os.Stat(candidate); err != nil {
		cfg, err := config.LoadOrDefault(candidate)
		if err != nil {
			return nil, "", err
		}
		cfg.ProjectRoot = cwd
		if !filepath.IsAbs(cfg.Store.Path) {
			cfg.Store.Path = filepath.Join(cwd, cfg.Store.Path)
		}
		return cfg, "", nil
	}

	cfg, err := config.Load(candidate)
	if err != nil {
		return nil, "", err
	}
	return cfg, candidate, nil
}

func openStoreIfEnabled(cfg *config.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	s, err := store.Open(cfg.Store.Path, cfg.Store.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open model index: %w", err)
	}
	return s, nil
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	// Stdout carries command output, so logs go to stderr.
	output := os.Stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "dvamodel", "dvamodel.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "dvamodel", "dvamodel.log")
	}

	return "dvamodel.log"
}
