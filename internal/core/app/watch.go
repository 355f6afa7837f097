package app

import (
	"context"
	"dvamodel/internal/core/config"
	"dvamodel/internal/core/ports"
	"dvamodel/internal/core/watcher"
	"log/slog"
	"os"
	"time"
)

func (a *App) StartWatcher() error {
	cfg, _, filter, _ := a.current()
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, filter, a.HandleChanges)
	if err != nil {
		return err
	}
	a.activeWatcher = w
	return w.Watch(uniqueScanRoots(cfg.ResolveWatchPaths()))
}

// HandleChanges re-indexes a debounced batch of changed paths.
func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	ctx := context.Background()
	start := time.Now()
	_, _, filter, _ := a.current()

	update := ports.WatchUpdate{}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if a.removeFile(ctx, path) {
				update.Removed = append(update.Removed, path)
			}
			continue
		}
		if filter.SkipFile(path) {
			continue
		}

		outcome, err := a.processFile(ctx, path, false)
		switch outcome {
		case outcomeFailed:
			slog.Warn("failed to re-process file", "path", path, "error", err)
		case outcomeParsed:
			update.Changed = append(update.Changed, path)
		}
	}

	update.Files, update.Models = a.registry.Counts()
	slog.Info("index updated",
		"changed", len(update.Changed),
		"removed", len(update.Removed),
		"models", update.Models,
		"duration", time.Since(start))
	a.emitUpdate(update)
}

// Watch runs an initial scan, then keeps the index current until ctx is
// done. When configPath is set, edits to it are applied without a restart.
func (a *App) Watch(ctx context.Context, configPath string) error {
	result, err := a.Scan(ctx, ports.ScanRequest{})
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		slog.Warn("scan warning", "detail", w)
	}
	files, models := a.registry.Counts()
	a.emitUpdate(ports.WatchUpdate{Files: files, Models: models})

	if err := a.StartWatcher(); err != nil {
		return err
	}
	defer a.Close()

	if configPath != "" {
		cw := config.NewWatcher(configPath, func(cfg *config.Config) {
			if err := a.UpdateConfig(cfg); err != nil {
				slog.Error("failed to apply reloaded configuration", "error", err)
			}
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config hot-reload disabled", "path", configPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	<-ctx.Done()
	return nil
}

// CurrentUpdate reports the registry totals in watch-update form.
func (a *App) CurrentUpdate() ports.WatchUpdate {
	files, models := a.registry.Counts()
	return ports.WatchUpdate{Files: files, Models: models}
}
