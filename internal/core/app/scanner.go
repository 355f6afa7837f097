package app

import (
	"context"
	"dvamodel/internal/core/errors"
	"dvamodel/internal/core/ports"
	"dvamodel/internal/core/watcher"
	"dvamodel/internal/data/store"
	"dvamodel/internal/engine/parser"
	"dvamodel/internal/shared/observability"
	"dvamodel/internal/shared/util"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type fileOutcome string

const (
	outcomeParsed    fileOutcome = "parsed"
	outcomeUnchanged fileOutcome = "unchanged"
	outcomeFailed    fileOutcome = "failed"
)

// Scan indexes every model file under req.Paths, or under the configured
// watch paths when none are given. Per-file failures become warnings.
func (a *App) Scan(ctx context.Context, req ports.ScanRequest) (ports.ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Scan",
		trace.WithAttributes(attribute.Int("paths", len(req.Paths)), attribute.Bool("force", req.Force)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.ScanResult{}, err
	}
	if err := a.Hydrate(ctx); err != nil {
		slog.Warn("failed to hydrate registry", "error", err)
	}

	cfg, _, filter, limiter := a.current()
	roots := req.Paths
	if len(roots) == 0 {
		roots = cfg.ResolveWatchPaths()
	}
	roots = uniqueScanRoots(roots)

	start := time.Now()
	files, err := CollectFiles(roots, filter)
	if err != nil {
		return ports.ScanResult{}, errors.AddContext(errors.Wrap(err, errors.CodeIO, "walk scan roots"), errors.CtxOperation, "scan_directories")
	}

	var (
		mu       sync.Mutex
		result   ports.ScanResult
		warnings []string
	)
	workers := cfg.Scan.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range files {
		g.Go(func() error {
			if err := limiter.Wait(gctx, 1); err != nil {
				return err
			}
			outcome, err := a.processFile(gctx, path, req.Force)
			observability.FilesScannedTotal.WithLabelValues(string(outcome)).Inc()

			mu.Lock()
			defer mu.Unlock()
			result.FilesScanned++
			switch outcome {
			case outcomeUnchanged:
				result.FilesSkipped++
			case outcomeFailed:
				result.FilesFailed++
				warnings = append(warnings, fmt.Sprintf("process file %s: %v", path, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.ScanResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ports.ScanResult{}, err
	}

	a.pruneMissing(ctx, roots, files)

	sort.Strings(warnings)
	result.Warnings = warnings
	_, result.Models = a.registry.Counts()
	result.Duration = time.Since(start)
	observability.ScanDuration.Observe(result.Duration.Seconds())

	result.ScanID = uuid.NewString()
	if a.index != nil {
		id, err := a.index.RecordScan(ctx, store.ScanRecord{
			ID:           result.ScanID,
			StartedAt:    start.UTC(),
			Duration:     result.Duration,
			FilesScanned: result.FilesScanned,
			FilesSkipped: result.FilesSkipped,
			FilesFailed:  result.FilesFailed,
			Models:       result.Models,
			Warnings:     len(result.Warnings),
		})
		if err != nil {
			slog.Warn("failed to record scan", "error", err)
		} else {
			result.ScanID = id
		}
	}

	span.SetAttributes(
		attribute.Int("files", result.FilesScanned),
		attribute.Int("models", result.Models),
		attribute.Int("warnings", len(result.Warnings)),
	)
	slog.Debug("scan finished",
		"files", result.FilesScanned,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"models", result.Models,
		"duration", result.Duration)
	return result, nil
}

// CollectFiles walks roots and returns the model file candidates in sorted
// order. A root may itself be a file.
func CollectFiles(roots []string, filter *watcher.Filter) ([]string, error) {
	seen := make(map[string]bool)
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !filter.SkipFile(root) {
				seen[root] = true
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && filter.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if filter.SkipFile(path) {
				return nil
			}
			seen[path] = true
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return util.SortedStringKeys(seen), nil
}

func (a *App) processFile(ctx context.Context, path string, force bool) (fileOutcome, error) {
	source, err := a.reader.ReadFile(ctx, path)
	if err != nil {
		observability.ParseFailuresTotal.WithLabelValues("io").Inc()
		return outcomeFailed, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read source"), errors.CtxPath, path)
	}

	hash := util.ContentHash(source)
	if !force {
		if previous, ok := a.knownHash(ctx, path); ok && previous == hash {
			return outcomeUnchanged, nil
		}
	}

	_, modelParser, _, _ := a.current()
	models := []parser.Model{}
	if opts, ok := a.provider.ParserConfig(path); ok {
		models, err = modelParser.ParseSource(ctx, path, source, opts)
		if err != nil {
			// Keep the last good models; the file is retried on its next change.
			return outcomeFailed, err
		}
	}

	a.registry.Set(path, models)
	a.rememberHash(path, hash)
	if a.index != nil {
		if err := a.index.ReplaceFile(ctx, path, hash, models); err != nil {
			slog.Warn("failed to persist models", "path", path, "error", err)
		}
	}
	return outcomeParsed, nil
}

func (a *App) knownHash(ctx context.Context, path string) (string, bool) {
	a.hashMu.Lock()
	hash, ok := a.hashes[path]
	a.hashMu.Unlock()
	if ok || a.index == nil {
		return hash, ok
	}

	hash, ok, err := a.index.FileHash(ctx, path)
	if err != nil {
		slog.Warn("failed to read indexed hash", "path", path, "error", err)
		return "", false
	}
	return hash, ok
}

func (a *App) rememberHash(path, hash string) {
	a.hashMu.Lock()
	defer a.hashMu.Unlock()
	a.hashes[path] = hash
}

func (a *App) removeFile(ctx context.Context, path string) bool {
	a.hashMu.Lock()
	delete(a.hashes, path)
	a.hashMu.Unlock()

	removed := a.registry.Remove(path)
	if a.index != nil {
		if err := a.index.DeleteFile(ctx, path); err != nil {
			slog.Warn("failed to delete indexed file", "path", path, "error", err)
		}
	}
	return removed
}

// pruneMissing drops registry entries under roots that the walk no longer
// found.
func (a *App) pruneMissing(ctx context.Context, roots, found []string) {
	present := make(map[string]bool, len(found))
	for _, f := range found {
		present[f] = true
	}
	for _, file := range a.registry.Files() {
		if present[file] || !underAnyRoot(file, roots) {
			continue
		}
		if a.removeFile(ctx, file) {
			slog.Debug("pruned missing file", "path", file)
		}
	}
}

func uniqueScanRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		normalized := filepath.Clean(p)
		if abs, err := filepath.Abs(normalized); err == nil {
			normalized = filepath.Clean(abs)
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		roots = append(roots, normalized)
	}
	sort.Strings(roots)
	return roots
}

func underAnyRoot(path string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))) {
			return true
		}
	}
	return false
}
