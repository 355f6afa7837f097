package app

import (
	"context"
	"dvamodel/internal/core/config"
	"dvamodel/internal/core/errors"
	"dvamodel/internal/core/ports"
	"dvamodel/internal/core/watcher"
	"dvamodel/internal/engine/parser"
	"dvamodel/internal/shared/util"
	"fmt"
	"log/slog"
	"sync"
)

// Dependencies are the optional collaborators of an App. Nil fields fall
// back to the local filesystem and an in-memory index.
type Dependencies struct {
	Reader parser.SourceReader
	Index  ports.ModelIndex
}

type App struct {
	Config *config.Config

	cfgMu    sync.RWMutex
	provider *config.RuleProvider
	parser   *parser.ModelParser
	filter   *watcher.Filter
	limiter  *util.Limiter
	grammars *parser.GrammarLoader

	reader   parser.SourceReader
	index    ports.ModelIndex
	registry *Registry

	// Content hashes of files indexed by this process, used when no
	// persistent index is configured.
	hashMu sync.Mutex
	hashes map[string]string

	hydrateOnce sync.Once
	hydrateErr  error

	updateMu sync.RWMutex
	onUpdate func(ports.WatchUpdate)

	activeWatcher *watcher.Watcher
}

var _ ports.ModelService = (*App)(nil)

func New(cfg *config.Config) (*App, error) {
	return NewWithDependencies(cfg, Dependencies{})
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}

	provider, err := config.NewRuleProvider(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		provider: provider,
		grammars: parser.NewGrammarLoader(),
		reader:   deps.Reader,
		index:    deps.Index,
		registry: NewRegistry(),
		hashes:   make(map[string]string),
	}
	if a.reader == nil {
		a.reader = parser.OSReader{}
	}
	if err := a.applyConfig(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) applyConfig(cfg *config.Config) error {
	filter, err := watcher.NewFilter(cfg.Exclude.Dirs, cfg.Exclude.Files, nil)
	if err != nil {
		return fmt.Errorf("compile exclude patterns: %w", err)
	}
	modelParser, err := parser.NewModelParser(parser.ModelParserDeps{
		Reader:     a.reader,
		Config:     a.provider,
		Grammars:   a.grammars,
		Generators: parser.GeneratorFactoryFor(cfg.Parser.Codegen),
	})
	if err != nil {
		return err
	}

	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.Config = cfg
	a.filter = filter
	a.parser = modelParser
	a.limiter = util.NewOptionalLimiter(cfg.Scan.RateLimit, cfg.Scan.Workers)
	return nil
}

// UpdateConfig swaps in a reloaded configuration. Indexed models are kept;
// files are re-parsed with the new rules the next time they change or are
// scanned with Force.
func (a *App) UpdateConfig(cfg *config.Config) error {
	if err := a.provider.Update(cfg); err != nil {
		return err
	}
	if err := a.applyConfig(cfg); err != nil {
		return err
	}
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(cfg.Watch.Debounce)
	}
	slog.Info("configuration applied", "rules", len(cfg.Parser.Rules), "codegen", cfg.Parser.Codegen)
	return nil
}

func (a *App) current() (*config.Config, *parser.ModelParser, *watcher.Filter, *util.Limiter) {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.Config, a.parser, a.filter, a.limiter
}

// ParseFile extracts the models of a single file without touching the index.
func (a *App) ParseFile(ctx context.Context, path string) ([]parser.Model, error) {
	_, p, _, _ := a.current()
	return p.ParseFile(ctx, path)
}

func (a *App) Lookup(actionType string) []ports.Match {
	return a.registry.Lookup(actionType)
}

func (a *App) ActionTypes(prefix string) []string {
	return a.registry.ActionTypes(prefix)
}

func (a *App) Snapshot() []ports.FileModels {
	return a.registry.Snapshot()
}

func (a *App) Registry() *Registry {
	return a.registry
}

func (a *App) SetUpdateHandler(fn func(ports.WatchUpdate)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = fn
}

func (a *App) emitUpdate(update ports.WatchUpdate) {
	a.updateMu.RLock()
	fn := a.onUpdate
	a.updateMu.RUnlock()
	if fn != nil {
		fn(update)
	}
}

// Hydrate loads previously indexed models into the registry. It runs once;
// later calls return the first result.
func (a *App) Hydrate(ctx context.Context) error {
	a.hydrateOnce.Do(func() {
		if a.index == nil {
			return
		}
		rows, err := a.index.Models(ctx)
		if err != nil {
			a.hydrateErr = errors.AddContext(errors.Wrap(err, errors.CodeIO, "load model index"), errors.CtxOperation, "hydrate")
			return
		}
		byFile := make(map[string][]parser.Model)
		for _, row := range rows {
			byFile[row.File] = append(byFile[row.File], row.Model)
		}
		for file, models := range byFile {
			a.registry.Set(file, models)
		}
		slog.Debug("hydrated registry from index", "files", len(byFile), "models", len(rows))
	})
	return a.hydrateErr
}

func (a *App) Close() error {
	if a.activeWatcher != nil {
		return a.activeWatcher.Close()
	}
	return nil
}
