package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"modgraph/internal/core/config"
	"modgraph/internal/core/errors"
	"modgraph/internal/core/ports"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/graph"
	"modgraph/internal/engine/parser"
	"modgraph/internal/engine/resolver"
	"modgraph/internal/engine/rules"
	"modgraph/internal/engine/runtime"
)

// App wires the analysis pipeline: walker, graph, rules and the optional
// snapshot store.
type App struct {
	Config *config.Config

	rt       runtime.Runtime
	resolver *resolver.Resolver
	parser   ports.CodeParser
	scripts  ports.ScriptExtractor
	store    ports.SnapshotStore
	persist  bool
	rules    []rules.Rule
	logger   *slog.Logger

	runMu sync.Mutex

	stateMu    sync.RWMutex
	graph      *graph.ModuleGraph
	lastReport *Report
}

type Option func(*App)

// WithRuntime replaces the native filesystem, for tests and sandboxes.
func WithRuntime(rt runtime.Runtime) Option {
	return func(a *App) { a.rt = rt }
}

func WithParser(p ports.CodeParser) Option {
	return func(a *App) { a.parser = p }
}

func WithScriptExtractor(e ports.ScriptExtractor) Option {
	return func(a *App) { a.scripts = e }
}

// WithSnapshotStore installs store and enables persistence regardless of
// store.enabled.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(a *App) {
		a.store = store
		a.persist = true
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	a := &App{
		Config: cfg,
		logger: slog.Default().With("component", "app"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rt == nil {
		a.rt = runtime.NewOSRuntime()
	}
	if a.parser == nil {
		a.parser = parser.New()
	}
	if a.scripts == nil {
		a.scripts = parser.NewScriptExtractor()
	}

	a.resolver = resolver.New(a.rt, resolverConfig(cfg))

	ruleSet, err := rules.FromConfig(cfg.Rules)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "build framework rules")
	}
	a.rules = ruleSet

	if a.store == nil {
		if err := a.openStore(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func resolverConfig(cfg *config.Config) resolver.Config {
	aliases := make([]resolver.Alias, 0, len(cfg.Resolver.Aliases))
	for _, alias := range cfg.Resolver.Aliases {
		aliases = append(aliases, resolver.Alias{Prefix: alias.Prefix, Target: alias.Target})
	}
	return resolver.Config{
		Cwd:       cfg.Analysis.Cwd,
		External:  cfg.Resolver.External,
		Aliases:   aliases,
		CacheSize: cfg.Resolver.CacheSize,
	}
}

func (a *App) openStore() error {
	if !a.Config.Store.Enabled {
		a.store = ports.NoopSnapshotStore{}
		return nil
	}
	storePath := a.Config.Store.Path
	if !filepath.IsAbs(storePath) {
		cwd, err := a.resolver.Cwd()
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "resolve store path")
		}
		storePath = filepath.Join(cwd, storePath)
	}
	store, err := history.Open(storePath)
	if err != nil {
		return errors.AddContext(fmt.Errorf("open snapshot store: %w", err), errors.CtxPath, storePath)
	}
	a.store = store
	a.persist = true
	return nil
}

func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Graph returns the graph of the last successful run, or nil.
func (a *App) Graph() *graph.ModuleGraph {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.graph
}

// LastReport returns the report of the last successful run, or nil.
func (a *App) LastReport() *Report {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.lastReport
}

func (a *App) setResult(g *graph.ModuleGraph, report *Report) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.graph = g
	a.lastReport = report
}
