package app

import (
	"context"
	"path"
	"sort"
	"time"

	"modgraph/internal/core/errors"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/graph"
	"modgraph/internal/engine/rules"
	"modgraph/internal/engine/walker"
	"modgraph/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Run walks the configured entries and analyzes the resulting graph.
// Concurrent calls are serialized.
func (a *App) Run(ctx context.Context) (*Report, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	ctx, span := observability.Tracer.Start(ctx, "app.Run")
	defer span.End()
	defer observability.ObserveTask("run", time.Now())

	report, err := a.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("modules", report.Statistics.ModuleCount),
		attribute.Int("unused_exports", len(report.UnusedExports)),
	)
	return report, nil
}

func (a *App) run(ctx context.Context) (*Report, error) {
	start := time.Now()
	cfg := a.Config

	if len(cfg.Analysis.Entries) == 0 {
		return nil, errors.New(errors.CodeValidationError, "no entry points configured")
	}
	cwd, err := a.resolver.Cwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "resolve working directory")
	}

	w, err := walker.New(a.rt, a.resolver, a.parser, a.scripts, walker.Config{
		Entries:              cfg.Analysis.Entries,
		MaxDepth:             cfg.Analysis.MaxDepth,
		MaxModules:           cfg.Analysis.MaxModules,
		MaxFileSize:          cfg.Analysis.MaxFileSize,
		FollowDynamicImports: cfg.Analysis.FollowDynamicImports,
		IncludeTypeImports:   cfg.Analysis.IncludeTypeImports,
		Exclude:              cfg.Exclude.Paths,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "configure walker")
	}
	state, err := w.Walk(ctx)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "walk")
	}
	if err := state.ValidateEntryPoints(); err != nil {
		return nil, err
	}

	g, err := graph.FromCollection(ctx, state)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "build graph")
	}
	if err := rules.ApplyAll(ctx, g, a.rules); err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "framework rules")
	}
	if err := g.ComputeExportUsageCounts(ctx); err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "usage counts")
	}
	unused, err := g.UnusedExports(ctx)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "unused exports")
	}
	stats, err := g.Statistics(ctx)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "statistics")
	}

	report := &Report{
		RunID:                uuid.NewString(),
		Project:              cfg.Store.Project,
		StartedAt:            start.UTC(),
		Entries:              g.EntryPoints(),
		Statistics:           stats,
		SymbolStatistics:     g.SymbolStatistics(),
		UnusedExports:        unused,
		UnusedSymbols:        g.UnusedSymbols(),
		ExternalDependencies: g.ExternalDependencies(),
		FrameworkExports:     g.FrameworkUsedExports(),
		ParseFailures:        parseFailures(state),
	}
	for _, mod := range g.UnreachableModules() {
		report.UnreachableModules = append(report.UnreachableModules, mod.ID)
	}

	if cfg.PackageJSON.Enabled {
		pkg, err := a.packageReport(ctx, cwd, g)
		if err != nil {
			return nil, err
		}
		report.Packages = pkg
	}

	if target := cfg.Analysis.ChainTarget; target != "" {
		id, err := graph.NewModuleID(target)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxModule, target)
		}
		analysis, err := g.AnalyzeDependencyChains(ctx, id)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxOperation, "dependency chains")
		}
		report.Chains = &analysis
	}

	if a.persist {
		if err := a.persistReport(ctx, report, g); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(start)
	a.setResult(g, report)
	a.logger.Info("analysis complete",
		"run_id", report.RunID,
		"modules", stats.ModuleCount,
		"unused_exports", len(unused),
		"unreachable", len(report.UnreachableModules),
		"duration", report.Duration)
	return report, nil
}

func parseFailures(state *graph.CollectionState) []string {
	var out []string
	for key, mod := range state.Modules {
		if mod.ParseFailed {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// packageReport loads package.json relative to cwd. A missing file is
// logged and skipped.
func (a *App) packageReport(ctx context.Context, cwd string, g *graph.ModuleGraph) (*PackageReport, error) {
	p := a.Config.PackageJSON.Path
	if !path.IsAbs(p) {
		p = path.Join(cwd, p)
	}
	if !a.rt.Exists(p) {
		a.logger.Warn("package.json not found, skipping dependency coverage", "path", p)
		return nil, nil
	}
	pkg, err := graph.LoadPackageJSON(ctx, a.rt, p)
	if err != nil {
		return nil, err
	}
	coverage := g.DependencyCoverage(pkg)
	return &PackageReport{
		Path:     p,
		Name:     pkg.Name,
		Coverage: coverage,
		Percent:  coverage.CoveragePercentage(),
		Unused:   g.UnusedNPMDependencies(pkg, a.Config.PackageJSON.IncludeDev, a.Config.PackageJSON.IncludePeer),
	}, nil
}

// persistReport diffs against the previous run of the project and saves the
// new snapshot.
func (a *App) persistReport(ctx context.Context, report *Report, g *graph.ModuleGraph) error {
	prev, err := a.store.LatestSnapshot(ctx, report.Project)
	if err != nil && !errors.IsCode(err, errors.CodeNotFound) {
		return errors.AddContext(err, errors.CtxOperation, "load previous snapshot")
	}
	snap := report.snapshot(g)
	diff := history.Diff(prev, &snap)
	report.Diff = &diff

	if err := a.store.SaveSnapshot(ctx, snap); err != nil {
		return errors.AddContext(err, errors.CtxOperation, "save snapshot")
	}
	if a.Config.Store.Keep <= 0 {
		return nil
	}
	deleted, err := a.store.Prune(ctx, report.Project, a.Config.Store.Keep)
	if err != nil {
		a.logger.Warn("failed to prune old runs", "project", report.Project, "error", err)
	} else if deleted > 0 {
		a.logger.Debug("pruned old runs", "project", report.Project, "deleted", deleted)
	}
	return nil
}
