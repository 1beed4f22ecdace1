package app

import (
	"time"

	"modgraph/internal/data/history"
	"modgraph/internal/engine/graph"
)

// Report is the outcome of one analysis run.
type Report struct {
	RunID                string                     `json:"run_id"`
	Project              string                     `json:"project"`
	StartedAt            time.Time                  `json:"started_at"`
	Duration             time.Duration              `json:"duration_ns"`
	Entries              []graph.ModuleID           `json:"entries"`
	Statistics           graph.Statistics           `json:"statistics"`
	SymbolStatistics     graph.SymbolStatistics     `json:"symbol_statistics"`
	UnusedExports        []graph.UnusedExport       `json:"unused_exports"`
	UnusedSymbols        []graph.ModuleSymbol       `json:"unused_symbols"`
	UnreachableModules   []graph.ModuleID           `json:"unreachable_modules"`
	ExternalDependencies []graph.ExternalDependency `json:"external_dependencies"`
	FrameworkExports     []graph.FrameworkExport    `json:"framework_exports"`
	ParseFailures        []string                   `json:"parse_failures,omitempty"`
	Packages             *PackageReport             `json:"packages,omitempty"`
	Chains               *graph.ChainAnalysis       `json:"chains,omitempty"`
	Diff                 *history.SnapshotDiff      `json:"diff,omitempty"`
}

// PackageReport summarizes package.json dependency usage.
type PackageReport struct {
	Path     string                   `json:"path"`
	Name     string                   `json:"name"`
	Coverage graph.DependencyCoverage `json:"coverage"`
	Percent  float64                  `json:"coverage_percent"`
	Unused   []graph.UnusedDependency `json:"unused"`
}

// snapshot flattens the report and g into a persistable run summary.
func (r *Report) snapshot(g *graph.ModuleGraph) history.Snapshot {
	snap := history.Snapshot{
		RunID:             r.RunID,
		Project:           r.Project,
		Timestamp:         r.StartedAt,
		ModuleCount:       r.Statistics.ModuleCount,
		EntryCount:        r.Statistics.EntryPointCount,
		ExternalCount:     r.Statistics.ExternalDependencyCount,
		SideEffectCount:   r.Statistics.SideEffectModuleCount,
		UnusedExportCount: len(r.UnusedExports),
		UnreachableCount:  len(r.UnreachableModules),
	}
	for _, mod := range g.Modules() {
		snap.Modules = append(snap.Modules, history.ModuleRecord{
			ID:             mod.ID.String(),
			IsEntry:        mod.IsEntry,
			HasSideEffects: mod.HasSideEffects,
			ImportCount:    len(mod.Imports),
			ExportCount:    len(mod.Exports),
		})
	}
	for _, u := range r.UnusedExports {
		snap.UnusedExports = append(snap.UnusedExports, history.UnusedExportRecord{
			ModuleID: u.ModuleID.String(),
			Name:     u.Export.Name,
			Line:     u.Export.Span.Line,
		})
	}
	return snap
}
