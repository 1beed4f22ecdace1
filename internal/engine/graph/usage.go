package graph

import (
	"context"
	"time"

	"modgraph/internal/shared/observability"
)

// ComputeExportUsageCounts sets UsageCount on every export to the number of
// direct import sites. Re-export chains are not followed.
//
// Module ids are snapshotted first, each module is cloned under a short read
// lock, counts are computed off-lock and committed under one write lock.
func (g *ModuleGraph) ComputeExportUsageCounts(ctx context.Context) error {
	defer observability.ObserveTask("usage_counts", time.Now())

	g.mu.RLock()
	ids := sortedIDs(g.modules)
	g.mu.RUnlock()

	updates := make(map[ModuleID]map[string]int, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		mod, importers, ok := g.usageInputs(id)
		if !ok {
			continue
		}
		counts := make(map[string]int, len(mod.Exports))
		for _, exp := range mod.Exports {
			n := 0
			for _, importer := range importers {
				for _, imp := range importer.Imports {
					n += matchesExport(imp, id, exp.Name)
				}
			}
			counts[exp.Name] = n
		}
		updates[id] = counts
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for id, counts := range updates {
		mod, ok := g.modules[id]
		if !ok {
			continue
		}
		for i := range mod.Exports {
			mod.Exports[i].SetUsageCount(counts[mod.Exports[i].Name])
		}
	}
	return nil
}

func (g *ModuleGraph) usageInputs(id ModuleID) (*Module, []*Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	mod, ok := g.modules[id]
	if !ok {
		return nil, nil, false
	}
	importers := make([]*Module, 0, len(g.dependents[id]))
	for _, importerID := range sortedSet(g.dependents[id]) {
		if importer, ok := g.modules[importerID]; ok {
			importers = append(importers, importer.Clone())
		}
	}
	return mod.Clone(), importers, true
}
