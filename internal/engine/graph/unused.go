package graph

import (
	"context"
	"time"

	"modgraph/internal/core/errors"
	"modgraph/internal/shared/observability"
)

type exportKey struct {
	module ModuleID
	name   string
}

// UnusedExports lists exports of non-entry modules that no importer uses,
// directly or through re-export chains. Framework-used exports are skipped.
func (g *ModuleGraph) UnusedExports(ctx context.Context) ([]UnusedExport, error) {
	defer observability.ObserveTask("unused_exports", time.Now())
	_, span := observability.Tracer.Start(ctx, "graph.UnusedExports")
	defer span.End()

	g.mu.RLock()
	defer g.mu.RUnlock()

	var unused []UnusedExport
	for _, id := range sortedIDs(g.modules) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mod := g.modules[id]
		if mod.IsEntry {
			continue
		}
		for _, exp := range mod.Exports {
			if exp.IsFrameworkUsed {
				continue
			}
			used, err := g.isExportUsedLocked(id, exp.Name, make(map[exportKey]bool))
			if err != nil {
				return nil, err
			}
			if !used {
				unused = append(unused, UnusedExport{ModuleID: id, Export: exp.Clone()})
			}
		}
	}
	observability.UnusedExports.Set(float64(len(unused)))
	return unused, nil
}

// IsExportUsed reports whether the named export of id is used.
func (g *ModuleGraph) IsExportUsed(id ModuleID, name string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.isExportUsedLocked(id, name, make(map[exportKey]bool))
}

// isExportUsedLocked walks importers and re-exporters of (id, name). A
// re-export only forwards: the forwarded name counts as used when the
// re-exporter's own importers use it, whether or not the re-exporter is an
// entry. A pair already on the visited set contributes nothing, which
// terminates re-export cycles.
func (g *ModuleGraph) isExportUsedLocked(id ModuleID, name string, visited map[exportKey]bool) (bool, error) {
	key := exportKey{module: id, name: name}
	if visited[key] {
		return false, nil
	}
	visited[key] = true

	if _, ok := g.modules[id]; !ok {
		err := errors.New(errors.CodeNotFound, "module not found in graph")
		return false, errors.AddContext(err, errors.CtxModule, id.String())
	}

	for importerID := range g.dependents[id] {
		importer, ok := g.modules[importerID]
		if !ok {
			continue
		}
		for _, imp := range importer.Imports {
			if matchesExport(imp, id, name) > 0 {
				return true, nil
			}
		}
	}

	for _, reID := range sortedIDs(g.modules) {
		re := g.modules[reID]
		for _, exp := range re.Exports {
			if !exp.forwardsFrom(id) {
				continue
			}
			var forwarded string
			switch {
			case exp.Kind == ExportStarReExport:
				forwarded = name
			case exp.Kind == ExportReExport && (exp.Local == name || exp.Local == StarExportName):
				forwarded = exp.Name
			default:
				continue
			}
			used, err := g.isExportUsedLocked(reID, forwarded, visited)
			if err != nil {
				return false, err
			}
			if used {
				return true, nil
			}
		}
	}
	return false, nil
}

// matchesExport counts how many specifiers of imp use export name of target.
// A namespace import counts once per statement. Forwarding imports never
// count.
func matchesExport(imp Import, target ModuleID, name string) int {
	if imp.Kind == ImportReExport || imp.ResolvedTo == nil || *imp.ResolvedTo != target || len(imp.Specifiers) == 0 {
		return 0
	}
	count := 0
	for _, spec := range imp.Specifiers {
		switch spec.Kind {
		case SpecifierNamed:
			if spec.Imported == name {
				count++
			}
		case SpecifierDefault:
			if name == "default" {
				count++
			}
		case SpecifierNamespace:
			return count + 1
		}
	}
	return count
}
