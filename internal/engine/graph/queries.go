package graph

import (
	"context"
	"strings"
)

// SideEffectImport is an import that binds nothing, e.g. `import './polyfill'`.
type SideEffectImport struct {
	Importer   ModuleID  `json:"importer"`
	Source     string    `json:"source"`
	ResolvedTo *ModuleID `json:"resolved_to,omitempty"`
	Span       Span      `json:"span"`
}

// NamespaceImport is an `import * as name` statement.
type NamespaceImport struct {
	Importer      ModuleID  `json:"importer"`
	NamespaceName string    `json:"namespace_name"`
	Source        string    `json:"source"`
	ResolvedTo    *ModuleID `json:"resolved_to,omitempty"`
}

// TypeOnlyImport is an `import type` statement.
type TypeOnlyImport struct {
	Importer   ModuleID          `json:"importer"`
	Source     string            `json:"source"`
	Specifiers []ImportSpecifier `json:"specifiers,omitempty"`
	Span       Span              `json:"span"`
}

// FrameworkExport is an export marked as consumed by framework conventions.
type FrameworkExport struct {
	ModuleID ModuleID `json:"module_id"`
	Export   Export   `json:"export"`
}

// Statistics is a dashboard snapshot of the graph.
type Statistics struct {
	ModuleCount             int `json:"module_count"`
	EntryPointCount         int `json:"entry_point_count"`
	ExternalDependencyCount int `json:"external_dependency_count"`
	SideEffectModuleCount   int `json:"side_effect_module_count"`
	UnusedExportCount       int `json:"unused_export_count"`
	UnreachableModuleCount  int `json:"unreachable_module_count"`
}

// UnreachableModules returns non-entry modules without dependents and
// without side effects.
func (g *ModuleGraph) UnreachableModules() []*Module {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Module
	for _, id := range sortedIDs(g.modules) {
		mod := g.modules[id]
		if mod.IsEntry || mod.HasSideEffects {
			continue
		}
		if len(g.dependents[id]) == 0 {
			out = append(out, mod.Clone())
		}
	}
	return out
}

// DependsOn reports whether from reaches to, directly or transitively. A
// module always depends on itself.
func (g *ModuleGraph) DependsOn(from, to ModuleID) bool {
	if from == to {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[ModuleID]bool{}
	queue := []ModuleID{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for dep := range g.dependencies[current] {
			if dep == to {
				return true
			}
			queue = append(queue, dep)
		}
	}
	return false
}

// TransitiveDependencies returns every module reachable from id, excluding id.
func (g *ModuleGraph) TransitiveDependencies(id ModuleID) []ModuleID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[ModuleID]bool{}
	queue := []ModuleID{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for next := range g.dependencies[current] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}
	delete(visited, id)
	return sortedSet(visited)
}

// HasDependency reports a direct edge from -> to.
func (g *ModuleGraph) HasDependency(from, to ModuleID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependencies[from][to]
}

// ImportsPackage reports whether any module imports the npm package name,
// including subpath imports such as `lodash/fp`.
func (g *ModuleGraph) ImportsPackage(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for spec := range g.externalDeps {
		if spec == name || strings.HasPrefix(spec, name+"/") {
			return true
		}
	}
	return false
}

func (g *ModuleGraph) SideEffectOnlyImports() []SideEffectImport {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []SideEffectImport
	for _, id := range sortedIDs(g.modules) {
		for _, imp := range g.modules[id].Imports {
			if !imp.IsSideEffectOnly() {
				continue
			}
			c := imp.Clone()
			out = append(out, SideEffectImport{Importer: id, Source: c.Source, ResolvedTo: c.ResolvedTo, Span: c.Span})
		}
	}
	return out
}

// NamespaceImports lists `import * as x` statements. Forwarding
// `export * from` records are not namespace imports.
func (g *ModuleGraph) NamespaceImports() []NamespaceImport {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []NamespaceImport
	for _, id := range sortedIDs(g.modules) {
		for _, imp := range g.modules[id].Imports {
			if imp.Kind == ImportReExport {
				continue
			}
			name, ok := imp.NamespaceName()
			if !ok {
				continue
			}
			c := imp.Clone()
			out = append(out, NamespaceImport{Importer: id, NamespaceName: name, Source: c.Source, ResolvedTo: c.ResolvedTo})
		}
	}
	return out
}

func (g *ModuleGraph) TypeOnlyImports() []TypeOnlyImport {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []TypeOnlyImport
	for _, id := range sortedIDs(g.modules) {
		for _, imp := range g.modules[id].Imports {
			if imp.Kind != ImportTypeOnly {
				continue
			}
			c := imp.Clone()
			out = append(out, TypeOnlyImport{Importer: id, Source: c.Source, Specifiers: c.Specifiers, Span: c.Span})
		}
	}
	return out
}

func (g *ModuleGraph) FrameworkUsedExports() []FrameworkExport {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []FrameworkExport
	for _, id := range sortedIDs(g.modules) {
		for _, exp := range g.modules[id].Exports {
			if exp.IsFrameworkUsed {
				out = append(out, FrameworkExport{ModuleID: id, Export: exp.Clone()})
			}
		}
	}
	return out
}

// Statistics computes the dashboard snapshot. Each figure is read under its
// own lock acquisition.
func (g *ModuleGraph) Statistics(ctx context.Context) (Statistics, error) {
	unused, err := g.UnusedExports(ctx)
	if err != nil {
		return Statistics{}, err
	}
	modules := g.Modules()
	stats := Statistics{
		ModuleCount:             len(modules),
		EntryPointCount:         len(g.EntryPoints()),
		ExternalDependencyCount: len(g.ExternalDependencies()),
		UnusedExportCount:       len(unused),
		UnreachableModuleCount:  len(g.UnreachableModules()),
	}
	for _, mod := range modules {
		if mod.HasSideEffects {
			stats.SideEffectModuleCount++
		}
	}
	return stats, nil
}
