// # internal/engine/graph/graph.go
package graph

import (
	"sort"
	"sync"

	"modgraph/internal/core/errors"
	"modgraph/internal/shared/observability"
)

// ModuleGraph is the in-memory module graph. A single RWMutex guards all of
// its state: mutations hold the write lock for the whole operation and
// queries return owned snapshots.
type ModuleGraph struct {
	mu sync.RWMutex

	modules      map[ModuleID]*Module
	dependencies map[ModuleID]map[ModuleID]bool // from -> to
	dependents   map[ModuleID]map[ModuleID]bool // to -> from
	entryPoints  map[ModuleID]bool
	externalDeps map[string]*ExternalDependency
}

func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{
		modules:      make(map[ModuleID]*Module),
		dependencies: make(map[ModuleID]map[ModuleID]bool),
		dependents:   make(map[ModuleID]map[ModuleID]bool),
		entryPoints:  make(map[ModuleID]bool),
		externalDeps: make(map[string]*ExternalDependency),
	}
}

// AddModule inserts or replaces a module by id. Resolved imports and
// re-exports become edges; unresolved ones are recorded as external
// dependencies. Replacing a module first drops every outgoing edge and
// external importer entry of the previous version, so edges added with
// AddDependency for that module must be added again.
func (g *ModuleGraph) AddModule(mod *Module) error {
	if mod == nil {
		return errors.New(errors.CodeValidationError, "module must not be nil")
	}
	if mod.ID == "" {
		return errors.New(errors.CodeValidationError, "module id must not be empty")
	}
	stored := mod.Clone()

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.modules[stored.ID]; ok {
		g.detachLocked(stored.ID)
	}
	if stored.IsEntry {
		g.entryPoints[stored.ID] = true
	} else if g.entryPoints[stored.ID] {
		stored.IsEntry = true
	}

	for _, imp := range stored.Imports {
		if imp.ResolvedTo != nil {
			g.addEdgeLocked(stored.ID, *imp.ResolvedTo)
			continue
		}
		if imp.Source != "" {
			g.externalLocked(imp.Source).AddImporter(stored.ID)
		}
	}
	for _, exp := range stored.Exports {
		switch {
		case exp.ReExportTarget != nil:
			g.addEdgeLocked(stored.ID, *exp.ReExportTarget)
		case exp.ReExportedFrom != "":
			g.externalLocked(exp.ReExportedFrom).AddImporter(stored.ID)
		}
	}

	g.modules[stored.ID] = stored
	g.publishSizeLocked()
	return nil
}

// AddDependency records from -> to. Repeated calls are idempotent.
func (g *ModuleGraph) AddDependency(from, to ModuleID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addEdgeLocked(from, to)
	g.publishSizeLocked()
}

func (g *ModuleGraph) AddDependencies(from ModuleID, targets []ModuleID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, to := range targets {
		g.addEdgeLocked(from, to)
	}
	g.publishSizeLocked()
}

// AddEntryPoint marks id as a graph root, updating the stored module if present.
func (g *ModuleGraph) AddEntryPoint(id ModuleID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entryPoints[id] = true
	if mod, ok := g.modules[id]; ok {
		mod.IsEntry = true
	}
}

// AddExternalDependency merges dep's importers into the stored dependency.
func (g *ModuleGraph) AddExternalDependency(dep ExternalDependency) {
	if dep.Specifier == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	stored := g.externalLocked(dep.Specifier)
	for _, importer := range dep.Importers {
		stored.AddImporter(importer)
	}
}

// Clear removes every module, edge, entry point and external dependency.
func (g *ModuleGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modules = make(map[ModuleID]*Module)
	g.dependencies = make(map[ModuleID]map[ModuleID]bool)
	g.dependents = make(map[ModuleID]map[ModuleID]bool)
	g.entryPoints = make(map[ModuleID]bool)
	g.externalDeps = make(map[string]*ExternalDependency)
	g.publishSizeLocked()
}

func (g *ModuleGraph) addEdgeLocked(from, to ModuleID) {
	if g.dependencies[from] == nil {
		g.dependencies[from] = make(map[ModuleID]bool)
	}
	g.dependencies[from][to] = true
	if g.dependents[to] == nil {
		g.dependents[to] = make(map[ModuleID]bool)
	}
	g.dependents[to][from] = true
}

// detachLocked removes the outgoing edges of id and its importer entries on
// external dependencies. Dependencies left without importers are dropped.
func (g *ModuleGraph) detachLocked(id ModuleID) {
	for to := range g.dependencies[id] {
		delete(g.dependents[to], id)
		if len(g.dependents[to]) == 0 {
			delete(g.dependents, to)
		}
	}
	delete(g.dependencies, id)
	for spec, dep := range g.externalDeps {
		if dep.RemoveImporter(id) && len(dep.Importers) == 0 {
			delete(g.externalDeps, spec)
		}
	}
}

func (g *ModuleGraph) externalLocked(specifier string) *ExternalDependency {
	dep, ok := g.externalDeps[specifier]
	if !ok {
		dep = &ExternalDependency{Specifier: specifier}
		g.externalDeps[specifier] = dep
	}
	return dep
}

func (g *ModuleGraph) publishSizeLocked() {
	observability.GraphModules.Set(float64(len(g.modules)))
	edges := 0
	for _, targets := range g.dependencies {
		edges += len(targets)
	}
	observability.GraphEdges.Set(float64(edges))
}

// Module returns a snapshot of the module with the given id.
func (g *ModuleGraph) Module(id ModuleID) (*Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	mod, ok := g.modules[id]
	if !ok {
		return nil, false
	}
	return mod.Clone(), true
}

// ModuleByPath looks a module up by its filesystem path.
func (g *ModuleGraph) ModuleByPath(path string) (*Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, mod := range g.modules {
		if mod.Path == path {
			return mod.Clone(), true
		}
	}
	return nil, false
}

// Modules returns snapshots of every module sorted by id.
func (g *ModuleGraph) Modules() []*Module {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Module, 0, len(g.modules))
	for _, id := range sortedIDs(g.modules) {
		out = append(out, g.modules[id].Clone())
	}
	return out
}

func (g *ModuleGraph) Dependencies(id ModuleID) []ModuleID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.dependencies[id])
}

func (g *ModuleGraph) Dependents(id ModuleID) []ModuleID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.dependents[id])
}

func (g *ModuleGraph) Contains(id ModuleID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.modules[id]
	return ok
}

func (g *ModuleGraph) EntryPoints() []ModuleID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.entryPoints)
}

func (g *ModuleGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.modules)
}

func (g *ModuleGraph) IsEmpty() bool {
	return g.Len() == 0
}

// ImportsForModule returns the module's import records.
func (g *ModuleGraph) ImportsForModule(id ModuleID) ([]Import, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	mod, ok := g.modules[id]
	if !ok {
		return nil, false
	}
	out := make([]Import, len(mod.Imports))
	for i, imp := range mod.Imports {
		out[i] = imp.Clone()
	}
	return out, true
}

// ExternalDependencies returns every external dependency sorted by specifier.
func (g *ModuleGraph) ExternalDependencies() []ExternalDependency {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, 0, len(g.externalDeps))
	for k := range g.externalDeps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ExternalDependency, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.externalDeps[k].Clone())
	}
	return out
}

func sortedSet(set map[ModuleID]bool) []ModuleID {
	out := make([]ModuleID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedIDs[V any](m map[ModuleID]V) []ModuleID {
	out := make([]ModuleID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
