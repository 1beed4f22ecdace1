package graph

import (
	"fmt"
	"sort"
	"strings"

	"modgraph/internal/core/errors"
)

// CollectedExportKind classifies an export as seen by the walker.
type CollectedExportKind string

const (
	CollectedNamed   CollectedExportKind = "named"
	CollectedDefault CollectedExportKind = "default"
	CollectedAll     CollectedExportKind = "all"
)

// CollectedImport is an import as parsed, plus the collection key of its
// target when the resolver produced a local path.
type CollectedImport struct {
	Source       string
	Specifiers   []ImportSpecifier
	Kind         ImportKind
	ResolvedPath string
	Span         Span
}

// CollectedExport is an export as parsed. Source is set for re-exports and
// ResolvedPath holds the collection key of the forwarded module when local.
type CollectedExport struct {
	Kind             CollectedExportKind
	Exported         string
	Local            string
	Source           string
	ResolvedPath     string
	IsTypeOnly       bool
	CameFromCommonJS bool
	Span             Span
}

// IsReExport reports whether the export forwards bindings of another module.
func (e CollectedExport) IsReExport() bool {
	return e.Source != ""
}

// CollectedModule is the raw walk output for one file.
type CollectedModule struct {
	ID             string
	Path           string
	Code           string
	IsEntry        bool
	IsExternal     bool
	Imports        []CollectedImport
	Exports        []CollectedExport
	HasSideEffects bool
	ParseFailed    bool
	Format         ModuleFormat
	Symbols        SymbolTable
}

// CollectionState holds every module reached by a walk keyed by its
// project-relative path, plus the entry keys in marking order.
type CollectionState struct {
	Modules     map[string]*CollectedModule
	EntryPoints []string
}

func NewCollectionState() *CollectionState {
	return &CollectionState{Modules: make(map[string]*CollectedModule)}
}

// AddModule stores mod under id, replacing any previous module.
func (s *CollectionState) AddModule(id string, mod *CollectedModule) {
	if mod.ID == "" {
		mod.ID = id
	}
	s.Modules[id] = mod
}

func (s *CollectionState) Module(id string) (*CollectedModule, bool) {
	mod, ok := s.Modules[id]
	return mod, ok
}

// MarkEntry records id as an entry point once.
func (s *CollectionState) MarkEntry(id string) {
	for _, existing := range s.EntryPoints {
		if existing == id {
			return
		}
	}
	s.EntryPoints = append(s.EntryPoints, id)
	if mod, ok := s.Modules[id]; ok {
		mod.IsEntry = true
	}
}

// ValidateEntryPoints fails when a marked entry was never collected.
func (s *CollectionState) ValidateEntryPoints() error {
	var missing []string
	for _, id := range s.EntryPoints {
		if _, ok := s.Modules[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	err := errors.New(errors.CodeNotFound, fmt.Sprintf("entry points not collected: %s", strings.Join(missing, ", ")))
	return errors.AddContext(err, errors.CtxOperation, "validate_entry_points")
}

// Keys returns the collected module keys in sorted order.
func (s *CollectionState) Keys() []string {
	keys := make([]string, 0, len(s.Modules))
	for k := range s.Modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
