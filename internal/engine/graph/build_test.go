package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modgraph/internal/core/errors"
)

func sampleCollection() *CollectionState {
	state := NewCollectionState()
	state.AddModule("src/index.ts", &CollectedModule{
		Path: "/proj/src/index.ts",
		Code: "import { a } from './a'; export * from './b'; import 'react';",
		Imports: []CollectedImport{
			{Source: "./a", Kind: ImportStatic, Specifiers: []ImportSpecifier{NamedSpecifier("a", "")}, ResolvedPath: "src/a.ts"},
			{Source: "react", Kind: ImportStatic},
		},
		Exports: []CollectedExport{
			{Kind: CollectedAll, Source: "./b", ResolvedPath: "src/b.ts"},
			{Kind: CollectedNamed, Exported: "c", Local: "c", Source: "./c"},
		},
		Format: FormatESM,
	})
	state.AddModule("src/a.ts", &CollectedModule{
		Path: "/proj/src/a.ts",
		Exports: []CollectedExport{
			{Kind: CollectedNamed, Exported: "a", Local: "a"},
			{Kind: CollectedDefault, Exported: "default", Local: "Widget"},
		},
		Symbols: SymbolTable{Symbols: []Symbol{
			NewSymbol("a", SymbolVariable, SymbolSpan{Line: 1}, 0),
			NewSymbol("Widget", SymbolClass, SymbolSpan{Line: 2}, 0),
			NewSymbol("internal", SymbolVariable, SymbolSpan{Line: 3}, 0),
		}},
	})
	state.AddModule("src/b.ts", &CollectedModule{
		Path:           "/proj/src/b.ts",
		ParseFailed:    true,
		HasSideEffects: true,
	})
	state.MarkEntry("src/index.ts")
	return state
}

func TestFromCollection(t *testing.T) {
	g, err := FromCollection(context.Background(), sampleCollection())
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []ModuleID{id("src/index.ts")}, g.EntryPoints())
	assert.Equal(t, []ModuleID{id("src/a.ts"), id("src/b.ts")}, g.Dependencies(id("src/index.ts")))
	assert.Equal(t, []ModuleID{id("src/index.ts")}, g.Dependents(id("src/b.ts")))

	index, ok := g.Module(id("src/index.ts"))
	require.True(t, ok)
	assert.True(t, index.IsEntry)
	assert.True(t, index.HasStarExports)
	assert.Equal(t, "/proj/src/index.ts", index.Path)
	assert.Equal(t, FormatESM, index.ModuleFormat)

	star, ok := index.Export(StarExportName)
	require.True(t, ok)
	assert.Equal(t, ExportStarReExport, star.Kind)
	assert.Equal(t, "src/b.ts", star.ReExportedFrom)

	reexp, ok := index.Export("c")
	require.True(t, ok)
	assert.Equal(t, ExportReExport, reexp.Kind)
	assert.Equal(t, "./c", reexp.ReExportedFrom, "uncollected targets keep the raw specifier")

	// Re-exports stay on the export list and only contribute edges.
	var kinds []ImportKind
	for _, imp := range index.Imports {
		kinds = append(kinds, imp.Kind)
	}
	assert.Equal(t, []ImportKind{ImportStatic, ImportStatic}, kinds)
	require.NotNil(t, star.ReExportTarget)
	assert.Equal(t, id("src/b.ts"), *star.ReExportTarget)
	assert.Nil(t, reexp.ReExportTarget)

	var specs []string
	for _, dep := range g.ExternalDependencies() {
		specs = append(specs, dep.Specifier)
	}
	assert.Equal(t, []string{"./c", "react"}, specs)

	a, _ := g.Module(id("src/a.ts"))
	def, ok := a.Export("default")
	require.True(t, ok)
	assert.Equal(t, ExportDefault, def.Kind)
	unusedSymbols := a.SymbolTable.UnusedSymbols()
	require.Len(t, unusedSymbols, 1)
	assert.Equal(t, "internal", unusedSymbols[0].Name, "exported declarations are linked to their exports")

	b, _ := g.Module(id("src/b.ts"))
	assert.True(t, b.HasSideEffects)
	assert.Empty(t, b.Exports)
}

func TestFromCollection_UnusedAcrossStar(t *testing.T) {
	g, err := FromCollection(context.Background(), sampleCollection())
	require.NoError(t, err)

	got := unusedNames(t, g)
	assert.Equal(t, []string{"default"}, got["src/a.ts"])
	assert.NotContains(t, got, "src/index.ts")
}

func TestFromCollection_NilState(t *testing.T) {
	_, err := FromCollection(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestCollectionState_Entries(t *testing.T) {
	state := NewCollectionState()
	state.AddModule("a.ts", &CollectedModule{})
	state.MarkEntry("a.ts")
	state.MarkEntry("a.ts")

	assert.Equal(t, []string{"a.ts"}, state.EntryPoints)
	mod, _ := state.Module("a.ts")
	assert.True(t, mod.IsEntry)
	assert.Equal(t, "a.ts", mod.ID)
	assert.NoError(t, state.ValidateEntryPoints())

	state.MarkEntry("missing.ts")
	err := state.ValidateEntryPoints()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	assert.Contains(t, err.Error(), "missing.ts")
}
