package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unusedNames(t *testing.T, g *ModuleGraph) map[string][]string {
	t.Helper()
	unused, err := g.UnusedExports(context.Background())
	require.NoError(t, err)
	out := make(map[string][]string)
	for _, u := range unused {
		out[u.ModuleID.String()] = append(out[u.ModuleID.String()], u.Export.Name)
	}
	return out
}

func TestUnusedExports_DirectImports(t *testing.T) {
	lib := module("lib.ts", named("used"), named("unused"), Export{Name: "default", Kind: ExportDefault})
	app := module("app.ts")
	app.Imports = []Import{importFrom("lib.ts", ImportStatic, NamedSpecifier("used", ""), DefaultSpecifier("lib"))}

	g := buildGraph(lib, app)
	assert.Equal(t, map[string][]string{"lib.ts": {"unused"}}, unusedNames(t, g))
}

func TestUnusedExports_SkipsEntriesAndFrameworkExports(t *testing.T) {
	entry := module("main.ts", named("publicApi"))
	entry.IsEntry = true

	hooks := module("hooks.ts", named("useThing"), named("helper"))
	hooks.Exports[0].MarkFrameworkUsed()

	g := buildGraph(entry, hooks)
	got := unusedNames(t, g)
	assert.NotContains(t, got, "main.ts")
	assert.Equal(t, []string{"helper"}, got["hooks.ts"])
}

func TestUnusedExports_SideEffectImportUsesNothing(t *testing.T) {
	app := module("app.ts")
	app.Imports = []Import{importFrom("polyfill.ts", ImportStatic)}
	g := buildGraph(module("polyfill.ts", named("install")), app)

	assert.Equal(t, []string{"install"}, unusedNames(t, g)["polyfill.ts"])
}

func TestUnusedExports_NamespaceImportUsesAll(t *testing.T) {
	app := module("app.ts")
	app.Imports = []Import{importFrom("utils.ts", ImportStatic, NamespaceSpecifier("utils"))}
	g := buildGraph(module("utils.ts", named("a"), named("b")), app)

	assert.Empty(t, unusedNames(t, g))
}

func TestUnusedExports_ThroughStarReExport(t *testing.T) {
	// a exports X; b does `export * from './a'`; c imports { X } from './b'.
	a := module("a.ts", named("X"), named("Y"))
	b := module("b.ts", starFrom("a.ts"))
	c := module("c.ts")
	c.Imports = []Import{importFrom("b.ts", ImportStatic, NamedSpecifier("X", ""))}

	g := buildGraph(a, b, c)
	got := unusedNames(t, g)

	assert.Equal(t, []string{"Y"}, got["a.ts"], "X is used through the star re-export, Y is not")
}

func TestUnusedExports_ThroughNamedReExport(t *testing.T) {
	a := module("a.ts", named("impl"))
	b := module("b.ts", reExportFrom("a.ts", "impl", "api"))
	c := module("c.ts")
	c.Imports = []Import{importFrom("b.ts", ImportStatic, NamedSpecifier("api", ""))}

	g := buildGraph(a, b, c)
	assert.Empty(t, unusedNames(t, g))

	// Without the consumer the forwarded export is unused on both ends.
	g2 := buildGraph(a, b)
	got := unusedNames(t, g2)
	assert.Equal(t, []string{"impl"}, got["a.ts"])
	assert.Equal(t, []string{"api"}, got["b.ts"])
}

func TestUnusedExports_EntryReExportWithoutImporters(t *testing.T) {
	a := module("a.ts", named("X"))
	index := module("index.ts", starFrom("a.ts"))
	index.IsEntry = true

	g := buildGraph(a, index)
	got := unusedNames(t, g)
	assert.NotContains(t, got, "index.ts", "entry exports are never reported")
	assert.Equal(t, []string{"X"}, got["a.ts"], "forwarding through an entry is not a use")

	used, err := g.IsExportUsed(id("a.ts"), "X")
	require.NoError(t, err)
	assert.False(t, used)

	app := module("app.ts")
	app.Imports = []Import{importFrom("index.ts", ImportStatic, NamedSpecifier("X", ""))}
	require.NoError(t, g.AddModule(app))
	assert.NotContains(t, unusedNames(t, g), "a.ts")
}

func TestUnusedExports_FrameworkReExportDoesNotShortCircuit(t *testing.T) {
	a := module("a.ts", named("X"))
	barrel := module("barrel.ts", reExportFrom("a.ts", "X", "X"))
	barrel.Exports[0].MarkFrameworkUsed()

	got := unusedNames(t, buildGraph(a, barrel))
	assert.NotContains(t, got, "barrel.ts")
	assert.Equal(t, []string{"X"}, got["a.ts"])
}

func TestFromCollection_NamedReExportIsNotAUse(t *testing.T) {
	state := NewCollectionState()
	state.AddModule("main.ts", &CollectedModule{
		Imports: []CollectedImport{{Source: "./b", Kind: ImportStatic, ResolvedPath: "b.ts"}},
	})
	state.AddModule("b.ts", &CollectedModule{
		Exports: []CollectedExport{{Kind: CollectedNamed, Exported: "X", Local: "X", Source: "./a", ResolvedPath: "a.ts"}},
	})
	state.AddModule("a.ts", &CollectedModule{
		Exports: []CollectedExport{{Kind: CollectedNamed, Exported: "X", Local: "X"}},
	})
	state.MarkEntry("main.ts")

	g, err := FromCollection(context.Background(), state)
	require.NoError(t, err)

	b, ok := g.Module(id("b.ts"))
	require.True(t, ok)
	assert.Empty(t, b.Imports, "re-exports are not import records")
	assert.Equal(t, []ModuleID{id("a.ts")}, g.Dependencies(id("b.ts")))
	assert.Equal(t, []ModuleID{id("b.ts")}, g.Dependents(id("a.ts")))

	got := unusedNames(t, g)
	assert.Equal(t, []string{"X"}, got["a.ts"])
	assert.Equal(t, []string{"X"}, got["b.ts"])

	require.NoError(t, g.ComputeExportUsageCounts(context.Background()))
	for _, p := range []string{"a.ts", "b.ts"} {
		mod, _ := g.Module(id(p))
		exp, ok := mod.Export("X")
		require.True(t, ok)
		require.NotNil(t, exp.UsageCount)
		assert.Equal(t, 0, *exp.UsageCount, p)
	}
}

func TestMatchesExport_ForwardingImportNeverCounts(t *testing.T) {
	imp := importFrom("a.ts", ImportReExport, NamedSpecifier("X", ""), NamespaceSpecifier(StarExportName))
	assert.Zero(t, matchesExport(imp, id("a.ts"), "X"))

	imp.Kind = ImportStatic
	assert.Equal(t, 2, matchesExport(imp, id("a.ts"), "X"))
}

func TestUnusedExports_ReExportCycleTerminates(t *testing.T) {
	a := module("a.ts", named("X"), starFrom("b.ts"))
	b := module("b.ts", starFrom("a.ts"))

	g := buildGraph(a, b)
	got := unusedNames(t, g)
	assert.Contains(t, got["a.ts"], "X")
}

func TestUnusedExports_Cancelled(t *testing.T) {
	g := buildGraph(module("a.ts", named("x")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.UnusedExports(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeExportUsageCounts_NoImports(t *testing.T) {
	g := buildGraph(module("a.ts", named("x"), named("y")), module("b.ts", Export{Name: "default", Kind: ExportDefault}))
	require.NoError(t, g.ComputeExportUsageCounts(context.Background()))

	for _, mod := range g.Modules() {
		for _, exp := range mod.Exports {
			require.NotNil(t, exp.UsageCount, "%s:%s", mod.ID, exp.Name)
			assert.Equal(t, 0, *exp.UsageCount)
		}
	}
}

func TestComputeExportUsageCounts_DirectOnly(t *testing.T) {
	lib := module("lib.ts", named("a"), named("b"), Export{Name: "default", Kind: ExportDefault})
	one := module("one.ts")
	one.Imports = []Import{
		importFrom("lib.ts", ImportStatic, NamedSpecifier("a", ""), DefaultSpecifier("lib")),
		importFrom("lib.ts", ImportStatic, NamespaceSpecifier("ns")),
	}
	two := module("two.ts")
	two.Imports = []Import{importFrom("lib.ts", ImportStatic, NamedSpecifier("a", "aa"))}
	barrel := module("barrel.ts", starFrom("lib.ts"))
	three := module("three.ts")
	three.Imports = []Import{importFrom("barrel.ts", ImportStatic, NamedSpecifier("b", ""))}

	g := buildGraph(lib, one, two, barrel, three)
	require.NoError(t, g.ComputeExportUsageCounts(context.Background()))

	got, _ := g.Module(id("lib.ts"))
	counts := map[string]int{}
	for _, e := range got.Exports {
		counts[e.Name] = e.Usage()
	}
	// a: two named + one namespace; b: namespace only (barrel does not count);
	// default: default specifier + namespace.
	assert.Equal(t, map[string]int{"a": 3, "b": 1, "default": 2}, counts)

	// Repeating the pass yields the same numbers.
	require.NoError(t, g.ComputeExportUsageCounts(context.Background()))
	again, _ := g.Module(id("lib.ts"))
	assert.Equal(t, 3, again.Exports[0].Usage())
}
