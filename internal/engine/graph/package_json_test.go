package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/runtime"
)

func TestExtractPackageName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@babel/core", "@babel/core"},
		{"@babel/core/lib/index", "@babel/core"},
		{"@types/node/fs", "@types/node"},
		{"@org", "@org"},
		{"lodash", "lodash"},
		{"lodash/fp", "lodash"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExtractPackageName(tt.in); got != tt.want {
				t.Errorf("ExtractPackageName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const manifest = `{
  "name": "demo",
  "version": "1.0.0",
  "dependencies": {"react": "^18.0.0", "lodash": "^4.17.0", "left-pad": "1.0.0"},
  "devDependencies": {"vitest": "^1.0.0", "@types/node": "^20"},
  "peerDependencies": {"react-dom": "^18.0.0"},
  "optionalDependencies": {"fsevents": "^2.3.0"}
}`

func TestLoadAndFindPackageJSON(t *testing.T) {
	rt := runtime.NewMemoryRuntime("/proj")
	rt.AddFile("/proj/package.json", manifest)
	rt.AddFile("/proj/src/deep/file.ts", "")

	pkg, err := FindPackageJSON(context.Background(), rt, "/proj/src/deep")
	require.NoError(t, err)
	assert.Equal(t, "demo", pkg.Name)
	assert.Equal(t, "/proj/package.json", pkg.Path)
	assert.Len(t, pkg.Dependencies, 3)
	assert.Equal(t, []string{"fsevents", "left-pad", "lodash", "react"}, pkg.DependencyNames(false, false))

	_, err = FindPackageJSON(context.Background(), runtime.NewMemoryRuntime("/other"), "/other")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestLoadPackageJSON_Rejections(t *testing.T) {
	rt := runtime.NewMemoryRuntime("/proj")
	rt.AddFile("/proj/big/package.json", `{"name":"`+strings.Repeat("x", MaxPackageJSONSize)+`"}`)
	rt.AddFile("/proj/bad/package.json", `{"name": `)

	_, err := LoadPackageJSON(context.Background(), rt, "/proj/big/package.json")
	assert.True(t, errors.IsCode(err, errors.CodeLimitExceeded), "got %v", err)

	_, err = LoadPackageJSON(context.Background(), rt, "/proj/bad/package.json")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)

	_, err = LoadPackageJSON(context.Background(), rt, "/proj/../etc/package.json")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)
}

func TestUnusedNPMDependencies(t *testing.T) {
	rt := runtime.NewMemoryRuntime("/proj")
	rt.AddFile("/proj/package.json", manifest)
	pkg, err := LoadPackageJSON(context.Background(), rt, "/proj/package.json")
	require.NoError(t, err)

	app := module("app.ts")
	app.Imports = []Import{
		{Source: "react", Kind: ImportStatic},
		{Source: "lodash/fp", Kind: ImportStatic},
		{Source: "@types/node/fs", Kind: ImportTypeOnly},
		{Source: "./local", Kind: ImportStatic},
	}
	g := buildGraph(app)

	var names []string
	for _, d := range g.UnusedNPMDependencies(pkg, false, false) {
		names = append(names, d.Package)
	}
	assert.Equal(t, []string{"left-pad", "fsevents"}, names)

	names = names[:0]
	for _, d := range g.UnusedNPMDependencies(pkg, true, true) {
		names = append(names, d.Package+":"+string(d.Type))
	}
	assert.Equal(t, []string{
		"left-pad:dependencies",
		"vitest:devDependencies",
		"react-dom:peerDependencies",
		"fsevents:optionalDependencies",
	}, names)

	cov := g.DependencyCoverage(pkg)
	assert.Equal(t, 7, cov.TotalDeclared)
	assert.Equal(t, 3, cov.TotalUsed)
	assert.Equal(t, 4, cov.TotalUnused)
	assert.Equal(t, TypeCoverage{Declared: 3, Used: 2, Unused: 1}, cov.ByType[DependencyProduction])
	assert.InDelta(t, 42.857, cov.CoveragePercentage(), 0.01)

	assert.Equal(t, 100.0, DependencyCoverage{}.CoveragePercentage())
}

func TestUnusedNPMDependencies_ReExportedPackageIsUsed(t *testing.T) {
	rt := runtime.NewMemoryRuntime("/proj")
	rt.AddFile("/proj/package.json", manifest)
	pkg, err := LoadPackageJSON(context.Background(), rt, "/proj/package.json")
	require.NoError(t, err)

	barrel := module("barrel.ts",
		Export{Name: StarExportName, Local: StarExportName, Kind: ExportStarReExport, ReExportedFrom: "left-pad"},
		starFrom("local.ts"),
	)
	g := buildGraph(module("local.ts"), barrel)

	for _, d := range g.UnusedNPMDependencies(pkg, false, false) {
		assert.NotEqual(t, "left-pad", d.Package)
	}
	assert.True(t, g.ImportsPackage("left-pad"))
	assert.False(t, g.ImportsPackage("local.ts"), "collected targets are edges, not packages")
}
