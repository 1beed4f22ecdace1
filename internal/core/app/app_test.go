package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"modgraph/internal/core/config"
	domainerrors "modgraph/internal/core/errors"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/graph"
	"modgraph/internal/engine/runtime"
	"modgraph/internal/engine/walker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectRuntime() *runtime.MemoryRuntime {
	rt := runtime.NewMemoryRuntime("/proj")
	rt.AddFile("/proj/package.json", `{"name":"demo","dependencies":{"lodash":"^4.17.21","react":"^18.2.0"}}`)
	rt.AddFile("/proj/src/index.ts", `import { used } from './lib';
import { useTheme } from './hooks';
import lodash from 'lodash';

console.log(used, useTheme, lodash);
`)
	rt.AddFile("/proj/src/lib.ts", `export const used = 1;
export const unused = 2;
export function helper() {
  return 3;
}
`)
	rt.AddFile("/proj/src/hooks.ts", `export function useTheme() {}
export function useUnused() {}
`)
	return rt
}

func projectConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.Entries = []string{"src/index.ts"}
	cfg.Analysis.ChainTarget = "src/lib.ts"
	cfg.PackageJSON.Enabled = true
	return cfg
}

func unusedNames(report *Report) []string {
	var out []string
	for _, u := range report.UnusedExports {
		out = append(out, u.ModuleID.String()+"#"+u.Export.Name)
	}
	return out
}

func TestApp_Run(t *testing.T) {
	a, err := New(projectConfig(), WithRuntime(projectRuntime()))
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "default", report.Project)
	assert.Equal(t, []graph.ModuleID{"src/index.ts"}, report.Entries)
	assert.Equal(t, 3, report.Statistics.ModuleCount)
	assert.Equal(t, 1, report.Statistics.EntryPointCount)
	assert.ElementsMatch(t, []string{"src/lib.ts#unused", "src/lib.ts#helper"}, unusedNames(report))
	assert.Empty(t, report.UnreachableModules)
	assert.Empty(t, report.ParseFailures)
	assert.Nil(t, report.Diff)

	require.Len(t, report.ExternalDependencies, 1)
	assert.Equal(t, "lodash", report.ExternalDependencies[0].Specifier)

	require.Len(t, report.FrameworkExports, 2)
	for _, fe := range report.FrameworkExports {
		assert.Equal(t, graph.ModuleID("src/hooks.ts"), fe.ModuleID)
	}

	require.NotNil(t, report.Packages)
	assert.Equal(t, "demo", report.Packages.Name)
	assert.Equal(t, 50.0, report.Packages.Percent)
	require.Len(t, report.Packages.Unused, 1)
	assert.Equal(t, "react", report.Packages.Unused[0].Package)

	require.NotNil(t, report.Chains)
	assert.True(t, report.Chains.IsReachable())
	require.Len(t, report.Chains.Chains, 1)
	assert.Equal(t, 1, report.Chains.Chains[0].Depth)

	assert.Same(t, report, a.LastReport())
	require.NotNil(t, a.Graph())
	assert.True(t, a.Graph().Contains("src/lib.ts"))
}

func TestApp_RunRecordsParseFailures(t *testing.T) {
	rt := runtime.NewMemoryRuntime("/proj")
	rt.AddFile("/proj/index.js", "import './broken.js';\n")
	rt.AddFile("/proj/broken.js", "export const = ;\n")

	cfg := config.Default()
	cfg.Analysis.Entries = []string{"index.js"}
	a, err := New(cfg, WithRuntime(rt))
	require.NoError(t, err)

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"broken.js"}, report.ParseFailures)
	assert.Equal(t, 1, report.Statistics.SideEffectModuleCount)
}

func TestApp_RunPersistsSnapshots(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	cfg := projectConfig()
	cfg.Store.Project = "demo"
	a, err := New(cfg, WithRuntime(projectRuntime()), WithSnapshotStore(store))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	first, err := a.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, first.Diff)
	assert.Len(t, first.Diff.Added, 2)
	assert.Equal(t, 3, first.Diff.ModuleDelta)

	second, err := a.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, second.Diff)
	assert.Empty(t, second.Diff.Added)
	assert.Empty(t, second.Diff.Removed)
	assert.Equal(t, 0, second.Diff.ModuleDelta)

	latest, err := store.LatestSnapshot(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.RunID)
	assert.Equal(t, 2, latest.UnusedExportCount)
	assert.Len(t, latest.Modules, 3)
}

func TestApp_RunPrunesOldRuns(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	cfg := projectConfig()
	cfg.Store.Project = "demo"
	cfg.Store.Keep = 1
	a, err := New(cfg, WithRuntime(projectRuntime()), WithSnapshotStore(store))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := a.Run(ctx)
		require.NoError(t, err)
	}

	remaining, err := store.Prune(ctx, "demo", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}

func TestApp_RunErrors(t *testing.T) {
	t.Run("no entries", func(t *testing.T) {
		a, err := New(config.Default(), WithRuntime(projectRuntime()))
		require.NoError(t, err)
		_, err = a.Run(context.Background())
		assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
	})

	t.Run("missing entry", func(t *testing.T) {
		cfg := config.Default()
		cfg.Analysis.Entries = []string{"src/missing.ts"}
		a, err := New(cfg, WithRuntime(projectRuntime()))
		require.NoError(t, err)
		_, err = a.Run(context.Background())
		assert.True(t, errors.Is(err, walker.ErrReadFile))
		assert.Nil(t, a.LastReport())
	})

	t.Run("depth limit", func(t *testing.T) {
		cfg := projectConfig()
		rt := runtime.NewMemoryRuntime("/proj")
		rt.AddFile("/proj/src/index.ts", "import './a';\n")
		rt.AddFile("/proj/src/a.ts", "import './b';\n")
		rt.AddFile("/proj/src/b.ts", "export {};\n")
		cfg.Analysis.MaxDepth = 1
		cfg.PackageJSON.Enabled = false
		cfg.Analysis.ChainTarget = ""
		a, err := New(cfg, WithRuntime(rt))
		require.NoError(t, err)
		_, err = a.Run(context.Background())
		assert.True(t, errors.Is(err, walker.ErrMaxDepthExceeded))
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := New(nil)
		assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
	})

	t.Run("bad export pattern", func(t *testing.T) {
		cfg := config.Default()
		cfg.Rules.ExportPatterns = []string{"["}
		_, err := New(cfg, WithRuntime(projectRuntime()))
		assert.Error(t, err)
	})
}

func TestApp_MissingPackageJSONIsSkipped(t *testing.T) {
	rt := runtime.NewMemoryRuntime("/proj")
	rt.AddFile("/proj/index.js", "export const a = 1;\n")
	cfg := config.Default()
	cfg.Analysis.Entries = []string{"index.js"}
	cfg.PackageJSON.Enabled = true

	a, err := New(cfg, WithRuntime(rt))
	require.NoError(t, err)
	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Packages)
}

func TestHealthService(t *testing.T) {
	a, err := New(projectConfig(), WithRuntime(projectRuntime()))
	require.NoError(t, err)
	health := NewHealthService(a)

	before := health.Check(context.Background())
	assert.Equal(t, "up", before.Status)
	assert.Equal(t, "not built", before.Components["graph"])
	assert.Equal(t, "disabled", before.Components["store"])

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Contains(t, status.Components["graph"], "ok (3 modules")

	broken, err := New(config.Default(), WithRuntime(runtime.NewMemoryRuntime("")))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	NewHealthService(broken).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
