package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"modgraph/internal/core/app"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph(t *testing.T) *graph.ModuleGraph {
	t.Helper()
	libID := graph.MustModuleID("src/lib.ts")
	index := graph.NewModule(graph.MustModuleID("src/index.ts"), "/proj/src/index.ts")
	index.IsEntry = true
	index.Imports = []graph.Import{
		{Source: "./lib", Kind: graph.ImportStatic, ResolvedTo: &libID, Specifiers: []graph.ImportSpecifier{graph.NamedSpecifier("used", "used")}},
		{Source: "lodash", Kind: graph.ImportStatic, Specifiers: []graph.ImportSpecifier{graph.DefaultSpecifier("_")}},
	}
	lib := graph.NewModule(libID, "/proj/src/lib.ts")
	lib.Exports = []graph.Export{
		{Name: "used", Kind: graph.ExportNamed, IsUsed: true},
		{Name: "helper", Kind: graph.ExportNamed, Span: graph.Span{Line: 3, Column: 1}},
	}
	g := graph.NewModuleGraph()
	require.NoError(t, g.AddModule(index))
	require.NoError(t, g.AddModule(lib))
	return g
}

func testReport() *app.Report {
	index := graph.MustModuleID("src/index.ts")
	lib := graph.MustModuleID("src/lib.ts")
	chains := graph.NewChainAnalysis(lib, []graph.DependencyChain{graph.NewDependencyChain([]graph.ModuleID{index, lib})})
	return &app.Report{
		RunID:     "run-1",
		Project:   "demo",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Microsecond,
		Entries:   []graph.ModuleID{index},
		Statistics: graph.Statistics{
			ModuleCount:             2,
			EntryPointCount:         1,
			ExternalDependencyCount: 1,
		},
		UnusedExports: []graph.UnusedExport{
			{ModuleID: lib, Export: graph.Export{Name: "helper", Kind: graph.ExportNamed, Span: graph.Span{Line: 3}}},
		},
		ExternalDependencies: []graph.ExternalDependency{{Specifier: "lodash", Importers: []graph.ModuleID{index}}},
		Packages: &app.PackageReport{
			Path:    "/proj/package.json",
			Name:    "demo",
			Percent: 50,
			Unused:  []graph.UnusedDependency{{Package: "react", Version: "^18.0.0", Type: graph.DependencyProduction}},
		},
		Chains: &chains,
		Diff: &history.SnapshotDiff{
			ModuleDelta: 1,
			Added:       []history.UnusedExportRecord{{ModuleID: "src/lib.ts", Name: "helper", Line: 3}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":         FormatText,
		"text":     FormatText,
		" JSON ":   FormatJSON,
		"dot":      FormatDOT,
		"markdown": FormatMarkdown,
		"sarif":    FormatSARIF,
		"mermaid":  FormatMermaid,
	}
	for raw, want := range cases {
		got, err := ParseFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatText, testReport(), nil, Options{}))
	out := buf.String()

	for _, want := range []string{
		"modgraph report for demo",
		"run run-1, 1.5ms",
		"Unused exports (1)",
		"  src/lib.ts",
		"helper",
		"(named, line 3)",
		"External dependencies (1)",
		"lodash",
		"1 importer",
		"Unused packages (1)",
		"react",
		"Chains to src/lib.ts (1)",
		"src/index.ts -> src/lib.ts",
		"Since last run",
		"+ src/lib.ts#helper",
	} {
		assert.Contains(t, out, want)
	}
	fields := strings.Fields(out)
	assert.Contains(t, strings.Join(fields, " "), "modules 2 entry points 1")
}

func TestRender_TextCapsSections(t *testing.T) {
	r := &app.Report{RunID: "x"}
	for i := 0; i < sectionLimit+5; i++ {
		r.UnreachableModules = append(r.UnreachableModules, graph.MustModuleID(fmt.Sprintf("m%02d.ts", i)))
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatText, r, nil, Options{}))
	assert.Contains(t, buf.String(), "... and 5 more")
	assert.NotContains(t, buf.String(), "m24.ts")

	buf.Reset()
	require.NoError(t, Render(&buf, FormatText, r, nil, Options{Verbose: true}))
	assert.NotContains(t, buf.String(), "more")
	assert.Contains(t, buf.String(), "m24.ts")
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, testReport(), testGraph(t), Options{}))

	var doc struct {
		Report struct {
			RunID         string            `json:"run_id"`
			UnusedExports []json.RawMessage `json:"unused_exports"`
		} `json:"report"`
		Graph struct {
			Modules     []json.RawMessage `json:"modules"`
			EntryPoints []string          `json:"entry_points"`
		} `json:"graph"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.Report.RunID)
	assert.Len(t, doc.Report.UnusedExports, 1)
	assert.Len(t, doc.Graph.Modules, 2)
	assert.Equal(t, []string{"src/index.ts"}, doc.Graph.EntryPoints)
}

func TestRender_JSONWithoutGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, testReport(), nil, Options{}))
	assert.NotContains(t, buf.String(), `"graph"`)
}

func TestRender_DOT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatDOT, testReport(), testGraph(t), Options{}))
	assert.Contains(t, buf.String(), "digraph ModuleGraph {")
	assert.Contains(t, buf.String(), `"src/index.ts" -> "src/lib.ts";`)

	assert.Error(t, Render(&buf, FormatDOT, testReport(), nil, Options{}))
}

func TestRender_MarkdownEmbedsDiagram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatMarkdown, testReport(), testGraph(t), Options{Version: "1.0.0"}))
	out := buf.String()
	assert.Contains(t, out, "project: demo")
	assert.Contains(t, out, "version: 1.0.0")
	assert.Contains(t, out, "| `react` | `^18.0.0` | dependencies |")
	assert.Contains(t, out, "```mermaid")
	assert.Contains(t, out, "src_index_ts ==> src_lib_ts")
}

func TestRender_SARIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatSARIF, testReport(), nil, Options{ProjectRoot: "/proj", Version: "1.0.0"}))

	var doc struct {
		Runs []struct {
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Runs, 1)
	var ids []string
	for _, r := range doc.Runs[0].Results {
		ids = append(ids, r.RuleID)
	}
	assert.Equal(t, []string{"MG001", "MG003"}, ids)
}

func TestRender_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, FormatText, nil, nil, Options{}))
	assert.Error(t, Render(&buf, FormatMermaid, testReport(), nil, Options{}))
	assert.Error(t, Render(&buf, Format("yaml"), testReport(), nil, Options{}))
}
