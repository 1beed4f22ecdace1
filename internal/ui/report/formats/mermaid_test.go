package formats

import (
	"fmt"
	"strings"
	"testing"

	"modgraph/internal/engine/graph"
)

func TestMermaidGenerator_Generate(t *testing.T) {
	g := sampleGraph(t)
	out, err := NewMermaidGenerator(g).Generate()
	if err != nil {
		t.Fatalf("generate mermaid: %v", err)
	}

	for _, want := range []string{
		"flowchart LR",
		`src_index_ts["src/index.ts\n(0 exports, 2 imports)\n[esm]"]`,
		`src_lib_ts["src/lib.ts\n(2 exports, 0 imports)"]`,
		`ext_lodash(["lodash"])`,
		"src_index_ts --> src_lib_ts",
		"src_index_ts -.-> ext_lodash",
		"class src_index_ts entry",
		"class src_lib_ts sideEffect",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "linkStyle") {
		t.Error("expected no highlighted edges")
	}
}

func TestMermaidGenerator_HighlightedChain(t *testing.T) {
	g := sampleGraph(t)
	gen := NewMermaidGenerator(g)
	gen.SetHighlightedChain(graph.NewDependencyChain([]graph.ModuleID{
		graph.MustModuleID("src/index.ts"),
		graph.MustModuleID("src/lib.ts"),
	}))
	out, err := gen.Generate()
	if err != nil {
		t.Fatalf("generate mermaid: %v", err)
	}
	if !strings.Contains(out, "src_index_ts ==> src_lib_ts") {
		t.Errorf("expected thick chain edge\n%s", out)
	}
	if !strings.Contains(out, "linkStyle 0 stroke:#d9480f") {
		t.Errorf("expected link style for first edge\n%s", out)
	}
}

func TestMermaidGenerator_AggregatesExternals(t *testing.T) {
	g := graph.NewModuleGraph()
	mod := graph.NewModule(graph.MustModuleID("index.ts"), "/proj/index.ts")
	for i := 0; i <= externalAggregationThreshold; i++ {
		mod.Imports = append(mod.Imports, graph.Import{Source: fmt.Sprintf("pkg-%d", i), Kind: graph.ImportStatic})
	}
	if err := g.AddModule(mod); err != nil {
		t.Fatalf("add module: %v", err)
	}

	out, err := NewMermaidGenerator(g).Generate()
	if err != nil {
		t.Fatalf("generate mermaid: %v", err)
	}
	if !strings.Contains(out, fmt.Sprintf("(%d packages)", externalAggregationThreshold+1)) {
		t.Errorf("expected aggregated external node\n%s", out)
	}
	if got := strings.Count(out, "-.->"); got != 1 {
		t.Errorf("expected a single external edge, got %d", got)
	}
}

func TestMermaidGenerator_NilGraph(t *testing.T) {
	if _, err := NewMermaidGenerator(nil).Generate(); err == nil {
		t.Fatal("expected error for nil graph")
	}
}
