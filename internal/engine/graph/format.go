package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

func dotLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// ToDOT renders modules and edges in Graphviz syntax. Entry points are drawn
// bold and side-effect modules dashed.
func (g *ModuleGraph) ToDOT() string {
	modules := g.Modules()

	var buf strings.Builder
	buf.WriteString("digraph ModuleGraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, mod := range modules {
		var attrs []string
		if mod.IsEntry {
			attrs = append(attrs, "penwidth=2")
		}
		if mod.HasSideEffects {
			attrs = append(attrs, `style="rounded,dashed"`)
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  \"%s\";\n", dotLabel(mod.ID.Path()))
			continue
		}
		fmt.Fprintf(&buf, "  \"%s\" [%s];\n", dotLabel(mod.ID.Path()), strings.Join(attrs, ", "))
	}
	buf.WriteString("\n")
	for _, mod := range modules {
		for _, target := range g.Dependencies(mod.ID) {
			fmt.Fprintf(&buf, "  \"%s\" -> \"%s\";\n", dotLabel(mod.ID.Path()), dotLabel(target.Path()))
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

type graphJSON struct {
	Modules      []*Module            `json:"modules"`
	EntryPoints  []ModuleID           `json:"entry_points"`
	ExternalDeps []ExternalDependency `json:"external_deps"`
}

// ToJSON serializes modules, entry points and external dependencies.
func (g *ModuleGraph) ToJSON() ([]byte, error) {
	out := graphJSON{
		Modules:      g.Modules(),
		EntryPoints:  g.EntryPoints(),
		ExternalDeps: g.ExternalDependencies(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize graph: %w", err)
	}
	return data, nil
}
