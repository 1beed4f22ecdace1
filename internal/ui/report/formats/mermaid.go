package formats

import (
	"fmt"
	"strings"

	"modgraph/internal/engine/graph"
)

const (
	externalAggregationThreshold = 10
	externalAggregateNodeID      = "__external__"
)

// MermaidGenerator renders a module graph as a Mermaid flowchart.
type MermaidGenerator struct {
	graph     *graph.ModuleGraph
	highlight map[[2]graph.ModuleID]bool
}

func NewMermaidGenerator(g *graph.ModuleGraph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

// SetHighlightedChain marks every edge of chain so it is drawn thick.
func (m *MermaidGenerator) SetHighlightedChain(chain graph.DependencyChain) {
	if len(chain.Path) < 2 {
		m.highlight = nil
		return
	}
	m.highlight = make(map[[2]graph.ModuleID]bool, len(chain.Path)-1)
	for i := 0; i+1 < len(chain.Path); i++ {
		m.highlight[[2]graph.ModuleID{chain.Path[i], chain.Path[i+1]}] = true
	}
}

func (m *MermaidGenerator) Generate() (string, error) {
	if m.graph == nil {
		return "", fmt.Errorf("mermaid: graph is nil")
	}
	var b strings.Builder
	b.WriteString("%%{init: {'theme': 'base', 'flowchart': {'nodeSpacing': 60, 'rankSpacing': 90, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	modules := m.graph.Modules()
	externals := m.graph.ExternalDependencies()
	aggregate := len(externals) > externalAggregationThreshold

	names := make([]string, 0, len(modules)+len(externals)+1)
	for _, mod := range modules {
		names = append(names, mod.ID.String())
	}
	for _, dep := range externals {
		names = append(names, "ext:"+dep.Specifier)
	}
	if aggregate {
		names = append(names, externalAggregateNodeID)
	}
	ids := makeIDs(names)

	var entries, sideEffects []string
	for _, mod := range modules {
		id := ids[mod.ID.String()]
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, escapeLabel(moduleLabel(mod))))
		if mod.IsEntry {
			entries = append(entries, id)
		}
		if mod.HasSideEffects {
			sideEffects = append(sideEffects, id)
		}
	}
	if aggregate {
		b.WriteString(fmt.Sprintf("  %s([\"external\\n(%d packages)\"])\n", ids[externalAggregateNodeID], len(externals)))
	} else {
		for _, dep := range externals {
			b.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", ids["ext:"+dep.Specifier], escapeLabel(dep.Specifier)))
		}
	}

	edge := 0
	var thick []int
	for _, mod := range modules {
		for _, target := range m.graph.Dependencies(mod.ID) {
			arrow := "-->"
			if m.highlight[[2]graph.ModuleID{mod.ID, target}] {
				arrow = "==>"
				thick = append(thick, edge)
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n", ids[mod.ID.String()], arrow, ids[target.String()]))
			edge++
		}
	}
	seen := make(map[string]bool)
	for _, dep := range externals {
		to := ids["ext:"+dep.Specifier]
		if aggregate {
			to = ids[externalAggregateNodeID]
		}
		for _, importer := range dep.Importers {
			key := importer.String() + "->" + to
			if seen[key] {
				continue
			}
			seen[key] = true
			b.WriteString(fmt.Sprintf("  %s -.-> %s\n", ids[importer.String()], to))
			edge++
		}
	}

	b.WriteString("  classDef entry stroke-width:3px\n")
	b.WriteString("  classDef sideEffect stroke-dasharray:5 5\n")
	if len(entries) > 0 {
		b.WriteString(fmt.Sprintf("  class %s entry\n", strings.Join(entries, ",")))
	}
	if len(sideEffects) > 0 {
		b.WriteString(fmt.Sprintf("  class %s sideEffect\n", strings.Join(sideEffects, ",")))
	}
	for _, idx := range thick {
		b.WriteString(fmt.Sprintf("  linkStyle %d stroke:#d9480f\n", idx))
	}
	return b.String(), nil
}
