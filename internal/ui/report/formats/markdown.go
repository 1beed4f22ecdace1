package formats

import (
	"fmt"
	"strings"
	"time"

	"modgraph/internal/engine/graph"
)

// MarkdownReportData is the subset of an analysis run rendered to Markdown.
type MarkdownReportData struct {
	Statistics      graph.Statistics
	UnusedExports   []graph.UnusedExport
	Unreachable     []graph.ModuleID
	External        []graph.ExternalDependency
	UnusedPackages  []graph.UnusedDependency
	PackageCoverage *float64
	Chains          *graph.ChainAnalysis
	ParseFailures   []string
}

type MarkdownReportOptions struct {
	ProjectName         string
	ProjectRoot         string
	Version             string
	GeneratedAt         time.Time
	TableOfContents     bool
	CollapsibleSections bool
	IncludeMermaid      bool
	MermaidDiagram      string
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(data MarkdownReportData, opts MarkdownReportOptions) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Module Graph Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Module Graph Report\n\n")
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Summary](#summary)\n")
		b.WriteString("- [Unused Exports](#unused-exports)\n")
		b.WriteString("- [Unreachable Modules](#unreachable-modules)\n")
		b.WriteString("- [External Dependencies](#external-dependencies)\n")
		if data.PackageCoverage != nil {
			b.WriteString("- [Package Dependencies](#package-dependencies)\n")
		}
		if data.Chains != nil {
			b.WriteString("- [Dependency Chains](#dependency-chains)\n")
		}
		if len(data.ParseFailures) > 0 {
			b.WriteString("- [Parse Failures](#parse-failures)\n")
		}
		if opts.IncludeMermaid && strings.TrimSpace(opts.MermaidDiagram) != "" {
			b.WriteString("- [Dependency Diagram](#dependency-diagram)\n")
		}
		b.WriteString("\n")
	}

	stats := data.Statistics
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Modules | %d |\n", stats.ModuleCount))
	b.WriteString(fmt.Sprintf("| Entry Points | %d |\n", stats.EntryPointCount))
	b.WriteString(fmt.Sprintf("| External Dependencies | %d |\n", stats.ExternalDependencyCount))
	b.WriteString(fmt.Sprintf("| Side-effect Modules | %d |\n", stats.SideEffectModuleCount))
	b.WriteString(fmt.Sprintf("| Unused Exports | %d |\n", len(data.UnusedExports)))
	b.WriteString(fmt.Sprintf("| Unreachable Modules | %d |\n\n", len(data.Unreachable)))

	m.writeUnusedExports(&b, data.UnusedExports, opts.CollapsibleSections)
	m.writeUnreachable(&b, data.Unreachable, opts.CollapsibleSections)
	m.writeExternal(&b, data.External, opts.CollapsibleSections)
	if data.PackageCoverage != nil {
		m.writePackages(&b, *data.PackageCoverage, data.UnusedPackages, opts.CollapsibleSections)
	}
	if data.Chains != nil {
		m.writeChains(&b, *data.Chains)
	}
	if len(data.ParseFailures) > 0 {
		b.WriteString("## Parse Failures\n")
		for _, id := range data.ParseFailures {
			b.WriteString(fmt.Sprintf("- `%s`\n", id))
		}
		b.WriteString("\n")
	}

	if opts.IncludeMermaid && strings.TrimSpace(opts.MermaidDiagram) != "" {
		b.WriteString("## Dependency Diagram\n")
		b.WriteString("```mermaid\n")
		b.WriteString(strings.TrimSpace(opts.MermaidDiagram))
		b.WriteString("\n```\n")
	}

	return b.String(), nil
}

func (m *MarkdownGenerator) writeUnusedExports(b *strings.Builder, rows []graph.UnusedExport, collapsible bool) {
	b.WriteString("## Unused Exports\n")
	if len(rows) == 0 {
		b.WriteString("No unused exports detected.\n\n")
		return
	}
	rendered := make([]string, 0, len(rows))
	for _, row := range rows {
		kind := string(row.Export.Kind)
		if row.Export.IsTypeOnly {
			kind += " (type)"
		}
		rendered = append(rendered, fmt.Sprintf(
			"| `%s` | `%s` | %s | %d |\n",
			row.ModuleID.Path(),
			row.Export.Name,
			kind,
			row.Export.Span.Line,
		))
	}
	m.writeTableWithCollapse(
		b,
		"Unused export details",
		collapsible,
		len(rendered) > 15,
		[]string{"| Module | Export | Kind | Line |\n", "| --- | --- | --- | --- |\n"},
		rendered,
	)
}

func (m *MarkdownGenerator) writeUnreachable(b *strings.Builder, ids []graph.ModuleID, collapsible bool) {
	b.WriteString("## Unreachable Modules\n")
	if len(ids) == 0 {
		b.WriteString("No unreachable modules detected.\n\n")
		return
	}
	rendered := make([]string, 0, len(ids))
	for i, id := range ids {
		rendered = append(rendered, fmt.Sprintf("| %d | `%s` |\n", i+1, id.Path()))
	}
	m.writeTableWithCollapse(
		b,
		"Unreachable module details",
		collapsible,
		len(rendered) > 10,
		[]string{"| # | Module |\n", "| --- | --- |\n"},
		rendered,
	)
}

func (m *MarkdownGenerator) writeExternal(b *strings.Builder, deps []graph.ExternalDependency, collapsible bool) {
	b.WriteString("## External Dependencies\n")
	if len(deps) == 0 {
		b.WriteString("No external dependencies imported.\n\n")
		return
	}
	rendered := make([]string, 0, len(deps))
	for _, dep := range deps {
		rendered = append(rendered, fmt.Sprintf("| `%s` | %d |\n", dep.Specifier, len(dep.Importers)))
	}
	m.writeTableWithCollapse(
		b,
		"External dependency details",
		collapsible,
		len(rendered) > 15,
		[]string{"| Specifier | Importers |\n", "| --- | --- |\n"},
		rendered,
	)
}

func (m *MarkdownGenerator) writePackages(b *strings.Builder, coverage float64, unused []graph.UnusedDependency, collapsible bool) {
	b.WriteString("## Package Dependencies\n")
	b.WriteString(fmt.Sprintf("Coverage: %.1f%%\n\n", coverage))
	if len(unused) == 0 {
		b.WriteString("Every declared package is imported.\n\n")
		return
	}
	rendered := make([]string, 0, len(unused))
	for _, dep := range unused {
		rendered = append(rendered, fmt.Sprintf("| `%s` | `%s` | %s |\n", dep.Package, dep.Version, dep.Type))
	}
	m.writeTableWithCollapse(
		b,
		"Unused package details",
		collapsible,
		len(rendered) > 10,
		[]string{"| Package | Version | Section |\n", "| --- | --- | --- |\n"},
		rendered,
	)
}

func (m *MarkdownGenerator) writeChains(b *strings.Builder, analysis graph.ChainAnalysis) {
	b.WriteString("## Dependency Chains\n")
	b.WriteString(fmt.Sprintf("Target: `%s`\n\n", analysis.Target.Path()))
	if !analysis.IsReachable() {
		b.WriteString("Target is not reachable from any entry point.\n\n")
		return
	}
	b.WriteString("| # | Depth | Chain |\n")
	b.WriteString("| --- | --- | --- |\n")
	for i, chain := range analysis.Chains {
		b.WriteString(fmt.Sprintf("| %d | %d | `%s` |\n", i+1, chain.Depth, chain.Format()))
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}
