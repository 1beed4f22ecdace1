// Package report renders analysis runs for terminals, files and CI tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"modgraph/internal/core/app"
	"modgraph/internal/engine/graph"
	"modgraph/internal/ui/report/formats"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatDOT      Format = "dot"
	FormatMarkdown Format = "markdown"
	FormatSARIF    Format = "sarif"
	FormatMermaid  Format = "mermaid"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatDOT, FormatMarkdown, FormatSARIF, FormatMermaid:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", raw)
	}
}

type Options struct {
	ProjectRoot string
	Version     string
	// Verbose lifts the per-section item limit of the text format.
	Verbose     bool
	GeneratedAt time.Time
}

type jsonDocument struct {
	Report *app.Report     `json:"report"`
	Graph  json.RawMessage `json:"graph,omitempty"`
}

// Render writes r in the given format. g is required by the graph-shaped
// formats (dot, mermaid) and embedded by json when present.
func Render(w io.Writer, format Format, r *app.Report, g *graph.ModuleGraph, opts Options) error {
	if r == nil {
		return fmt.Errorf("render %s: report is nil", format)
	}
	switch format {
	case FormatText, "":
		return renderText(w, r, opts)
	case FormatJSON:
		return renderJSON(w, r, g)
	case FormatDOT:
		if g == nil {
			return fmt.Errorf("render dot: graph is nil")
		}
		_, err := io.WriteString(w, g.ToDOT())
		return err
	case FormatMarkdown:
		return renderMarkdown(w, r, g, opts)
	case FormatSARIF:
		data, err := formats.GenerateSARIF(opts.ProjectRoot, opts.Version, sarifData(r))
		if err != nil {
			return fmt.Errorf("render sarif: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatMermaid:
		diagram, err := mermaid(r, g)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, diagram)
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderJSON(w io.Writer, r *app.Report, g *graph.ModuleGraph) error {
	doc := jsonDocument{Report: r}
	if g != nil {
		raw, err := g.ToJSON()
		if err != nil {
			return fmt.Errorf("render json: %w", err)
		}
		doc.Graph = raw
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return nil
}

func renderMarkdown(w io.Writer, r *app.Report, g *graph.ModuleGraph, opts Options) error {
	data := formats.MarkdownReportData{
		Statistics:    r.Statistics,
		UnusedExports: r.UnusedExports,
		Unreachable:   r.UnreachableModules,
		External:      r.ExternalDependencies,
		Chains:        r.Chains,
		ParseFailures: r.ParseFailures,
	}
	if r.Packages != nil {
		pct := r.Packages.Percent
		data.PackageCoverage = &pct
		data.UnusedPackages = r.Packages.Unused
	}
	mdOpts := formats.MarkdownReportOptions{
		ProjectName:         r.Project,
		ProjectRoot:         opts.ProjectRoot,
		Version:             opts.Version,
		GeneratedAt:         opts.GeneratedAt,
		TableOfContents:     true,
		CollapsibleSections: true,
	}
	if g != nil {
		diagram, err := mermaid(r, g)
		if err != nil {
			return err
		}
		mdOpts.IncludeMermaid = true
		mdOpts.MermaidDiagram = diagram
	}
	out, err := formats.NewMarkdownGenerator().Generate(data, mdOpts)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func mermaid(r *app.Report, g *graph.ModuleGraph) (string, error) {
	if g == nil {
		return "", fmt.Errorf("render mermaid: graph is nil")
	}
	gen := formats.NewMermaidGenerator(g)
	if r.Chains != nil {
		if chain, ok := r.Chains.ShortestChain(); ok {
			gen.SetHighlightedChain(chain)
		}
	}
	out, err := gen.Generate()
	if err != nil {
		return "", fmt.Errorf("render mermaid: %w", err)
	}
	return out, nil
}

func sarifData(r *app.Report) formats.SARIFData {
	data := formats.SARIFData{
		UnusedExports: r.UnusedExports,
		Unreachable:   r.UnreachableModules,
		ParseFailures: r.ParseFailures,
	}
	if r.Packages != nil {
		data.UnusedPackages = r.Packages.Unused
		data.PackageJSON = r.Packages.Path
	}
	return data
}
