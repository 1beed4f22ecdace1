package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"modgraph/internal/core/app"
	"modgraph/internal/engine/graph"

	"github.com/charmbracelet/lipgloss"
)

// sectionLimit caps the items printed per section unless Options.Verbose is set.
const sectionLimit = 20

type textStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
	good    lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		good:    r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

type textWriter struct {
	b      strings.Builder
	styles textStyles
	limit  int
}

func (t *textWriter) line(format string, args ...any) {
	fmt.Fprintf(&t.b, format, args...)
	t.b.WriteByte('\n')
}

func (t *textWriter) section(title string, count int) {
	t.b.WriteByte('\n')
	t.line("%s", t.styles.section.Render(fmt.Sprintf("%s (%d)", title, count)))
}

// capped returns how many of n items to print and the number left out.
func (t *textWriter) capped(n int) (int, int) {
	if t.limit <= 0 || n <= t.limit {
		return n, 0
	}
	return t.limit, n - t.limit
}

func (t *textWriter) more(hidden int) {
	if hidden > 0 {
		t.line("  %s", t.styles.muted.Render(fmt.Sprintf("... and %d more", hidden)))
	}
}

func renderText(w io.Writer, r *app.Report, opts Options) error {
	t := &textWriter{styles: newTextStyles(w), limit: sectionLimit}
	if opts.Verbose {
		t.limit = 0
	}

	header := "modgraph report"
	if r.Project != "" {
		header += " for " + r.Project
	}
	t.line("%s", t.styles.title.Render(header))
	t.line("%s", t.styles.muted.Render(fmt.Sprintf("run %s, %s", r.RunID, r.Duration.Round(time.Microsecond))))

	stats := r.Statistics
	t.b.WriteByte('\n')
	t.line("%-24s %d", "modules", stats.ModuleCount)
	t.line("%-24s %d", "entry points", stats.EntryPointCount)
	t.line("%-24s %d", "external dependencies", stats.ExternalDependencyCount)
	t.line("%-24s %d", "side-effect modules", stats.SideEffectModuleCount)
	t.line("%-24s %d", "unused exports", len(r.UnusedExports))
	t.line("%-24s %d", "unreachable modules", len(r.UnreachableModules))
	if r.SymbolStatistics.Total > 0 {
		t.line("%-24s %d of %d (%.1f%%)", "unused symbols", r.SymbolStatistics.Unused, r.SymbolStatistics.Total, r.SymbolStatistics.UnusedPercentage())
	}

	writeUnusedExports(t, r.UnusedExports)

	t.section("Unreachable modules", len(r.UnreachableModules))
	shown, hidden := t.capped(len(r.UnreachableModules))
	for _, id := range r.UnreachableModules[:shown] {
		t.line("  %s", id.Path())
	}
	t.more(hidden)

	t.section("External dependencies", len(r.ExternalDependencies))
	shown, hidden = t.capped(len(r.ExternalDependencies))
	for _, dep := range r.ExternalDependencies[:shown] {
		t.line("  %s %s", dep.Specifier, t.styles.muted.Render(plural(len(dep.Importers), "importer")))
	}
	t.more(hidden)

	if len(r.FrameworkExports) > 0 {
		t.section("Framework exports", len(r.FrameworkExports))
		shown, hidden = t.capped(len(r.FrameworkExports))
		for _, fe := range r.FrameworkExports[:shown] {
			t.line("  %s#%s", fe.ModuleID.Path(), fe.Export.Name)
		}
		t.more(hidden)
	}

	if p := r.Packages; p != nil {
		t.section("Unused packages", len(p.Unused))
		t.line("  %s", t.styles.muted.Render(fmt.Sprintf("%s: %.1f%% of declared dependencies imported", nonEmpty(p.Name, p.Path), p.Percent)))
		for _, dep := range p.Unused {
			t.line("  %s %s", t.styles.warn.Render(dep.Package), t.styles.muted.Render(fmt.Sprintf("%s, %s", dep.Version, dep.Type)))
		}
	}

	if c := r.Chains; c != nil {
		writeChains(t, *c)
	}

	if d := r.Diff; d != nil {
		t.b.WriteByte('\n')
		t.line("%s", t.styles.section.Render("Since last run"))
		t.line("  modules %+d, unused exports %s %s",
			d.ModuleDelta,
			t.styles.warn.Render(fmt.Sprintf("+%d", len(d.Added))),
			t.styles.good.Render(fmt.Sprintf("-%d", len(d.Removed))))
		for _, rec := range d.Added {
			t.line("  + %s#%s", rec.ModuleID, rec.Name)
		}
		for _, rec := range d.Removed {
			t.line("  - %s#%s", rec.ModuleID, rec.Name)
		}
	}

	if len(r.ParseFailures) > 0 {
		t.section("Parse failures", len(r.ParseFailures))
		for _, id := range r.ParseFailures {
			t.line("  %s", t.styles.warn.Render(id))
		}
	}

	_, err := io.WriteString(w, t.b.String())
	return err
}

func writeUnusedExports(t *textWriter, unused []graph.UnusedExport) {
	t.section("Unused exports", len(unused))
	shown, hidden := t.capped(len(unused))
	var current graph.ModuleID
	for _, u := range unused[:shown] {
		if u.ModuleID != current {
			current = u.ModuleID
			t.line("  %s", current.Path())
		}
		detail := string(u.Export.Kind)
		if u.Export.IsTypeOnly {
			detail += ", type"
		}
		if u.Export.Span.Line > 0 {
			detail += fmt.Sprintf(", line %d", u.Export.Span.Line)
		}
		t.line("    %s %s", t.styles.warn.Render(u.Export.Name), t.styles.muted.Render("("+detail+")"))
	}
	t.more(hidden)
}

func writeChains(t *textWriter, a graph.ChainAnalysis) {
	t.section("Chains to "+a.Target.Path(), len(a.Chains))
	if !a.IsReachable() {
		t.line("  %s", t.styles.muted.Render("not reachable from any entry point"))
		return
	}
	shown, hidden := t.capped(len(a.Chains))
	for _, c := range a.Chains[:shown] {
		suffix := fmt.Sprintf("(depth %d)", c.Depth)
		if c.HasCycle() {
			suffix = fmt.Sprintf("(depth %d, cycle)", c.Depth)
		}
		t.line("  %s %s", c.Format(), t.styles.muted.Render(suffix))
	}
	t.more(hidden)
	if a.MinDepth != nil && a.MaxDepth != nil {
		t.line("  %s", t.styles.muted.Render(fmt.Sprintf("depth min %d, max %d, avg %.1f across %s",
			*a.MinDepth, *a.MaxDepth, a.AvgDepth, plural(a.EntryPointCount, "entry point"))))
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
