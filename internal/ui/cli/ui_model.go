package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	coreapp "modgraph/internal/core/app"
	"modgraph/internal/engine/graph"
	"modgraph/internal/ui/report"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	unusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	unreachableStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F87171")).
				Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	snippetStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#64748B")).
			Padding(0, 1)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type issueKind int

const (
	issueUnusedExport issueKind = iota
	issueUnreachable
	issueUnusedPackage
	issueParseFailure
)

// issue is one row of the findings panel.
type issue struct {
	kind   issueKind
	module graph.ModuleID
	export string
	line   int
	title  string
	desc   string
}

type moduleDetails struct {
	id           graph.ModuleID
	path         string
	depth        int
	reachable    bool
	dependencies []graph.ModuleID
	dependents   []graph.ModuleID
	unused       []string
}

type model struct {
	issueList  list.Model
	moduleList list.Model
	mode       panelMode
	readFile   func(string) ([]byte, error)

	report     *coreapp.Report
	graph      *graph.ModuleGraph
	issues     []issue
	modules    []*graph.Module
	lastUpdate time.Time
	runErr     string
	showDiff   bool

	details          moduleDetails
	hasDetails       bool
	detailsErr       string
	selectedDepIndex int

	snippet      *report.Snippet
	sourceStatus string
}

type panelMode int

const (
	panelIssues panelMode = iota
	panelModules
)

type updateMsg struct {
	report *coreapp.Report
	graph  *graph.ModuleGraph
	err    error
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.issueList.SetSize(width, height)
		m.moduleList.SetSize(width, height)
	case updateMsg:
		m.lastUpdate = time.Now()
		if msg.err != nil {
			m.runErr = msg.err.Error()
			return m, nil
		}
		m.runErr = ""
		m = m.applyReport(msg.report, msg.graph)
		if m.hasDetails {
			m, _ = refreshModuleDetails(m)
		}
		return m, nil
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceStatus = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.sourceStatus = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	if m.mode == panelIssues {
		m.issueList, cmd = m.issueList.Update(msg)
	} else {
		m.moduleList, cmd = m.moduleList.Update(msg)
	}
	return m, cmd
}

// applyReport replaces both panels with the findings of r.
func (m model) applyReport(r *coreapp.Report, g *graph.ModuleGraph) model {
	m.report = r
	m.graph = g
	m.issues = buildIssues(r)
	m.snippet = nil

	items := make([]list.Item, 0, len(m.issues))
	for _, is := range m.issues {
		items = append(items, item{title: is.title, desc: is.desc})
	}
	m.issueList.SetItems(items)

	m.modules = nil
	if g != nil {
		m.modules = g.Modules()
	}
	moduleItems := make([]list.Item, 0, len(m.modules))
	for _, mod := range m.modules {
		title := mod.ID.Path()
		if mod.IsEntry {
			title += " (entry)"
		}
		moduleItems = append(moduleItems, item{
			title: title,
			desc: fmt.Sprintf(
				"exports=%d imports=%d deps=%d imported_by=%d format=%s",
				len(mod.Exports),
				len(mod.Imports),
				len(g.Dependencies(mod.ID)),
				len(g.Dependents(mod.ID)),
				mod.ModuleFormat,
			),
		})
	}
	m.moduleList.SetItems(moduleItems)
	return m
}

func buildIssues(r *coreapp.Report) []issue {
	if r == nil {
		return nil
	}
	var out []issue
	for _, u := range r.UnusedExports {
		desc := fmt.Sprintf("%s in %s", u.Export.Name, u.ModuleID.Path())
		if u.Export.Span.Line > 0 {
			desc = fmt.Sprintf("%s in %s:%d", u.Export.Name, u.ModuleID.Path(), u.Export.Span.Line)
		}
		out = append(out, issue{
			kind:   issueUnusedExport,
			module: u.ModuleID,
			export: u.Export.Name,
			line:   u.Export.Span.Line,
			title:  "Unused Export",
			desc:   desc,
		})
	}
	for _, id := range r.UnreachableModules {
		out = append(out, issue{kind: issueUnreachable, module: id, title: "Unreachable Module", desc: id.Path()})
	}
	if r.Packages != nil {
		for _, dep := range r.Packages.Unused {
			out = append(out, issue{
				kind:  issueUnusedPackage,
				title: "Unused Package",
				desc:  fmt.Sprintf("%s %s (%s)", dep.Package, dep.Version, dep.Type),
			})
		}
	}
	for _, id := range r.ParseFailures {
		out = append(out, issue{kind: issueParseFailure, module: graph.ModuleID(id), title: "Parse Failure", desc: id})
	}
	return out
}

func (m model) View() string {
	help := renderHelp(m)

	body := m.issueList.View()
	if m.mode == panelModules {
		body = renderModulePanel(m)
	}
	if m.mode == panelIssues && m.snippet != nil {
		body += "\n\n" + renderSnippet(*m.snippet)
	}
	if m.showDiff {
		body += "\n\n" + renderDiffOverlay(m.report)
	}
	if m.sourceStatus != "" {
		body += "\n\n" + m.sourceStatus
	}

	return docStyle.Render(renderHeader(m) + "\n" + help + "\n\n" + body)
}

func renderHeader(m model) string {
	modules, runID := 0, "-"
	if m.report != nil {
		modules = m.report.Statistics.ModuleCount
		runID = m.report.RunID
	}
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d modules | run %s",
		m.lastUpdate.Format("15:04:05"), modules, runID))

	var summary string
	switch {
	case m.runErr != "":
		summary = unreachableStyle.Render("Analysis failed: " + m.runErr)
	case m.report == nil:
		summary = statusStyle.Render("Waiting for first analysis")
	case len(m.report.UnusedExports) == 0 && len(m.report.UnreachableModules) == 0:
		summary = successStyle.Render("No dead code detected")
	default:
		summary = fmt.Sprintf("%s | %s",
			unusedStyle.Render(fmt.Sprintf("%d unused exports", len(m.report.UnusedExports))),
			unreachableStyle.Render(fmt.Sprintf("%d unreachable", len(m.report.UnreachableModules))))
	}
	return fmt.Sprintf("%s\n%s | %s\n", titleStyle("Module Graph Monitor"), status, summary)
}

func renderHelp(m model) string {
	if m.mode == panelModules {
		if m.hasDetails {
			return statusStyle.Render("j/k: select dependency • o: open in $EDITOR • esc: back • tab: findings • d: diff • q: quit")
		}
		return statusStyle.Render("enter: details • /: filter • tab: findings • d: diff • q: quit")
	}
	return statusStyle.Render("enter: show source • o: open in $EDITOR • /: filter • tab: modules • d: diff • q: quit")
}

func renderModulePanel(m model) string {
	if !m.hasDetails {
		body := m.moduleList.View()
		if m.detailsErr != "" {
			body += "\n\n" + unreachableStyle.Render(m.detailsErr)
		}
		return body
	}

	d := m.details
	var b strings.Builder
	b.WriteString(titleStyle(d.id.Path()))
	b.WriteString("\n")
	depth := "unreachable from entries"
	if d.reachable {
		depth = fmt.Sprintf("depth %d", d.depth)
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s | %s", d.path, depth)))
	b.WriteString("\n\nDependencies:\n")
	if len(d.dependencies) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, dep := range d.dependencies {
		marker := "  "
		if i == m.selectedDepIndex {
			marker = "> "
		}
		b.WriteString(marker + dep.Path() + "\n")
	}
	b.WriteString("\nImported by:\n")
	if len(d.dependents) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, dep := range d.dependents {
		b.WriteString("  " + dep.Path() + "\n")
	}
	if len(d.unused) > 0 {
		b.WriteString("\n" + unusedStyle.Render("Unused exports: "+strings.Join(d.unused, ", ")) + "\n")
	}
	return b.String()
}

func renderSnippet(s report.Snippet) string {
	return snippetStyle.Render(fmt.Sprintf("%s (line %d)\n%s", s.Name, s.Line, strings.Join(s.Context, "\n")))
}

func renderDiffOverlay(r *coreapp.Report) string {
	if r == nil || r.Diff == nil {
		return statusStyle.Render("No previous run to compare (enable the snapshot store with -store).")
	}
	d := r.Diff
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Since last run: modules %+d, unused exports +%d -%d\n", d.ModuleDelta, len(d.Added), len(d.Removed)))
	for _, rec := range d.Added {
		b.WriteString(unusedStyle.Render(fmt.Sprintf("+ %s#%s", rec.ModuleID, rec.Name)) + "\n")
	}
	for _, rec := range d.Removed {
		b.WriteString(successStyle.Render(fmt.Sprintf("- %s#%s", rec.ModuleID, rec.Name)) + "\n")
	}
	return b.String()
}

func initialModel(readFile func(string) ([]byte, error)) model {
	if readFile == nil {
		readFile = os.ReadFile
	}
	issueList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	issueList.Title = "Findings"
	issueList.SetShowStatusBar(false)
	issueList.SetFilteringEnabled(true)

	moduleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	moduleList.Title = "Module Explorer"
	moduleList.SetShowStatusBar(false)
	moduleList.SetFilteringEnabled(true)

	return model{
		issueList:  issueList,
		moduleList: moduleList,
		mode:       panelIssues,
		readFile:   readFile,
		lastUpdate: time.Now(),
	}
}
