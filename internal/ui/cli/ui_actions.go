package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"modgraph/internal/ui/report"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	filtering := m.issueList.FilterState() == list.Filtering || m.moduleList.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == panelIssues {
				m.mode = panelModules
			} else {
				m.mode = panelIssues
			}
			return m, nil
		case "d":
			m.showDiff = !m.showDiff
			return m, nil
		}
	}

	if m.mode != panelModules {
		if !filtering {
			switch msg.String() {
			case "enter":
				return showIssueSource(m), nil
			case "esc":
				if m.snippet != nil {
					m.snippet = nil
					return m, nil
				}
			case "o":
				target, ok := selectedIssueTarget(m)
				if !ok {
					m.sourceStatus = statusStyle.Render("No source target available.")
					return m, nil
				}
				return m, jumpToSourceCmd(target)
			}
		}
		var cmd tea.Cmd
		m.issueList, cmd = m.issueList.Update(msg)
		return m, cmd
	}

	if !filtering {
		switch msg.String() {
		case "enter":
			return refreshModuleDetails(m)
		case "esc", "backspace":
			if m.hasDetails {
				m.hasDetails = false
				m.detailsErr = ""
				m.selectedDepIndex = 0
				return m, nil
			}
		case "j":
			if m.hasDetails && len(m.details.dependencies) > 0 {
				if m.selectedDepIndex < len(m.details.dependencies)-1 {
					m.selectedDepIndex++
				}
				return m, nil
			}
		case "k":
			if m.hasDetails && len(m.details.dependencies) > 0 {
				if m.selectedDepIndex > 0 {
					m.selectedDepIndex--
				}
				return m, nil
			}
		case "o":
			if !m.hasDetails {
				return m, nil
			}
			target, ok := selectedSourceTarget(m)
			if !ok {
				m.sourceStatus = statusStyle.Render("No source target available.")
				return m, nil
			}
			return m, jumpToSourceCmd(target)
		}
	}

	var cmd tea.Cmd
	m.moduleList, cmd = m.moduleList.Update(msg)
	return m, cmd
}

func selectedIssue(m model) (issue, bool) {
	if len(m.issues) == 0 {
		return issue{}, false
	}
	idx := m.issueList.Index()
	if idx < 0 || idx >= len(m.issues) {
		idx = 0
	}
	if sel, ok := m.issueList.SelectedItem().(item); ok {
		for _, is := range m.issues {
			if is.title == sel.title && is.desc == sel.desc {
				return is, true
			}
		}
	}
	return m.issues[idx], true
}

// modulePath maps a module id to its file on disk.
func modulePath(m model, id string) (string, bool) {
	if m.graph == nil || id == "" {
		return "", false
	}
	for _, mod := range m.modules {
		if mod.ID.String() == id {
			return mod.Path, mod.Path != ""
		}
	}
	return "", false
}

func showIssueSource(m model) model {
	is, ok := selectedIssue(m)
	if !ok {
		return m
	}
	path, ok := modulePath(m, is.module.String())
	if !ok {
		m.sourceStatus = statusStyle.Render("No source available for this finding.")
		m.snippet = nil
		return m
	}
	content, err := m.readFile(path)
	if err != nil {
		m.sourceStatus = statusStyle.Render(fmt.Sprintf("Read %s failed: %v", path, err))
		m.snippet = nil
		return m
	}

	name := is.export
	if name == "" {
		name = is.module.Path()
	}
	line := is.line
	if is.export == "" && line == 0 {
		line = 1
	}
	snippet, found := report.ExportSnippet(name, line, content, report.DefaultContextRadius)
	if !found {
		m.sourceStatus = statusStyle.Render(fmt.Sprintf("%s not found in %s", name, path))
		m.snippet = nil
		return m
	}
	m.snippet = &snippet
	m.sourceStatus = ""
	return m
}

func refreshModuleDetails(m model) (model, tea.Cmd) {
	if m.graph == nil || len(m.modules) == 0 {
		return m, nil
	}
	idx := m.moduleList.Index()
	if idx < 0 || idx >= len(m.modules) {
		idx = 0
	}
	mod, ok := m.graph.Module(m.modules[idx].ID)
	if !ok {
		m.detailsErr = fmt.Sprintf("module %s is no longer in the graph", m.modules[idx].ID)
		m.hasDetails = false
		return m, nil
	}

	d := moduleDetails{
		id:           mod.ID,
		path:         mod.Path,
		dependencies: m.graph.Dependencies(mod.ID),
		dependents:   m.graph.Dependents(mod.ID),
	}
	d.depth, d.reachable = m.graph.ImportDepth(mod.ID)
	if m.report != nil {
		for _, u := range m.report.UnusedExports {
			if u.ModuleID == mod.ID {
				d.unused = append(d.unused, u.Export.Name)
			}
		}
	}
	if m.selectedDepIndex >= len(d.dependencies) {
		m.selectedDepIndex = 0
	}
	m.details = d
	m.detailsErr = ""
	m.hasDetails = true
	return m, nil
}

type sourceTarget struct {
	file string
	line int
}

func selectedIssueTarget(m model) (sourceTarget, bool) {
	is, ok := selectedIssue(m)
	if !ok {
		return sourceTarget{}, false
	}
	path, ok := modulePath(m, is.module.String())
	if !ok {
		return sourceTarget{}, false
	}
	return sourceTarget{file: path, line: max(is.line, 1)}, true
}

func selectedSourceTarget(m model) (sourceTarget, bool) {
	if len(m.details.dependencies) > 0 {
		idx := min(max(m.selectedDepIndex, 0), len(m.details.dependencies)-1)
		if path, ok := modulePath(m, m.details.dependencies[idx].String()); ok {
			return sourceTarget{file: path, line: 1}, true
		}
	}
	if m.details.path != "" {
		return sourceTarget{file: m.details.path, line: 1}, true
	}
	return sourceTarget{}, false
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	if strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || strings.HasSuffix(editor, "vi") {
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	}
	cmd := exec.Command(editor, args...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}
