package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/aprsa/phoebe-lab/internal/session"
	"github.com/aprsa/phoebe-lab/internal/types"
)

func (m *Model) View() string {
	switch m.mode {
	case uiModeLogin:
		return m.login.View()
	case uiModeSessions:
		return m.picker.View() + "\n" + helpStyle.Render("enter resume · n new session · r refresh · esc back")
	default:
		return m.mainView()
	}
}

func (m *Model) mainView() string {
	if m.help.Active() {
		return m.help.View()
	}
	if m.solution.Active() {
		return dialogBorderStyle.Render(m.solution.View())
	}

	sections := []string{m.headerLine()}

	paramsPane := m.renderPane(m.params.View(), m.focus == focusParams)
	datasetsPane := m.renderPane(m.datasets.View(), m.focus == focusDatasets)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, paramsPane, datasetsPane))

	if m.plotVisible() {
		sections = append(sections, m.renderPlotSection())
	}
	if m.morphPicking {
		sections = append(sections, m.morphologyLine())
	}
	sections = append(sections, m.statusLine())
	return strings.Join(sections, "\n")
}

func (m *Model) headerLine() string {
	info := m.manager.Info()
	parts := []string{headerStyle.Render("PHOEBE Lab")}
	if info != nil {
		parts = append(parts, paramTwigStyle.Render(info.ProjectName))
		if info.Morphology != "" {
			parts = append(parts, statusStyle.Render(info.Morphology))
		}
		parts = append(parts, statusStyle.Render(info.SessionID))
	}
	state := m.manager.State()
	stateText := state.String()
	if state == session.StateActive {
		parts = append(parts, sessionActiveStyle.Render(stateText))
	} else {
		parts = append(parts, errorStyle.Render(stateText))
	}
	line := strings.Join(parts, "  ")
	return xansi.Truncate(line, m.contentWidth(), "…")
}

func (m *Model) renderPane(content string, focused bool) string {
	style := paneBorderStyle
	if focused {
		style = paneFocusedStyle
	}
	return style.Render(content)
}

func (m *Model) renderPlotSection() string {
	registry := m.manager.Registry()
	if registry == nil {
		return ""
	}
	var datasets []*types.Dataset
	for ds := range registry.List() {
		datasets = append(datasets, ds)
	}
	return renderPlot(datasets, m.contentWidth(), plotHeight)
}

func (m *Model) morphologyLine() string {
	parts := make([]string, 0, len(session.Morphologies))
	for i, name := range session.Morphologies {
		if i == m.morphIdx {
			parts = append(parts, selectedStyle.Render(" "+name+" "))
		} else {
			parts = append(parts, statusStyle.Render(" "+name+" "))
		}
	}
	return fieldLabelStyle.Render("morphology:") + " " + strings.Join(parts, " ") + helpStyle.Render("  ←/→ enter · esc")
}

func (m *Model) statusLine() string {
	status := m.status
	if m.statusError {
		status = errorStyle.Render(status)
	} else {
		status = statusStyle.Render(status)
	}
	if m.busy() || m.reconnecting {
		status = m.loader.View() + " " + status
	}
	hints := helpStyle.Render("tab pane · C compute · S solve · W save · L load · M morphology · ? help · q quit")
	line := status
	if line != "" {
		line += "  "
	}
	return xansi.Truncate(line+hints, m.contentWidth(), "…")
}
