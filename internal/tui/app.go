// Package tui is the interactive terminal front end.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/export"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var exportFormats = []export.Format{export.FormatCSV, export.FormatJSON, export.FormatYAML}

// Model is the root Bubble Tea model.
type Model struct {
	app    *app.App
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	tasks     tasksModel
	sprints   sprintsModel
	goals     goalsModel
	reports   reportsModel
	reminders remindersModel

	help      help.Model
	status    string
	statusErr bool
}

// Run shows the UI until the user quits. A running timer session is recorded
// before Run returns.
func Run(ctx context.Context, a *app.App) error {
	p := tea.NewProgram(New(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if a.Timer.Active() {
		if _, stopErr := a.Timer.Stop(context.WithoutCancel(ctx)); stopErr != nil && err == nil {
			err = fmt.Errorf("record running session: %w", stopErr)
		}
	}
	return err
}

func New(ctx context.Context, a *app.App) Model {
	h := help.New()
	h.ShowAll = false

	return Model{
		app:        a,
		activeView: viewTasks,
		tasks:      newTasksModel(ctx, a),
		sprints:    newSprintsModel(ctx, a),
		goals:      newGoalsModel(ctx, a),
		reports:    newReportsModel(ctx, a),
		reminders:  newRemindersModel(ctx, a),
		help:       h,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.reloadAll(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) reloadAll() tea.Cmd {
	return tea.Batch(
		m.tasks.load(),
		m.sprints.load(),
		m.goals.load(),
		m.reports.load(),
		m.reminders.load(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		contentHeight := m.height - 4 // header + footer
		m.tasks.setSize(m.width, contentHeight)
		m.sprints.setSize(m.width, contentHeight)
		m.goals.setSize(m.width, contentHeight)
		m.reports.setSize(m.width, contentHeight)
		m.reminders.setSize(m.width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		if m.exportPicking {
			return m.updateExportPicker(msg)
		}

		// A view with an open form gets every key.
		if m.isFormActive() {
			return m.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			m.exportPicking = true
			m.exportCursor = 0
			return m, nil
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil
		case key.Matches(msg, keys.Tab1):
			return m.switchTo(viewTasks)
		case key.Matches(msg, keys.Tab2):
			return m.switchTo(viewSprints)
		case key.Matches(msg, keys.Tab3):
			return m.switchTo(viewGoals)
		case key.Matches(msg, keys.Tab4):
			return m.switchTo(viewReports)
		case key.Matches(msg, keys.Tab5):
			return m.switchTo(viewReminders)
		case key.Matches(msg, keys.Tab):
			return m.switchTo((m.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		// The timer engine counts on its own; the tick only redraws.
		return m, tickCmd()

	case statusMsg:
		m.status = msg.text
		m.statusErr = msg.isError
		return m, nil

	case changedMsg:
		m.status = msg.text
		m.statusErr = false
		return m, m.reloadAll()

	case timerStartedMsg:
		m.status = fmt.Sprintf("Timer started on #%d %s", msg.task.ID, msg.task.Title)
		m.statusErr = false
		return m, m.reloadAll()

	case timerStoppedMsg:
		m.status = "Timer stopped"
		if msg.entry != nil {
			m.status = fmt.Sprintf("Recorded %s on #%d", timeutil.FormatSeconds(msg.entry.Duration), msg.entry.TaskID)
		}
		m.statusErr = false
		return m, m.reloadAll()

	case exportDoneMsg:
		m.status = fmt.Sprintf("Exported %d %s to %s", msg.count, pluralize("task", msg.count), msg.path)
		m.statusErr = false
		m.exportPicking = false
		return m, nil

	// Data always goes to its view, visible or not.
	case tasksDataMsg:
		m.tasks, cmd = m.tasks.update(msg)
		return m, cmd
	case sprintsDataMsg:
		m.sprints, cmd = m.sprints.update(msg)
		return m, cmd
	case goalsDataMsg:
		m.goals, cmd = m.goals.update(msg)
		return m, cmd
	case reportsDataMsg:
		m.reports, cmd = m.reports.update(msg)
		return m, cmd
	case remindersDataMsg:
		m.reminders, cmd = m.reminders.update(msg)
		return m, cmd
	}

	return m.updateActiveView(msg)
}

func (m Model) switchTo(v viewState) (tea.Model, tea.Cmd) {
	m.activeView = v
	return m, m.refreshCurrentView()
}

func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activeView {
	case viewTasks:
		m.tasks, cmd = m.tasks.update(msg)
	case viewSprints:
		m.sprints, cmd = m.sprints.update(msg)
	case viewGoals:
		m.goals, cmd = m.goals.update(msg)
	case viewReports:
		m.reports, cmd = m.reports.update(msg)
	case viewReminders:
		m.reminders, cmd = m.reminders.update(msg)
	}
	return m, cmd
}

func (m Model) isFormActive() bool {
	switch m.activeView {
	case viewTasks:
		return m.tasks.formActive
	case viewSprints:
		return m.sprints.formActive
	case viewGoals:
		return m.goals.formActive
	}
	return false
}

func (m Model) refreshCurrentView() tea.Cmd {
	switch m.activeView {
	case viewTasks:
		return m.tasks.load()
	case viewSprints:
		return m.sprints.load()
	case viewGoals:
		return m.goals.load()
	case viewReports:
		return m.reports.load()
	case viewReminders:
		return m.reminders.load()
	}
	return nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	var content string
	switch m.activeView {
	case viewTasks:
		content = m.tasks.view()
	case viewSprints:
		content = m.sprints.view()
	case viewGoals:
		content = m.goals.view()
	case viewReports:
		content = m.reports.view()
	case viewReminders:
		content = m.reminders.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(m.height-headerHeight-footerHeight, 1)

	if m.exportPicking {
		content = m.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (m Model) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == viewReminders {
			if n := m.reminders.unreadCount(); n > 0 {
				name = fmt.Sprintf("%s (%d)", name, n)
			}
		}
		if viewState(i) == m.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("agileplus")
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (m Model) renderFooter() string {
	helpView := m.help.View(keys)

	status := ""
	if m.status != "" {
		style := mutedStyle
		if m.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + m.status)
	}

	timerInfo := ""
	if st := m.app.Timer.State(); st.Active {
		timerInfo = successStyle.Render(fmt.Sprintf(" ● #%d %s", st.TaskID, timeutil.FormatSeconds(st.Elapsed)))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (m Model) renderExportPicker() string {
	title := titleStyle.Render("Export Tasks")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		rows = append(rows, cursorRow(i == m.exportCursor, string(f)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(m.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.exportCursor > 0 {
			m.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.exportCursor < len(exportFormats)-1 {
			m.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		m.exportPicking = false
		return m, m.doExport(exportFormats[m.exportCursor])
	case key.Matches(msg, keys.Back):
		m.exportPicking = false
	}
	return m, nil
}

// doExport writes every task to agileplus-<date>.<format> in the home directory.
func (m Model) doExport(f export.Format) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		home, err := os.UserHomeDir()
		if err != nil {
			return errorStatus("Export", err)
		}
		path := filepath.Join(home, fmt.Sprintf("agileplus-%s.%s", timeutil.DayKey(a.Now()), f))
		all := a.Tasks.Snapshot()
		if err := export.ToFile(f, all, path); err != nil {
			return errorStatus("Export", err)
		}
		return exportDoneMsg{path: path, count: len(all)}
	}
}
