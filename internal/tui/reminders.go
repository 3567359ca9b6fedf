package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/notify"
)

type remindersModel struct {
	app    *app.App
	ctx    context.Context
	width  int
	height int

	reminders []notify.Reminder
	unread    map[int64]bool
	cursor    int
}

func newRemindersModel(ctx context.Context, a *app.App) remindersModel {
	return remindersModel{app: a, ctx: ctx, unread: map[int64]bool{}}
}

func (m *remindersModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type remindersDataMsg struct {
	reminders []notify.Reminder
	unread    []notify.Reminder
	err       error
}

func (m remindersModel) load() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		due := notify.DueSoon(a.Tasks.Snapshot(), a.Now())
		unread, err := a.Notices.Unread(ctx, due)
		return remindersDataMsg{reminders: due, unread: unread, err: err}
	}
}

func (m remindersModel) unreadCount() int {
	return len(m.unread)
}

func (m remindersModel) update(msg tea.Msg) (remindersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case remindersDataMsg:
		m.reminders = msg.reminders
		m.unread = make(map[int64]bool, len(msg.unread))
		for _, r := range msg.unread {
			m.unread[r.Task.ID] = true
		}
		m.cursor = clampCursor(m.cursor, len(m.reminders))
		if msg.err != nil {
			return m, func() tea.Msg { return errorStatus("Load reminders", msg.err) }
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.reminders)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if m.cursor < len(m.reminders) {
				return m, m.markSeen(m.reminders[m.cursor : m.cursor+1])
			}
		case key.Matches(msg, keys.Seen):
			if len(m.unread) > 0 {
				return m, m.markSeen(m.reminders)
			}
		}
	}
	return m, nil
}

func (m remindersModel) markSeen(reminders []notify.Reminder) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		if err := a.Notices.MarkSeen(ctx, reminders); err != nil {
			return errorStatus("Mark reminders seen", err)
		}
		return changedMsg{text: fmt.Sprintf("Marked %d %s as seen", len(reminders), pluralize("reminder", len(reminders)))}
	}
}

func (m remindersModel) view() string {
	w := m.width - 4
	title := titleStyle.Render("Due Soon")

	if len(m.reminders) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render(fmt.Sprintf("Nothing due in the next %d days.", notify.Window)),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("%d due soon, %d new", len(m.reminders), len(m.unread))))
	rows = append(rows, "")

	for i, r := range m.reminders {
		badge := "  "
		if m.unread[r.Task.ID] {
			badge = accentStyle.Render("● ")
		}
		text := fmt.Sprintf("#%-3d %-30s %-10s %s", r.Task.ID, truncate(r.Task.Title, 30), r.Label(), r.Relative)
		rows = append(rows, badge+cursorRow(i == m.cursor, text))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: mark seen  m: mark all seen"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
