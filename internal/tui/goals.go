package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/goal"
)

// goalRow is one goal context as shown in the view.
type goalRow struct {
	context    string
	label      string
	status     goal.Status
	progress   int
	suggestion int
	err        error
}

type goalsModel struct {
	app    *app.App
	ctx    context.Context
	width  int
	height int

	rows    []goalRow
	summary goal.Summary
	cursor  int
	bar     progress.Model

	formActive bool
	form       *huh.Form
	formType   string // "set", "confirm"

	// Form field pointers (survive value copies)
	fields *goalFields
}

type goalFields struct {
	value     string
	confirmed bool
	target    int
}

func newGoalsModel(ctx context.Context, a *app.App) goalsModel {
	return goalsModel{
		app:    a,
		ctx:    ctx,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		fields: &goalFields{},
	}
}

func (m *goalsModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.bar.Width = min(max(w-30, 10), 60)
}

type goalsDataMsg struct {
	rows    []goalRow
	summary goal.Summary
	err     error
}

func (m goalsModel) load() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		var rows []goalRow
		for _, c := range a.GoalContexts() {
			row := goalRow{context: c, label: contextLabel(c)}
			if goal.IsSprintContext(c) {
				if sp, ok := a.Sprints.Current(); ok {
					row.label += ": " + sp.Name
				}
			}
			row.status, row.err = a.Goals.Load(ctx, c)
			if row.err == nil {
				_, row.progress, row.err = a.GoalScope(c)
			}
			if row.err == nil {
				row.suggestion, row.err = a.SuggestGoal(ctx, c)
			}
			rows = append(rows, row)
		}
		summary, err := a.Goals.Summary(ctx, a.Now())
		return goalsDataMsg{rows: rows, summary: summary, err: err}
	}
}

func (m goalsModel) update(msg tea.Msg) (goalsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case goalsDataMsg:
		m.rows = msg.rows
		m.summary = msg.summary
		m.cursor = clampCursor(m.cursor, len(m.rows))
		if msg.err != nil {
			return m, func() tea.Msg { return errorStatus("Load goal history", msg.err) }
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.SetGoal), key.Matches(msg, keys.Enter):
			if m.cursor < len(m.rows) {
				return m.showSetForm(m.rows[m.cursor])
			}
		}
	}
	return m, nil
}

func (m goalsModel) showSetForm(row goalRow) (goalsModel, tea.Cmd) {
	f := m.fields
	*f = goalFields{value: strconv.Itoa(row.suggestion)}
	m.formType = "set"
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(row.label).
				Description(fmt.Sprintf("Target points. Suggested: %d pts", row.suggestion)).
				Value(&f.value).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n <= 0 {
						return errors.New("enter a positive number of points")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

// showConfirmForm asks before setting a target well above the suggestion.
func (m goalsModel) showConfirmForm(row goalRow) (goalsModel, tea.Cmd) {
	f := m.fields
	m.formType = "confirm"
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%d pts is more than 20%% above the suggested %d pts. Set it anyway?", f.target, row.suggestion)).
				Affirmative("Set it").
				Negative("Cancel").
				Value(&f.confirmed),
		),
	).WithShowHelp(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m goalsModel) updateForm(msg tea.Msg) (goalsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Back) {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.formActive = false
	m.form = nil
	if m.cursor >= len(m.rows) {
		return m, nil
	}
	row := m.rows[m.cursor]
	switch m.formType {
	case "set":
		target, err := strconv.Atoi(strings.TrimSpace(m.fields.value))
		if err != nil {
			return m, func() tea.Msg { return errorStatus("Set goal", err) }
		}
		m.fields.target = target
		if goal.NeedsConfirmation(target, row.suggestion) {
			return m.showConfirmForm(row)
		}
	case "confirm":
		if !m.fields.confirmed {
			return m, func() tea.Msg { return statusMsg{text: "Goal not changed"} }
		}
	}
	return m, m.setGoal(row.context, m.fields.target)
}

func (m goalsModel) setGoal(goalCtx string, target int) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		st, err := a.SetGoal(ctx, goalCtx, target)
		if err != nil {
			return errorStatus("Set goal", err)
		}
		text := fmt.Sprintf("%s set to %d pts", contextLabel(goalCtx), st.Target)
		if st.Local {
			text += " (saved on this device only)"
		}
		if cur, ok := a.Goals.Current(goalCtx); ok && cur.Achieved {
			text += " and already achieved!"
		}
		return changedMsg{text: text}
	}
}

func (m goalsModel) view() string {
	w := m.width - 4
	if m.formActive && m.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Set Goal"), "", m.form.View())
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Goals"), "")
	if m.app.Goals.SingleContext() {
		rows = append(rows, mutedStyle.Render("This backend keeps one goal; sprint goals use the general goal."), "")
	}

	for i, row := range m.rows {
		rows = append(rows, cursorRow(i == m.cursor, row.label))
		rows = append(rows, "    "+m.renderGoal(row), "")
	}

	s := m.summary
	rows = append(rows,
		titleStyle.Render("History"),
		fmt.Sprintf("  Goals set:       %d", s.Total),
		fmt.Sprintf("  Achieved:        %d (%d general, %d sprint)", s.Achieved, s.GeneralAchieved, s.SprintAchieved),
		fmt.Sprintf("  Current streak:  %s", accentStyle.Render(fmt.Sprintf("%d %s", s.CurrentStreak, pluralize("day", s.CurrentStreak)))),
		fmt.Sprintf("  Longest streak:  %d %s", s.LongestStreak, pluralize("day", s.LongestStreak)),
		"",
		mutedStyle.Render("  g/enter: set goal"),
	)
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m goalsModel) renderGoal(row goalRow) string {
	if row.err != nil {
		return errorStyle.Render(row.err.Error())
	}
	target := row.status.Target
	if target <= 0 {
		return mutedStyle.Render(fmt.Sprintf("Not set. %d pts completed, suggested target %d pts.", row.progress, row.suggestion))
	}

	pct := float64(min(row.progress, target)) / float64(target)
	line := m.bar.ViewAs(pct) + fmt.Sprintf("  %d/%d pts (%.0f%%)", row.progress, target, pct*100)
	if row.status.Achieved || row.progress >= target {
		line += "  " + successStyle.Render("achieved")
	}
	if row.status.Local {
		line += "  " + warningStyle.Render("[this device only]")
	}
	return line
}
