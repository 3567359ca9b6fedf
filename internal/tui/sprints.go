package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/sprint"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

// defaultSprintDays is the length proposed for a new sprint.
const defaultSprintDays = 14

type sprintsModel struct {
	app    *app.App
	ctx    context.Context
	width  int
	height int

	sprints      []store.Sprint
	tasks        []store.Task
	currentID    string
	cursor       int
	taskCursor   int
	viewingTasks bool // true = viewing tasks of selected sprint

	formActive bool
	form       *huh.Form
	formType   string // "new", "edit", "add"
	editingID  string

	// Form field pointers (survive value copies)
	fields *sprintFields
}

type sprintFields struct {
	name   string
	start  string
	end    string
	taskID int64
}

func newSprintsModel(ctx context.Context, a *app.App) sprintsModel {
	return sprintsModel{app: a, ctx: ctx, fields: &sprintFields{}}
}

func (m *sprintsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type sprintsDataMsg struct {
	sprints   []store.Sprint
	tasks     []store.Task
	currentID string
}

func (m sprintsModel) load() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		current, _ := a.Sprints.Current()
		return sprintsDataMsg{sprints: a.Sprints.Sprints(), tasks: a.Tasks.Snapshot(), currentID: current.ID}
	}
}

func (m sprintsModel) selected() (store.Sprint, bool) {
	if m.cursor >= len(m.sprints) {
		return store.Sprint{}, false
	}
	return m.sprints[m.cursor], true
}

func (m sprintsModel) sprintTasks() []store.Task {
	sp, ok := m.selected()
	if !ok {
		return nil
	}
	return sprint.Tasks(sp, m.tasks)
}

func (m sprintsModel) update(msg tea.Msg) (sprintsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case sprintsDataMsg:
		m.sprints = msg.sprints
		m.tasks = msg.tasks
		m.currentID = msg.currentID
		m.cursor = clampCursor(m.cursor, len(m.sprints))
		m.taskCursor = clampCursor(m.taskCursor, len(m.sprintTasks()))
		if len(m.sprints) == 0 {
			m.viewingTasks = false
		}
		return m, nil

	case tea.KeyMsg:
		if m.viewingTasks {
			return m.updateTaskView(msg)
		}
		return m.updateSprintList(msg)
	}
	return m, nil
}

func (m sprintsModel) updateSprintList(msg tea.KeyMsg) (sprintsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.sprints)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.New):
		return m.showSprintForm(nil)
	}

	sp, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, keys.Enter):
		m.viewingTasks = true
		m.taskCursor = 0
	case key.Matches(msg, keys.Edit):
		return m.showSprintForm(&sp)
	case key.Matches(msg, keys.Select):
		return m, m.selectSprint(sp)
	case key.Matches(msg, keys.Delete):
		return m, m.deleteSprint(sp)
	}
	return m, nil
}

func (m sprintsModel) updateTaskView(msg tea.KeyMsg) (sprintsModel, tea.Cmd) {
	scope := m.sprintTasks()
	switch {
	case key.Matches(msg, keys.Back):
		m.viewingTasks = false
	case key.Matches(msg, keys.Up):
		if m.taskCursor > 0 {
			m.taskCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.taskCursor < len(scope)-1 {
			m.taskCursor++
		}
	case key.Matches(msg, keys.Add):
		return m.showAddTaskForm()
	case key.Matches(msg, keys.Remove), key.Matches(msg, keys.Delete):
		if len(scope) > 0 {
			sp, _ := m.selected()
			return m, m.removeTask(sp, scope[m.taskCursor])
		}
	}
	return m, nil
}

func (m sprintsModel) selectSprint(sp store.Sprint) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		if err := a.Sprints.Select(sp.ID); err != nil {
			return errorStatus("Select sprint", err)
		}
		return changedMsg{text: sp.Name + " is now the current sprint"}
	}
}

func (m sprintsModel) deleteSprint(sp store.Sprint) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		if err := a.Sprints.Delete(ctx, sp.ID); err != nil {
			return errorStatus("Delete sprint", err)
		}
		return changedMsg{text: "Deleted sprint " + sp.Name}
	}
}

func (m sprintsModel) removeTask(sp store.Sprint, t store.Task) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		if err := a.Sprints.RemoveTask(ctx, t.ID, sp.ID); err != nil {
			return errorStatus("Remove task", err)
		}
		return changedMsg{text: fmt.Sprintf("Removed #%d from %s", t.ID, sp.Name)}
	}
}

// showSprintForm opens the new-sprint form, or the edit form when sp is set.
func (m sprintsModel) showSprintForm(sp *store.Sprint) (sprintsModel, tea.Cmd) {
	f := m.fields
	today := m.app.Now()
	*f = sprintFields{
		start: timeutil.DayKey(today),
		end:   timeutil.DayKey(today.AddDate(0, 0, defaultSprintDays-1)),
	}
	m.formType = "new"
	if sp != nil {
		m.formType = "edit"
		m.editingID = sp.ID
		f.name = sp.Name
		f.start = timeutil.DayKey(sp.StartDate.In(m.app.Location()))
		f.end = timeutil.DayKey(sp.EndDate.In(m.app.Location()))
	}

	loc := m.app.Location()
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Sprint Name").Value(&f.name).Validate(required("name")),
			huh.NewInput().Title("Start").Placeholder("YYYY-MM-DD").
				Value(&f.start).Validate(dateValidator(loc, false)),
			huh.NewInput().Title("End (inclusive)").Placeholder("YYYY-MM-DD").
				Value(&f.end).Validate(dateValidator(loc, false)),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m sprintsModel) showAddTaskForm() (sprintsModel, tea.Cmd) {
	sp, ok := m.selected()
	if !ok {
		return m, nil
	}
	var options []huh.Option[int64]
	for _, t := range m.tasks {
		if sp.HasTask(t.ID) || t.Completed {
			continue
		}
		options = append(options, huh.NewOption(fmt.Sprintf("#%d %s (%s)", t.ID, t.Title, t.Size), t.ID))
	}
	if len(options) == 0 {
		return m, func() tea.Msg {
			return statusMsg{text: "Every open task is already in " + sp.Name}
		}
	}

	f := m.fields
	*f = sprintFields{taskID: options[0].Value}
	m.formType = "add"
	m.editingID = sp.ID
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().Title("Add to " + sp.Name).Options(options...).Value(&f.taskID),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m sprintsModel) updateForm(msg tea.Msg) (sprintsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Back) {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		m.form = nil
		return m, m.submitForm()
	}
	return m, cmd
}

func (m sprintsModel) submitForm() tea.Cmd {
	a, ctx, f, id, kind := m.app, m.ctx, *m.fields, m.editingID, m.formType
	return func() tea.Msg {
		if kind == "add" {
			if err := a.Sprints.AddTasks(ctx, id, f.taskID); err != nil {
				return errorStatus("Add task", err)
			}
			sp, _ := a.Sprints.Sprint(id)
			return changedMsg{text: fmt.Sprintf("Added #%d to %s", f.taskID, sp.Name)}
		}

		loc := a.Location()
		start, err := timeutil.ParseDate(f.start, loc)
		if err != nil {
			return errorStatus("Save sprint", err)
		}
		end, err := timeutil.ParseDate(f.end, loc)
		if err != nil {
			return errorStatus("Save sprint", err)
		}
		start, end = timeutil.StartOfDay(start), timeutil.EndOfDay(end)

		if kind == "edit" {
			sp, ok := a.Sprints.Sprint(id)
			if !ok {
				return errorStatus("Save sprint", sprint.ErrSprintNotFound)
			}
			sp.Name, sp.StartDate, sp.EndDate = strings.TrimSpace(f.name), start, end
			if err := a.Sprints.Update(ctx, sp); err != nil {
				return errorStatus("Save sprint", err)
			}
			return changedMsg{text: "Updated sprint " + sp.Name}
		}
		sp, err := a.Sprints.Create(ctx, strings.TrimSpace(f.name), start, end)
		if err != nil {
			return errorStatus("Create sprint", err)
		}
		return changedMsg{text: "Created sprint " + sp.Name}
	}
}

func sprintRange(sp store.Sprint) string {
	return sp.StartDate.Format("Jan 02") + " - " + sp.EndDate.Format("Jan 02, 2006")
}

func sprintPoints(scope []store.Task) (done, total int) {
	for _, t := range scope {
		total += t.Points
		if t.Completed {
			done += t.Points
		}
	}
	return done, total
}

func (m sprintsModel) view() string {
	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Sprint")
		switch m.formType {
		case "edit":
			title = titleStyle.Render("Edit Sprint")
		case "add":
			title = titleStyle.Render("Add Task")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
		return panelStyle.Width(m.width - 4).Render(content)
	}

	if m.viewingTasks {
		return m.renderTaskView()
	}
	return m.renderSprintList()
}

func (m sprintsModel) renderSprintList() string {
	w := m.width - 4
	title := titleStyle.Render("Sprints")

	if len(m.sprints) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No sprints yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("    %-24s %-24s %6s %10s", "Name", "Dates", "Tasks", "Points")))

	start, end := listWindow(m.cursor, len(m.sprints), m.height-10)
	for i := start; i < end; i++ {
		sp := m.sprints[i]
		marker := " "
		if sp.ID == m.currentID {
			marker = successStyle.Render("*")
		}
		scope := sprint.Tasks(sp, m.tasks)
		done, total := sprintPoints(scope)
		text := fmt.Sprintf("%-24s %-24s %6d %10s", truncate(sp.Name, 24), sprintRange(sp), len(scope), fmt.Sprintf("%d/%d", done, total))
		rows = append(rows, marker+cursorRow(i == m.cursor, text))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  *: make current  enter: tasks"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m sprintsModel) renderTaskView() string {
	w := m.width - 4
	sp, _ := m.selected()
	scope := sprint.Tasks(sp, m.tasks)
	done, total := sprintPoints(scope)

	title := titleStyle.Render(fmt.Sprintf("%s  %s", sp.Name, mutedStyle.Render(sprintRange(sp))))
	summary := fmt.Sprintf("%d/%d pts done", done, total)
	if st, ok := m.app.Goals.Current(goal.SprintContext(sp.ID)); ok && st.Target > 0 {
		summary += fmt.Sprintf(", goal %d pts", st.Target)
	}

	if len(scope) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks. Press a to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, highlightStyle.Render(summary), "")

	start, end := listWindow(m.taskCursor, len(scope), m.height-10)
	for i := start; i < end; i++ {
		t := scope[i]
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		rows = append(rows, cursorRow(i == m.taskCursor,
			fmt.Sprintf("%s #%-3d %-30s %-3s %2d pts", check, t.ID, truncate(t.Title, 30), t.Size, t.Points)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  a: add task  r: remove  esc: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
