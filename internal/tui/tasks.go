package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/stats"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/tasks"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

type tasksModel struct {
	app    *app.App
	ctx    context.Context
	width  int
	height int

	tasks    []store.Task
	folders  []string
	folder   string // empty shows every folder
	hideDone bool
	cursor   int

	formActive bool
	form       *huh.Form
	formType   string // "new", "edit", "log"
	editingID  int64

	// Form field pointers (survive value copies)
	fields *taskFields
}

// taskFields backs the task and time-entry forms.
type taskFields struct {
	title       string
	size        string
	points      string
	priority    string
	due         string
	folder      string
	description string

	// values when the edit form opened
	origSize   string
	origPoints string

	date    string
	hours   string
	minutes string
	from    string
	to      string
}

func newTasksModel(ctx context.Context, a *app.App) tasksModel {
	return tasksModel{app: a, ctx: ctx, fields: &taskFields{}}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type tasksDataMsg struct {
	tasks   []store.Task
	folders []string
}

func (m tasksModel) load() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		all := a.Tasks.Snapshot()
		var folders []string
		for _, f := range a.Tasks.Folders() {
			folders = append(folders, f.Name)
		}
		for _, t := range all {
			if t.Folder != "" && !slices.Contains(folders, t.Folder) {
				folders = append(folders, t.Folder)
			}
		}
		slices.Sort(folders)
		return tasksDataMsg{tasks: all, folders: folders}
	}
}

// visible applies the folder and completion filters.
func (m tasksModel) visible() []store.Task {
	var out []store.Task
	for _, t := range m.tasks {
		if m.folder != "" && t.Folder != m.folder {
			continue
		}
		if m.hideDone && t.Completed {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (m tasksModel) nextFolder() string {
	if len(m.folders) == 0 {
		return ""
	}
	i := slices.Index(m.folders, m.folder)
	if i == len(m.folders)-1 {
		return ""
	}
	return m.folders[i+1]
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		m.tasks = msg.tasks
		m.folders = msg.folders
		if m.folder != "" && !slices.Contains(m.folders, m.folder) {
			m.folder = ""
		}
		m.cursor = clampCursor(m.cursor, len(m.visible()))
		return m, nil

	case tea.KeyMsg:
		return m.updateList(msg)
	}
	return m, nil
}

func (m tasksModel) updateList(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	list := m.visible()
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.cursor < len(list)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, keys.New):
		return m.showTaskForm(nil)
	case key.Matches(msg, keys.Folder):
		m.folder = m.nextFolder()
		m.cursor = 0
		return m, nil
	case key.Matches(msg, keys.Hide):
		m.hideDone = !m.hideDone
		m.cursor = clampCursor(m.cursor, len(m.visible()))
		return m, nil
	case key.Matches(msg, keys.Stop):
		return m, m.stopTimer()
	}

	if len(list) == 0 {
		return m, nil
	}
	selected := list[m.cursor]
	switch {
	case key.Matches(msg, keys.Start):
		return m, m.startTimer(selected)
	case key.Matches(msg, keys.Complete):
		return m, m.toggleCompleted(selected)
	case key.Matches(msg, keys.Edit):
		return m.showTaskForm(&selected)
	case key.Matches(msg, keys.Log):
		return m.showLogForm(selected)
	case key.Matches(msg, keys.Delete):
		return m, m.deleteTask(selected)
	}
	return m, nil
}

func (m tasksModel) startTimer(t store.Task) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		if t.Completed {
			return statusMsg{text: "Task is completed. Reopen it to track time.", isError: true}
		}
		if err := a.Timer.Start(ctx, t.ID); err != nil {
			return errorStatus("Start timer", err)
		}
		return timerStartedMsg{task: t}
	}
}

func (m tasksModel) stopTimer() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		if !a.Timer.Active() {
			return statusMsg{text: "No timer running"}
		}
		entry, err := a.Timer.Stop(ctx)
		if err != nil {
			return errorStatus("Record session", err)
		}
		return timerStoppedMsg{entry: entry}
	}
}

func (m tasksModel) toggleCompleted(t store.Task) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		updated, achievements, err := a.SetCompleted(ctx, t.ID, !t.Completed)
		if err != nil {
			return errorStatus("Update task", err)
		}
		text := fmt.Sprintf("Reopened #%d %s", updated.ID, updated.Title)
		if updated.Completed {
			text = fmt.Sprintf("Completed #%d %s (+%d %s)", updated.ID, updated.Title, updated.Points, pluralize("pt", updated.Points))
		}
		if s := achievementText(achievements); s != "" {
			text += " " + s
		}
		return changedMsg{text: text}
	}
}

func (m tasksModel) deleteTask(t store.Task) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		if err := a.DeleteTask(ctx, t.ID); err != nil {
			return errorStatus("Delete task", err)
		}
		return changedMsg{text: fmt.Sprintf("Deleted #%d %s", t.ID, t.Title)}
	}
}

func sizeOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(store.Sizes))
	for _, s := range store.Sizes {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%d pts)", s, store.PointsForSize(s)), string(s)))
	}
	return opts
}

func priorityOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("none", string(store.PriorityNone)),
		huh.NewOption("low", string(store.PriorityLow)),
		huh.NewOption("medium", string(store.PriorityMedium)),
		huh.NewOption("high", string(store.PriorityHigh)),
	}
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func optionalNumber(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 0 {
		return errors.New("enter a whole number")
	}
	return nil
}

func dateValidator(loc *time.Location, optional bool) func(string) error {
	return func(s string) error {
		if optional && strings.TrimSpace(s) == "" {
			return nil
		}
		_, err := timeutil.ParseDate(s, loc)
		return err
	}
}

// showTaskForm opens the new-task form, or the edit form when t is set.
func (m tasksModel) showTaskForm(t *store.Task) (tasksModel, tea.Cmd) {
	f := m.fields
	*f = taskFields{size: string(store.SizeM), folder: m.folder}
	m.formType = "new"
	if t != nil {
		m.formType = "edit"
		m.editingID = t.ID
		f.title = t.Title
		f.size = string(t.Size)
		f.points = strconv.Itoa(t.Points)
		f.priority = string(t.Priority)
		if t.DueDate != nil {
			f.due = timeutil.DayKey(t.DueDate.In(m.app.Location()))
		}
		f.folder = t.Folder
		f.description = t.Description
	}
	f.origSize, f.origPoints = f.size, f.points

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&f.title).Validate(required("title")),
			huh.NewSelect[string]().Title("Size").Options(sizeOptions()...).Value(&f.size),
			huh.NewInput().Title("Points").Description("leave blank to use the size's points").
				Value(&f.points).Validate(optionalNumber),
			huh.NewSelect[string]().Title("Priority").Options(priorityOptions()...).Value(&f.priority),
			huh.NewInput().Title("Due date").Placeholder("YYYY-MM-DD").
				Value(&f.due).Validate(dateValidator(m.app.Location(), true)),
			huh.NewInput().Title("Folder").Value(&f.folder),
			huh.NewText().Title("Description").Value(&f.description),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) showLogForm(t store.Task) (tasksModel, tea.Cmd) {
	f := m.fields
	*f = taskFields{date: timeutil.DayKey(m.app.Now())}
	m.formType = "log"
	m.editingID = t.ID

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title("Log time on #"+strconv.FormatInt(t.ID, 10)+" "+t.Title).
				Description("Enter hours and minutes, or a from/to clock range."),
			huh.NewInput().Title("Date").Placeholder("YYYY-MM-DD").
				Value(&f.date).Validate(dateValidator(m.app.Location(), false)),
			huh.NewInput().Title("Hours").Value(&f.hours).Validate(optionalNumber),
			huh.NewInput().Title("Minutes").Value(&f.minutes).Validate(optionalNumber),
			huh.NewInput().Title("From").Placeholder("HH:MM").Value(&f.from),
			huh.NewInput().Title("To").Placeholder("HH:MM").Value(&f.to),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

// draft turns the form into a task draft. A size change without a points change
// takes the new size's points.
func (f taskFields) draft(loc *time.Location) (tasks.Draft, error) {
	size, err := store.ParseSize(f.size)
	if err != nil {
		return tasks.Draft{}, err
	}
	priority, err := store.ParsePriority(f.priority)
	if err != nil {
		return tasks.Draft{}, err
	}
	d := tasks.Draft{
		Title:       f.title,
		Size:        size,
		Priority:    priority,
		Folder:      f.folder,
		Description: f.description,
	}

	points := strings.TrimSpace(f.points)
	if f.size != f.origSize && points == f.origPoints {
		points = ""
	}
	if points != "" {
		if d.Points, err = strconv.Atoi(points); err != nil {
			return tasks.Draft{}, fmt.Errorf("points: %w", err)
		}
	}
	if due := strings.TrimSpace(f.due); due != "" {
		day, err := timeutil.ParseDate(due, loc)
		if err != nil {
			return tasks.Draft{}, err
		}
		d.DueDate = &day
	}
	return d, nil
}

func atoiOrZero(s string) (int, error) {
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func (f taskFields) entry(loc *time.Location) (tasks.ManualEntry, error) {
	day, err := timeutil.ParseDate(f.date, loc)
	if err != nil {
		return tasks.ManualEntry{}, err
	}
	e := tasks.ManualEntry{Date: day, From: strings.TrimSpace(f.from), To: strings.TrimSpace(f.to)}
	if e.Hours, err = atoiOrZero(f.hours); err != nil {
		return tasks.ManualEntry{}, fmt.Errorf("hours: %w", err)
	}
	if e.Minutes, err = atoiOrZero(f.minutes); err != nil {
		return tasks.ManualEntry{}, fmt.Errorf("minutes: %w", err)
	}
	return e, nil
}

func (m tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
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

func (m tasksModel) submitForm() tea.Cmd {
	a, ctx, f, id, kind := m.app, m.ctx, *m.fields, m.editingID, m.formType
	return func() tea.Msg {
		loc := a.Location()
		if kind == "log" {
			entry, err := f.entry(loc)
			if err != nil {
				return errorStatus("Log time", err)
			}
			e, err := a.AddManualEntry(ctx, id, entry)
			if err != nil {
				return errorStatus("Log time", err)
			}
			return changedMsg{text: fmt.Sprintf("Logged %s on #%d", timeutil.FormatSeconds(e.Duration), id)}
		}

		d, err := f.draft(loc)
		if err != nil {
			return errorStatus("Save task", err)
		}
		if kind == "edit" {
			t, achievements, err := a.EditTask(ctx, id, d)
			if err != nil {
				return errorStatus("Save task", err)
			}
			text := fmt.Sprintf("Updated #%d %s (%s, %d %s)", t.ID, t.Title, t.Size, t.Points, pluralize("pt", t.Points))
			if s := achievementText(achievements); s != "" {
				text += " " + s
			}
			return changedMsg{text: text}
		}
		t, err := a.Tasks.Add(ctx, d)
		if err != nil {
			return errorStatus("Add task", err)
		}
		a.RefreshReport(ctx)
		return changedMsg{text: fmt.Sprintf("Added #%d %s (%s, %d %s)", t.ID, t.Title, t.Size, t.Points, pluralize("pt", t.Points))}
	}
}

func (m tasksModel) view() string {
	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Task")
		switch m.formType {
		case "edit":
			title = titleStyle.Render(fmt.Sprintf("Edit Task #%d", m.editingID))
		case "log":
			title = titleStyle.Render("Log Time")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
		return panelStyle.Width(m.width - 4).Render(content)
	}

	w := m.width - 4
	timerPanel := m.renderTimer(w)
	list := m.renderList(w, m.height-lipgloss.Height(timerPanel)-2)
	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, list)
}

func (m tasksModel) renderTimer(w int) string {
	st := m.app.Timer.State()
	now := m.app.Now()
	today := stats.DailySeconds(m.tasks, timeutil.StartOfDay(now), 1)[0] + st.Elapsed
	todayLine := mutedStyle.Render("Today: " + timeutil.FormatSeconds(today) + " tracked")

	if !st.Active {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			timerStyle.Render("00:00:00")+"  "+mutedStyle.Render("No timer running. Select a task and press s."),
			todayLine,
		))
	}
	title := fmt.Sprintf("#%d", st.TaskID)
	if t, ok := m.app.Tasks.Task(st.TaskID); ok {
		title += " " + t.Title
	}
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		timerRunningStyle.Render("● "+timeutil.FormatSeconds(st.Elapsed))+"  "+highlightStyle.Render(title),
		todayLine,
	))
}

// listWindow returns the slice bounds that keep the cursor in view.
func listWindow(cursor, n, size int) (int, int) {
	if size < 1 {
		size = 1
	}
	if n <= size {
		return 0, n
	}
	start := max(cursor-size/2, 0)
	end := start + size
	if end > n {
		end = n
		start = end - size
	}
	return start, end
}

func (m tasksModel) renderList(w, h int) string {
	filter := "All folders"
	if m.folder != "" {
		filter = "Folder: " + m.folder
	}
	if m.hideDone {
		filter += ", open only"
	}
	title := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("Tasks"), "  ", mutedStyle.Render(filter))

	list := m.visible()
	if len(list) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No tasks here. Press n to add one."),
		))
	}

	rows := []string{title, ""}
	now := m.app.Now()
	running := m.app.Timer.State()
	start, end := listWindow(m.cursor, len(list), h-8)
	for i := start; i < end; i++ {
		t := list[i]
		rows = append(rows, m.renderRow(t, i == m.cursor, now, running.TaskID == t.ID && running.Active))
	}
	rows = append(rows, "",
		mutedStyle.Render("  s: start  x: stop  space: done  t: log  n: new  e: edit  d: delete  f: folder  c: hide done"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m tasksModel) renderRow(t store.Task, selected bool, now time.Time, running bool) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	marker := priorityStyle(t.Priority).Render(priorityMark(t.Priority))
	text := fmt.Sprintf("%s #%-3d %-30s %-3s %2d pts", check, t.ID, truncate(t.Title, 30), t.Size, t.Points)

	var row string
	switch {
	case selected:
		row = selectedItemStyle.Render("> " + text)
	case t.Completed:
		row = "  " + doneItemStyle.Render(text)
	default:
		row = normalItemStyle.Render("  " + text)
	}
	row = marker + row

	if running {
		row += successStyle.Render("  ● running")
	}
	if t.DueDate != nil && !t.Completed {
		row += "  " + dueLabel(*t.DueDate, now)
	}
	if t.Folder != "" {
		row += "  " + mutedStyle.Render("["+t.Folder+"]")
	}
	return row
}

func dueLabel(due, now time.Time) string {
	days := timeutil.DaysBetween(timeutil.StartOfDay(now), timeutil.StartOfDay(due.In(now.Location())))
	switch {
	case days < 0:
		return errorStyle.Render("overdue since " + humanize.RelTime(due, now, "ago", "from now"))
	case days == 0:
		return warningStyle.Render("due today")
	}
	return mutedStyle.Render("due " + humanize.RelTime(due, now, "ago", "from now"))
}

func priorityMark(p store.Priority) string {
	switch p {
	case store.PriorityHigh:
		return "!!"
	case store.PriorityMedium:
		return "! "
	case store.PriorityLow:
		return "· "
	}
	return "  "
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
