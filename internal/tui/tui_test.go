package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/localcache"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/tasks"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestApp(t *testing.T) (*app.App, *clock) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	cache, err := localcache.NewMemory()
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c := &clock{now: time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)}
	a := app.New(st, cache, app.Options{UserID: "user-1", Location: time.UTC, Now: c.Now, TickInterval: time.Hour})
	t.Cleanup(func() { a.Close() })
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	return a, c
}

func addTask(t *testing.T, a *app.App, d tasks.Draft) store.Task {
	t.Helper()
	task, err := a.Tasks.Add(context.Background(), d)
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	return *task
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ============================================================
// Tasks view
// ============================================================

func loadedTasks(t *testing.T, a *app.App) tasksModel {
	t.Helper()
	m := newTasksModel(context.Background(), a)
	m.setSize(120, 40)
	m, _ = m.update(m.load()())
	return m
}

func TestTasksFilters(t *testing.T) {
	a, _ := newTestApp(t)
	addTask(t, a, tasks.Draft{Title: "docs", Size: store.SizeS, Folder: "Docs"})
	addTask(t, a, tasks.Draft{Title: "api", Size: store.SizeL, Folder: "Backend"})
	done := addTask(t, a, tasks.Draft{Title: "old", Size: store.SizeXS})
	if _, err := a.Tasks.SetCompleted(context.Background(), done.ID, true); err != nil {
		t.Fatal(err)
	}

	m := loadedTasks(t, a)
	if len(m.visible()) != 3 {
		t.Fatalf("expected 3 visible tasks, got %d", len(m.visible()))
	}
	if len(m.folders) != 2 || m.folders[0] != "Backend" {
		t.Fatalf("unexpected folders: %v", m.folders)
	}

	m, _ = m.update(keyPress("f"))
	if m.folder != "Backend" || len(m.visible()) != 1 {
		t.Fatalf("folder filter: %q, %d tasks", m.folder, len(m.visible()))
	}
	m, _ = m.update(keyPress("f"))
	m, _ = m.update(keyPress("f"))
	if m.folder != "" {
		t.Fatalf("filter should wrap to all folders, got %q", m.folder)
	}

	m, _ = m.update(keyPress("c"))
	if len(m.visible()) != 2 {
		t.Fatalf("hiding done tasks should leave 2, got %d", len(m.visible()))
	}
}

func TestTasksCursorBounds(t *testing.T) {
	a, _ := newTestApp(t)
	addTask(t, a, tasks.Draft{Title: "one", Size: store.SizeS})
	addTask(t, a, tasks.Draft{Title: "two", Size: store.SizeS})

	m := loadedTasks(t, a)
	m, _ = m.update(keyPress("k"))
	if m.cursor != 0 {
		t.Fatalf("cursor should stay at 0, got %d", m.cursor)
	}
	m, _ = m.update(keyPress("j"))
	m, _ = m.update(keyPress("j"))
	if m.cursor != 1 {
		t.Fatalf("cursor should stop at the last task, got %d", m.cursor)
	}
}

func TestTasksToggleCompleted(t *testing.T) {
	a, _ := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "ship", Size: store.SizeM})
	if _, err := a.SetGoal(context.Background(), goal.GeneralContext, 3); err != nil {
		t.Fatal(err)
	}

	m := loadedTasks(t, a)
	msg := m.toggleCompleted(task)()
	changed, ok := msg.(changedMsg)
	if !ok {
		t.Fatalf("expected changedMsg, got %#v", msg)
	}
	if !strings.Contains(changed.text, "Completed #1 ship (+3 pts)") || !strings.Contains(changed.text, "General goal achieved (3/3 pts)") {
		t.Fatalf("unexpected status: %q", changed.text)
	}

	m, _ = m.update(m.load()())
	msg = m.toggleCompleted(m.tasks[0])()
	if changed := msg.(changedMsg); !strings.Contains(changed.text, "Reopened #1") {
		t.Fatalf("unexpected status: %q", changed.text)
	}
}

func TestTasksTimerCommands(t *testing.T) {
	a, c := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "focus", Size: store.SizeS})
	m := loadedTasks(t, a)

	if msg, ok := m.stopTimer()().(statusMsg); !ok || msg.text != "No timer running" {
		t.Fatalf("stop without a timer: %#v", msg)
	}

	if _, ok := m.startTimer(task)().(timerStartedMsg); !ok {
		t.Fatal("expected timerStartedMsg")
	}
	if !a.Timer.Active() {
		t.Fatal("timer should be running")
	}

	c.Advance(90 * time.Minute)
	msg, ok := m.stopTimer()().(timerStoppedMsg)
	if !ok || msg.entry == nil {
		t.Fatalf("expected a recorded entry, got %#v", msg)
	}
	if msg.entry.Duration != 5400 {
		t.Fatalf("expected 5400 seconds, got %d", msg.entry.Duration)
	}
}

func TestTasksStartCompletedTask(t *testing.T) {
	a, _ := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "done", Size: store.SizeS})
	task.Completed = true

	m := loadedTasks(t, a)
	msg, ok := m.startTimer(task)().(statusMsg)
	if !ok || !msg.isError {
		t.Fatalf("expected an error status, got %#v", msg)
	}
	if a.Timer.Active() {
		t.Fatal("timer should not start on a completed task")
	}
}

func TestTasksDeleteStopsRunningSession(t *testing.T) {
	a, _ := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "gone", Size: store.SizeS})
	if err := a.Timer.Start(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}

	m := loadedTasks(t, a)
	if _, ok := m.deleteTask(task)().(changedMsg); !ok {
		t.Fatal("expected changedMsg")
	}
	if a.Timer.Active() {
		t.Fatal("deleting the tracked task should drop its session")
	}
	if _, ok := a.Tasks.Task(task.ID); ok {
		t.Fatal("task should be gone")
	}
}

func TestTaskFieldsDraft(t *testing.T) {
	tests := []struct {
		name   string
		fields taskFields
		points int
		err    bool
	}{
		{"size points", taskFields{title: "a", size: "L"}, 0, false},
		{"custom points", taskFields{title: "a", size: "L", points: "7"}, 7, false},
		{"size change resets points", taskFields{title: "a", size: "XL", points: "3", origSize: "M", origPoints: "3"}, 0, false},
		{"size change with new points", taskFields{title: "a", size: "XL", points: "10", origSize: "M", origPoints: "3"}, 10, false},
		{"bad priority", taskFields{title: "a", size: "M", priority: "urgent"}, 0, true},
		{"bad due date", taskFields{title: "a", size: "M", due: "soon"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.fields.draft(time.UTC)
			if tt.err {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if d.Points != tt.points {
				t.Fatalf("points = %d, want %d", d.Points, tt.points)
			}
		})
	}

	d, err := taskFields{title: "a", size: "s", priority: "high", due: "2024-03-08"}.draft(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if d.Size != store.SizeS || d.Priority != store.PriorityHigh || d.DueDate == nil || d.DueDate.Day() != 8 {
		t.Fatalf("unexpected draft: %+v", d)
	}
}

func TestTasksSubmitForms(t *testing.T) {
	a, _ := newTestApp(t)
	m := loadedTasks(t, a)

	m, _ = m.showTaskForm(nil)
	if !m.formActive || m.formType != "new" {
		t.Fatal("new task form should be open")
	}
	m.fields.title = "Write tests"
	m.fields.size = "XL"
	msg := m.submitForm()()
	if changed, ok := msg.(changedMsg); !ok || changed.text != "Added #1 Write tests (XL, 8 pts)" {
		t.Fatalf("unexpected add result: %#v", msg)
	}

	m, _ = m.update(m.load()())
	m, _ = m.showLogForm(m.tasks[0])
	m.fields.hours = "1"
	m.fields.minutes = "15"
	msg = m.submitForm()()
	if changed, ok := msg.(changedMsg); !ok || changed.text != "Logged 01:15:00 on #1" {
		t.Fatalf("unexpected log result: %#v", msg)
	}

	m, _ = m.showLogForm(m.tasks[0])
	msg = m.submitForm()()
	if st, ok := msg.(statusMsg); !ok || !st.isError {
		t.Fatalf("an empty entry should fail, got %#v", msg)
	}

	m, _ = m.update(m.load()())
	m, _ = m.showTaskForm(&m.tasks[0])
	if m.fields.title != "Write tests" || m.fields.points != "8" {
		t.Fatalf("edit form should start from the task: %+v", *m.fields)
	}
	m.fields.size = "XS"
	msg = m.submitForm()()
	if changed, ok := msg.(changedMsg); !ok || !strings.Contains(changed.text, "(XS, 1 pt)") {
		t.Fatalf("unexpected edit result: %#v", msg)
	}
}

func TestTasksEscClosesForm(t *testing.T) {
	a, _ := newTestApp(t)
	m := loadedTasks(t, a)
	m, _ = m.showTaskForm(nil)
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.formActive || m.form != nil {
		t.Fatal("esc should close the form")
	}
}

func TestTasksView(t *testing.T) {
	a, _ := newTestApp(t)
	addTask(t, a, tasks.Draft{Title: "visible task", Size: store.SizeM, Folder: "Docs", Priority: store.PriorityHigh})
	m := loadedTasks(t, a)

	out := m.view()
	for _, want := range []string{"No timer running", "visible task", "[Docs]", "Today: 00:00:00 tracked"} {
		if !strings.Contains(out, want) {
			t.Errorf("view should contain %q", want)
		}
	}

	m.folder = "Backend"
	if !strings.Contains(m.view(), "No tasks here") {
		t.Error("empty list should show a hint")
	}
}

// ============================================================
// Sprints view
// ============================================================

func loadedSprints(t *testing.T, a *app.App) sprintsModel {
	t.Helper()
	m := newSprintsModel(context.Background(), a)
	m.setSize(120, 40)
	m, _ = m.update(m.load()())
	return m
}

func TestSprintsCreateAndOverlap(t *testing.T) {
	a, _ := newTestApp(t)
	m := loadedSprints(t, a)

	m, _ = m.showSprintForm(nil)
	if m.fields.start != "2024-03-04" || m.fields.end != "2024-03-17" {
		t.Fatalf("unexpected default range %s - %s", m.fields.start, m.fields.end)
	}
	m.fields.name = "Sprint 1"
	if _, ok := m.submitForm()().(changedMsg); !ok {
		t.Fatal("expected the sprint to be created")
	}

	m, _ = m.showSprintForm(nil)
	m.fields.name = "Sprint 2"
	m.fields.start = "2024-03-10"
	msg, ok := m.submitForm()().(statusMsg)
	if !ok || !msg.isError || !strings.Contains(msg.text, "overlaps") {
		t.Fatalf("expected an overlap error, got %#v", msg)
	}

	m, _ = m.update(m.load()())
	if len(m.sprints) != 1 || m.currentID != m.sprints[0].ID {
		t.Fatalf("expected one current sprint, got %+v", m.sprints)
	}
	if !strings.Contains(m.view(), "Sprint 1") {
		t.Fatal("list should show the sprint")
	}
}

func TestSprintsTaskMembership(t *testing.T) {
	a, _ := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "plan", Size: store.SizeM})
	addTask(t, a, tasks.Draft{Title: "build", Size: store.SizeL})
	start := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	sp, err := a.Sprints.Create(context.Background(), "Sprint 1", start, start.AddDate(0, 0, 13))
	if err != nil {
		t.Fatal(err)
	}

	m := loadedSprints(t, a)
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.viewingTasks {
		t.Fatal("enter should open the sprint's tasks")
	}

	m, _ = m.showAddTaskForm()
	if m.formType != "add" || m.fields.taskID != task.ID {
		t.Fatalf("add form should preselect the first task, got %d", m.fields.taskID)
	}
	if _, ok := m.submitForm()().(changedMsg); !ok {
		t.Fatal("expected the task to be added")
	}
	m.formActive, m.form = false, nil
	m, _ = m.update(m.load()())
	if got := m.sprintTasks(); len(got) != 1 || got[0].ID != task.ID {
		t.Fatalf("unexpected sprint tasks: %+v", got)
	}

	msg := m.removeTask(*sp, task)()
	if _, ok := msg.(changedMsg); !ok {
		t.Fatalf("expected changedMsg, got %#v", msg)
	}
	m, _ = m.update(m.load()())
	if len(m.sprintTasks()) != 0 {
		t.Fatal("task should be removed from the sprint")
	}

	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.viewingTasks {
		t.Fatal("esc should go back to the list")
	}
}

// ============================================================
// Goals view
// ============================================================

func completeForm(t *testing.T, m goalsModel) (goalsModel, tea.Cmd) {
	t.Helper()
	if m.form == nil {
		t.Fatal("no form open")
	}
	m.form.State = huh.StateCompleted
	return m.updateForm(nil)
}

func TestGoalsConfirmHighTarget(t *testing.T) {
	a, _ := newTestApp(t)
	// Cold start: round(0.7 * 3) = 2.
	addTask(t, a, tasks.Draft{Title: "ship", Size: store.SizeM})

	m := newGoalsModel(context.Background(), a)
	m.setSize(120, 40)
	m, _ = m.update(m.load()())
	if len(m.rows) != 1 || m.rows[0].suggestion != 2 {
		t.Fatalf("unexpected goal rows: %+v", m.rows)
	}

	m, _ = m.showSetForm(m.rows[0])
	if m.fields.value != "2" {
		t.Fatalf("form should start at the suggestion, got %q", m.fields.value)
	}
	m.fields.value = "10"
	m, _ = completeForm(t, m)
	if !m.formActive || m.formType != "confirm" {
		t.Fatal("a target above the suggestion should ask first")
	}

	m, cmd := completeForm(t, m)
	if st, ok := cmd().(statusMsg); !ok || st.text != "Goal not changed" {
		t.Fatalf("declining should keep the goal, got %#v", st)
	}

	m, _ = m.showSetForm(m.rows[0])
	m.fields.value = "2"
	_, cmd = completeForm(t, m)
	msg, ok := cmd().(changedMsg)
	if !ok || msg.text != "General goal set to 2 pts" {
		t.Fatalf("unexpected result: %#v", msg)
	}
	if st, ok := a.Goals.Current(goal.GeneralContext); !ok || st.Target != 2 {
		t.Fatalf("goal not stored: %+v", st)
	}
}

func TestGoalsView(t *testing.T) {
	a, _ := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "ship", Size: store.SizeS})
	if _, err := a.SetGoal(context.Background(), goal.GeneralContext, 4); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.SetCompleted(context.Background(), task.ID, true); err != nil {
		t.Fatal(err)
	}

	m := newGoalsModel(context.Background(), a)
	m.setSize(120, 40)
	m, _ = m.update(m.load()())
	out := m.view()
	for _, want := range []string{"General goal", "2/4 pts (50%)", "Goals set:       1"} {
		if !strings.Contains(out, want) {
			t.Errorf("view should contain %q:\n%s", want, out)
		}
	}
}

// ============================================================
// Reports and reminders
// ============================================================

func TestReportsDateRange(t *testing.T) {
	a, _ := newTestApp(t)
	r := newReportsModel(context.Background(), a)
	from, to := r.dateRange()
	if from.Format("2006-01-02") != "2024-02-27" || to.Format("2006-01-02") != "2024-03-04" {
		t.Fatalf("unexpected range %v - %v", from, to)
	}

	r, _ = r.update(keyPress("h"))
	from, to = r.dateRange()
	if r.offset != 1 || to.Format("2006-01-02") != "2024-02-26" {
		t.Fatalf("left should go back a week, got %v - %v", from, to)
	}
	r, _ = r.update(keyPress("l"))
	r, _ = r.update(keyPress("l"))
	if r.offset != 0 {
		t.Fatalf("offset should not go below 0, got %d", r.offset)
	}
}

func TestReportsLoad(t *testing.T) {
	a, _ := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "tracked", Size: store.SizeS})
	if _, err := a.AddManualEntry(context.Background(), task.ID, tasks.ManualEntry{
		Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), Hours: 2,
	}); err != nil {
		t.Fatal(err)
	}

	r := newReportsModel(context.Background(), a)
	r.setSize(120, 40)
	r, _ = r.update(r.load()())
	if len(r.reports) != 1 || r.reports[0].Date != "2024-03-04" {
		t.Fatalf("expected today's report, got %+v", r.reports)
	}

	out := r.view()
	if !strings.Contains(out, "02:00:00") || !strings.Contains(out, "Insights") {
		t.Fatalf("unexpected reports view:\n%s", out)
	}

	r, _ = r.update(keyPress("v"))
	if r.mode != reportHourly || !strings.Contains(r.view(), "completed tasks in green") {
		t.Fatal("v should switch to the hourly chart")
	}
}

func TestReminders(t *testing.T) {
	a, _ := newTestApp(t)
	due := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	addTask(t, a, tasks.Draft{Title: "soon", Size: store.SizeS, DueDate: &due})

	m := newRemindersModel(context.Background(), a)
	m.setSize(120, 40)
	m, _ = m.update(m.load()())
	if len(m.reminders) != 1 || m.unreadCount() != 1 {
		t.Fatalf("expected one unread reminder, got %d/%d", len(m.reminders), m.unreadCount())
	}
	if !strings.Contains(m.view(), "Tomorrow") {
		t.Fatal("reminder should be labelled Tomorrow")
	}

	_, cmd := m.update(keyPress("m"))
	if _, ok := cmd().(changedMsg); !ok {
		t.Fatal("expected changedMsg")
	}
	m, _ = m.update(m.load()())
	if m.unreadCount() != 0 {
		t.Fatal("reminders should be marked seen")
	}
}

// ============================================================
// Root model
// ============================================================

func sizedModel(t *testing.T, a *app.App) Model {
	t.Helper()
	m := New(context.Background(), a)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return updated.(Model)
}

func TestModelLoadingState(t *testing.T) {
	a, _ := newTestApp(t)
	if got := New(context.Background(), a).View(); got != "Loading..." {
		t.Fatalf("expected loading text, got %q", got)
	}
}

func TestModelHeaderContainsAllTabs(t *testing.T) {
	a, _ := newTestApp(t)
	header := sizedModel(t, a).renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Errorf("header missing tab %q", name)
		}
	}
}

func TestModelSwitchViews(t *testing.T) {
	a, _ := newTestApp(t)
	m := sizedModel(t, a)

	for k, want := range map[string]viewState{"2": viewSprints, "3": viewGoals, "4": viewReports, "5": viewReminders, "1": viewTasks} {
		updated, _ := m.Update(keyPress(k))
		if got := updated.(Model).activeView; got != want {
			t.Errorf("key %s: view %d, want %d", k, got, want)
		}
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if updated.(Model).activeView != viewSprints {
		t.Fatal("tab should move to the next view")
	}
}

func TestModelKeysGoToOpenForm(t *testing.T) {
	a, _ := newTestApp(t)
	m := sizedModel(t, a)
	updated, _ := m.Update(keyPress("n"))
	m = updated.(Model)
	if !m.isFormActive() {
		t.Fatal("n should open the new task form")
	}
	updated, _ = m.Update(keyPress("2"))
	if updated.(Model).activeView != viewTasks {
		t.Fatal("typing into a form must not switch views")
	}
}

func TestModelStatusMessages(t *testing.T) {
	a, _ := newTestApp(t)
	m := sizedModel(t, a)

	updated, _ := m.Update(statusMsg{text: "something failed", isError: true})
	m = updated.(Model)
	if !m.statusErr || !strings.Contains(m.renderFooter(), "something failed") {
		t.Fatal("footer should show the error")
	}

	updated, cmd := m.Update(changedMsg{text: "Saved"})
	m = updated.(Model)
	if m.statusErr || m.status != "Saved" || cmd == nil {
		t.Fatal("a change should set the status and reload the views")
	}

	updated, _ = m.Update(exportDoneMsg{path: "/tmp/x.csv", count: 2})
	if got := updated.(Model).status; got != "Exported 2 tasks to /tmp/x.csv" {
		t.Fatalf("unexpected export status %q", got)
	}
}

func TestModelDataReachesHiddenViews(t *testing.T) {
	a, _ := newTestApp(t)
	addTask(t, a, tasks.Draft{Title: "hidden", Size: store.SizeS})
	m := sizedModel(t, a)
	updated, _ := m.Update(keyPress("2"))
	m = updated.(Model)

	updated, _ = m.Update(m.tasks.load()())
	if got := len(updated.(Model).tasks.tasks); got != 1 {
		t.Fatalf("tasks view should receive its data while hidden, got %d tasks", got)
	}
}

func TestModelExportPicker(t *testing.T) {
	a, _ := newTestApp(t)
	m := sizedModel(t, a)

	updated, _ := m.Update(keyPress("E"))
	m = updated.(Model)
	if !m.exportPicking || !strings.Contains(m.View(), "yaml") {
		t.Fatal("E should open the export picker")
	}
	updated, _ = m.Update(keyPress("j"))
	updated, _ = updated.Update(keyPress("j"))
	updated, _ = updated.Update(keyPress("j"))
	if got := updated.(Model).exportCursor; got != len(exportFormats)-1 {
		t.Fatalf("cursor should stop at the last format, got %d", got)
	}
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if updated.(Model).exportPicking {
		t.Fatal("esc should close the picker")
	}
}

func TestModelFooterShowsRunningTimer(t *testing.T) {
	a, _ := newTestApp(t)
	task := addTask(t, a, tasks.Draft{Title: "timed", Size: store.SizeS})
	if err := a.Timer.Start(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}
	a.Timer.Tick()
	if footer := sizedModel(t, a).renderFooter(); !strings.Contains(footer, "#1 00:00:01") {
		t.Fatalf("footer should show the running timer: %q", footer)
	}
}

// ============================================================
// Helpers
// ============================================================

func TestListWindow(t *testing.T) {
	tests := []struct {
		cursor, n, size int
		start, end      int
	}{
		{0, 3, 10, 0, 3},
		{0, 20, 5, 0, 5},
		{10, 20, 5, 8, 13},
		{19, 20, 5, 15, 20},
		{0, 4, 0, 0, 1},
	}
	for _, tt := range tests {
		start, end := listWindow(tt.cursor, tt.n, tt.size)
		if start != tt.start || end != tt.end {
			t.Errorf("listWindow(%d, %d, %d) = %d, %d; want %d, %d", tt.cursor, tt.n, tt.size, start, end, tt.start, tt.end)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a long title", 6); got != "a lon…" {
		t.Errorf("got %q", got)
	}
}

func TestAchievementText(t *testing.T) {
	got := achievementText([]goal.Achievement{
		{Context: goal.GeneralContext, Target: 5, Progress: 6},
		{Context: goal.SprintContext("abc"), Target: 3, Progress: 3},
	})
	want := "General goal achieved (6/5 pts)! Sprint goal achieved (3/3 pts)!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if achievementText(nil) != "" {
		t.Fatal("no achievements should give no text")
	}
}

func TestErrorStatus(t *testing.T) {
	msg := errorStatus("Save task", errors.New("boom")).(statusMsg)
	if !msg.isError || msg.text != "Save task: boom" {
		t.Fatalf("unexpected status %#v", msg)
	}
}

func TestKeyMapHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
	for i, g := range keys.FullHelp() {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}
