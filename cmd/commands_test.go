package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)

	addTask(flagCmd(t, addDraftFlags, map[string]string{"size": "l", "folder": "Docs"}), "Write docs")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Added #1 Write docs (L, 5 pts)") {
		t.Fatalf("unexpected add output: %q", out)
	}

	listTasks("", false)
	env.mustSucceed(t)
	out := env.out()
	if !strings.Contains(out, "[ ] #1") || !strings.Contains(out, "[Docs]") || !strings.Contains(out, "1 task") {
		t.Fatalf("unexpected list output: %q", out)
	}

	editTask(flagCmd(t, func(c *cobra.Command) {
		addDraftFlags(c)
		c.Flags().String("title", "", "")
	}, map[string]string{"size": "XS", "title": "Write README"}), "1")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Updated #1 Write README (XS, 1 pt)") {
		t.Fatalf("unexpected edit output: %q", out)
	}

	setCompleted("1", true)
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Completed #1 Write README (+1 pt)") {
		t.Fatalf("unexpected done output: %q", out)
	}

	listTasks("", true)
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "No tasks found") {
		t.Fatalf("--open should hide completed tasks: %q", out)
	}

	deleteTask("1")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Deleted #1") {
		t.Fatalf("unexpected delete output: %q", out)
	}
}

func TestTaskErrors(t *testing.T) {
	env := newTestEnv(t)

	addTask(flagCmd(t, addDraftFlags, map[string]string{"size": "huge"}), "Bad size")
	env.mustFail(t, "Failed to add task")

	setCompleted("abc", true)
	env.mustFail(t, "invalid task id")

	deleteTask("42")
	env.mustFail(t, "task not found")
}

func TestLogTime(t *testing.T) {
	env := newTestEnv(t)
	addTestTask(t, env, "Review", nil)

	logTime(flagCmd(t, addLogFlags, map[string]string{"hours": "1", "minutes": "30"}), "1")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Logged 01:30:00 on #1 Review") {
		t.Fatalf("unexpected log output: %q", out)
	}

	logTime(flagCmd(t, addLogFlags, map[string]string{"from": "09:00", "to": "09:45", "date": "yesterday"}), "1")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Logged 00:45:00") {
		t.Fatalf("unexpected range output: %q", out)
	}

	logTime(flagCmd(t, addLogFlags, nil), "1")
	env.mustFail(t, "Failed to log time")

	showReport("today")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Tracked to date:  02:15:00") {
		t.Fatalf("today's report should count every entry up to today: %q", out)
	}
}

func TestSprintCommands(t *testing.T) {
	env := newTestEnv(t)
	addTestTask(t, env, "Plan", map[string]string{"size": "M"})
	addTestTask(t, env, "Build", map[string]string{"size": "L"})

	createSprint("Sprint 1", "today", "tomorrow")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Created sprint Sprint 1") {
		t.Fatalf("unexpected create output: %q", out)
	}

	createSprint("Sprint 2", "tomorrow", "tomorrow")
	env.mustFail(t, "overlap")

	addToSprint("sprint 1", []string{"1", "2", "1"})
	env.mustSucceed(t)
	env.out()

	setCompleted("1", true)
	env.mustSucceed(t)
	env.out()

	listSprints()
	env.mustSucceed(t)
	out := env.out()
	if !strings.HasPrefix(out, "* ") || !strings.Contains(out, "2 tasks") || !strings.Contains(out, "3/8 pts") {
		t.Fatalf("unexpected sprint list: %q", out)
	}

	removeFromSprint("Sprint 1", "2")
	env.mustSucceed(t)
	env.out()
	showSprint("")
	env.mustSucceed(t)
	out = env.out()
	if !strings.Contains(out, "Plan") || strings.Contains(out, "Build") {
		t.Fatalf("unexpected sprint tasks: %q", out)
	}

	deleteSprint("Sprint 1")
	env.mustSucceed(t)
	env.out()
	listSprints()
	if out := env.out(); !strings.Contains(out, "No sprints") {
		t.Fatalf("sprint should be gone: %q", out)
	}
}

func TestGoalConfirmation(t *testing.T) {
	env := newTestEnv(t)
	// One open M task: cold-start suggestion is round(0.7 * 3) = 2.
	addTestTask(t, env, "Ship", map[string]string{"size": "M"})

	suggestGoal("")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Suggested general goal: 2 pts") {
		t.Fatalf("unexpected suggestion: %q", out)
	}

	env.deps.Stdin = strings.NewReader("n\n")
	setGoal("", "10", false)
	env.mustFail(t, "goal not changed")
	env.out()

	env.deps.Stdin = strings.NewReader("y\n")
	setGoal("", "3", false)
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "General goal set to 3 pts") {
		t.Fatalf("unexpected set output: %q", out)
	}

	setCompleted("1", true)
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Goal achieved: General goal 3/3 points") {
		t.Fatalf("completion should report the achievement: %q", out)
	}

	showGoal("")
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "3/3 pts (100%) achieved") {
		t.Fatalf("unexpected goal output: %q", out)
	}

	goalSummary()
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Achieved:        1 (1 general, 0 sprint)") {
		t.Fatalf("unexpected summary: %q", out)
	}
}

func TestGoalSetSkipsQuestionWithYes(t *testing.T) {
	env := newTestEnv(t)
	addTestTask(t, env, "Ship", map[string]string{"size": "S"})

	setGoal("", "50", true)
	env.mustSucceed(t)
	if out := env.out(); strings.Contains(out, "[y/N]") || !strings.Contains(out, "set to 50 pts") {
		t.Fatalf("unexpected output: %q", out)
	}

	setGoal("current", "5", true)
	env.mustFail(t, "no current sprint")
}

func TestExportJSON(t *testing.T) {
	env := newTestEnv(t)
	addTestTask(t, env, "Export me", map[string]string{"size": "XL"})

	path := filepath.Join(env.dir, "tasks.json")
	exportTasks("json", path)
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Exported 1 task to "+path) {
		t.Fatalf("unexpected export output: %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Count int `json:"count"`
		Tasks []struct {
			Title  string `json:"title"`
			Points int    `json:"points"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Count != 1 || doc.Tasks[0].Title != "Export me" || doc.Tasks[0].Points != 8 {
		t.Fatalf("unexpected export document: %+v", doc)
	}

	exportTasks("xml", path)
	env.mustFail(t, "Invalid export format")
}

func TestReminders(t *testing.T) {
	env := newTestEnv(t)
	addTestTask(t, env, "Due soon", map[string]string{"due": "tomorrow"})
	addTestTask(t, env, "Due later", map[string]string{"due": "2999-01-01"})

	showReminders(true)
	env.mustSucceed(t)
	out := env.out()
	if !strings.Contains(out, "1 due soon, 1 new") || !strings.Contains(out, "Tomorrow") || strings.Contains(out, "Due later") {
		t.Fatalf("unexpected reminders: %q", out)
	}

	showReminders(true)
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "1 due soon, 0 new") {
		t.Fatalf("reminders should be marked seen: %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t)
	cfgFile = filepath.Join(env.dir, "config.toml")
	t.Cleanup(func() { cfgFile = "" })

	initConfig(false)
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Wrote "+cfgFile) {
		t.Fatalf("unexpected init output: %q", out)
	}
	data, err := os.ReadFile(cfgFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "user_id") || !strings.Contains(string(data), "[backend]") {
		t.Fatalf("unexpected config file:\n%s", data)
	}

	initConfig(false)
	env.mustFail(t, "already exists")

	showConfig()
	env.mustSucceed(t)
	if out := env.out(); !strings.Contains(out, "Backend:         sqlite") {
		t.Fatalf("unexpected config output: %q", out)
	}
}
