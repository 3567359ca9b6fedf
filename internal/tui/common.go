package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTasks viewState = iota
	viewSprints
	viewGoals
	viewReports
	viewReminders
)

var viewNames = []string{"Tasks", "Sprints", "Goals", "Reports", "Reminders"}

// --- Messages ---

type timerStartedMsg struct {
	task store.Task
}

type timerStoppedMsg struct {
	entry *store.TimeEntry
}

// changedMsg reports a successful write. Every view reloads its data.
type changedMsg struct {
	text string
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path  string
	count int
}

// --- Helpers ---

func errorStatus(action string, err error) tea.Msg {
	return statusMsg{text: fmt.Sprintf("%s: %v", action, err), isError: true}
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func contextLabel(goalCtx string) string {
	if goal.IsSprintContext(goalCtx) {
		return "Sprint goal"
	}
	return "General goal"
}

// achievementText joins the one-time notices for goals reached by a write.
func achievementText(achievements []goal.Achievement) string {
	var parts []string
	for _, a := range achievements {
		parts = append(parts, fmt.Sprintf("%s achieved (%d/%d pts)!", contextLabel(a.Context), a.Progress, a.Target))
	}
	return strings.Join(parts, " ")
}

// cursorRow renders one list row with the selection marker.
func cursorRow(selected bool, text string) string {
	if selected {
		return selectedItemStyle.Render("> " + text)
	}
	return normalItemStyle.Render("  " + text)
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	return max(cursor, 0)
}
