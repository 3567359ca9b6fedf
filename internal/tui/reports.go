package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/stats"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportHourly
)

const reportDays = 7

type reportsModel struct {
	app    *app.App
	ctx    context.Context
	width  int
	height int

	mode    reportMode
	tasks   []store.Task
	reports []store.Report
	offset  int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newReportsModel(ctx context.Context, a *app.App) reportsModel {
	return reportsModel{
		app:   a,
		ctx:   ctx,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

type reportsDataMsg struct {
	tasks   []store.Task
	reports []store.Report
	err     error
}

// load rebuilds today's snapshot when the range includes today, then reads the
// stored snapshots of the range.
func (r reportsModel) load() tea.Cmd {
	a, ctx := r.app, r.ctx
	from, to := r.dateRange()
	return func() tea.Msg {
		if r.offset == 0 {
			a.RefreshReport(ctx)
		}
		reports, err := a.Reports.Range(ctx, from, to)
		return reportsDataMsg{tasks: a.Tasks.Snapshot(), reports: reports, err: err}
	}
}

// dateRange returns the first and last day of the shown week.
func (r reportsModel) dateRange() (time.Time, time.Time) {
	today := timeutil.StartOfDay(r.app.Now())
	end := today.AddDate(0, 0, -reportDays*r.offset)
	return end.AddDate(0, 0, 1-reportDays), end
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.tasks = msg.tasks
		r.reports = msg.reports
		r.buildChart()
		if msg.err != nil {
			return r, func() tea.Msg { return errorStatus("Load reports", msg.err) }
		}
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.load()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.load()
		case key.Matches(msg, keys.Mode):
			if r.mode == reportDaily {
				r.mode = reportHourly
			} else {
				r.mode = reportDaily
			}
			r.buildChart()
			return r, nil
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if r.height > 34 {
		chartHeight = 14
	}

	r.chart = barchart.New(chartWidth, chartHeight)
	if r.app == nil {
		return
	}

	var bars []barchart.BarData
	switch r.mode {
	case reportHourly:
		completedStyle := lipgloss.NewStyle().Foreground(colorSuccess)
		openStyle := lipgloss.NewStyle().Foreground(colorSecondary)
		for _, h := range stats.HourlyProductivity(r.tasks, r.app.Location()) {
			bars = append(bars, barchart.BarData{
				Label: fmt.Sprintf("%02d", h.Hour),
				Values: []barchart.BarValue{
					{Name: "completed", Value: float64(h.CompletedSeconds) / 3600, Style: completedStyle},
					{Name: "open", Value: float64(h.TotalSeconds-h.CompletedSeconds) / 3600, Style: openStyle},
				},
			})
		}
	default:
		from, _ := r.dateRange()
		for i, secs := range stats.DailySeconds(r.tasks, from, reportDays) {
			bars = append(bars, barchart.BarData{
				Label:  from.AddDate(0, 0, i).Format("Mon 02"),
				Values: []barchart.BarValue{{Name: "tracked", Value: float64(secs) / 3600, Style: barStyle}},
			})
		}
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	// Mode tabs
	dailyTab := inactiveTabStyle.Render("Daily")
	hourlyTab := inactiveTabStyle.Render("By hour")
	if r.mode == reportDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		hourlyTab = activeTabStyle.Render("By hour")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, hourlyTab)

	label := mutedStyle.Render("all tracked time, completed tasks in green")
	if r.mode == reportDaily {
		from, to := r.dateRange()
		label = mutedStyle.Render(fmt.Sprintf("%s - %s, hours per day", from.Format("Jan 02"), to.Format("Jan 02, 2006")))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", label,
	)

	nav := mutedStyle.Render("  ←/→: previous/next week  v: switch chart")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderSnapshots(w), "", r.renderInsights(), "", nav,
		),
	)
}

// renderSnapshots lists the daily report snapshots stored for the shown week.
func (r reportsModel) renderSnapshots(w int) string {
	if len(r.reports) == 0 {
		return mutedStyle.Render("  No reports stored for this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %16s %10s %8s", "Date", "Tracked to date", "Completed", "Points")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 50))))
	for _, rep := range r.reports {
		rows = append(rows, fmt.Sprintf("  %-12s %16s %10d %8d",
			rep.Date, timeutil.FormatSeconds(rep.TotalTime), rep.CompletedTasks, rep.PointsEarned))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderInsights() string {
	if len(r.tasks) == 0 {
		return mutedStyle.Render("  Add and track tasks to see insights")
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Insights"))

	times := stats.CompletionTimes(r.tasks)
	if size, ok := stats.MostEfficientSize(times); ok {
		rows = append(rows, "  Most efficient size:  "+highlightStyle.Render(string(size)))
	}
	hours := stats.HourlyProductivity(r.tasks, r.app.Location())
	if h, ok := stats.MostProductiveHour(hours); ok {
		rows = append(rows, fmt.Sprintf("  Most productive hour: %s (%.0f%% on completed tasks)",
			highlightStyle.Render(fmt.Sprintf("%02d:00", h)), hours[h].Ratio()*100))
	}
	for _, p := range stats.Predictions(times) {
		rows = append(rows, fmt.Sprintf("  Next %-3s task:        about %.1fh (now %.1fh)", p.Size, p.Predicted, p.Current))
	}
	days := stats.WorkloadSuggestion(r.tasks)
	rows = append(rows, fmt.Sprintf("  Open work:            about %d %s at %d pts/day",
		days, pluralize("workday", days), stats.PointsPerWorkday))
	return strings.Join(rows, "\n")
}
