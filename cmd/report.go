package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/persist"
	"github.com/eddielimmm/my-agile-plus/internal/stats"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show daily report snapshots",
	Long: `Show the daily report snapshot. Today's report is rebuilt first;
earlier days show what was stored at the time.

Examples:
  agileplus report
  agileplus report --date 2024-03-01
  agileplus report --from 2024-03-01 --to 2024-03-07`,
	Run: func(cmd *cobra.Command, args []string) {
		date, _ := cmd.Flags().GetString("date")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		if from != "" || to != "" {
			reportRange(from, to)
			return
		}
		showReport(date)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show productivity statistics and insights",
	Run: func(cmd *cobra.Command, args []string) {
		showStats()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd, statsCmd)
	reportCmd.Flags().String("date", "today", "day of the report")
	reportCmd.Flags().String("from", "", "first day of a range")
	reportCmd.Flags().String("to", "", "last day of a range (default today)")
}

func showReport(day string) {
	withApp("show report", func(ctx context.Context, a *app.App) error {
		now := a.Now()
		d, err := parseDay(day, now)
		if err != nil {
			return err
		}
		var r store.Report
		if timeutil.SameDay(d, now) {
			r = a.RefreshReport(ctx)
		} else {
			stored, src, err := a.Reports.Get(ctx, d)
			if errors.Is(err, persist.ErrNotFound) {
				_, _ = fmt.Fprintf(deps.Stdout, "No report stored for %s\n", timeutil.DayKey(d))
				return nil
			}
			if err != nil {
				return err
			}
			if src == persist.SourceLocal {
				_, _ = fmt.Fprintln(deps.Stdout, "(read from this device's cache)")
			}
			r = stored
		}
		printReport(r)
		return nil
	})
}

func printReport(r store.Report) {
	_, _ = fmt.Fprintf(deps.Stdout, "Report for %s\n", r.Date)
	_, _ = fmt.Fprintf(deps.Stdout, "  Tracked to date:  %s\n", timeutil.FormatSeconds(r.TotalTime))
	_, _ = fmt.Fprintf(deps.Stdout, "  Tasks completed:  %d\n", r.CompletedTasks)
	_, _ = fmt.Fprintf(deps.Stdout, "  Points earned:    %d\n", r.PointsEarned)

	var sizes []string
	for _, size := range store.Sizes {
		if n := r.SizeBreakdown[size]; n > 0 {
			sizes = append(sizes, fmt.Sprintf("%s:%d", size, n))
		}
	}
	if len(sizes) > 0 {
		_, _ = fmt.Fprintf(deps.Stdout, "  By size:          %s\n", strings.Join(sizes, " "))
	}

	best, bestSecs := -1, int64(0)
	for h, secs := range r.TimeDistribution {
		if secs > bestSecs {
			best, bestSecs = h, secs
		}
	}
	if best >= 0 {
		_, _ = fmt.Fprintf(deps.Stdout, "  Busiest hour:     %02d:00 (%s)\n", best, timeutil.FormatSeconds(bestSecs))
	}
}

func reportRange(from, to string) {
	withApp("show reports", func(ctx context.Context, a *app.App) error {
		now := a.Now()
		if to == "" {
			to = "today"
		}
		if from == "" {
			from = to
		}
		start, err := parseDay(from, now)
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		end, err := parseDay(to, now)
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}
		if end.Before(start) {
			return fmt.Errorf("--to %s is before --from %s", timeutil.DayKey(end), timeutil.DayKey(start))
		}
		reports, err := a.Reports.Range(ctx, start, end)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "No reports stored in this range")
			return nil
		}
		var total int64
		for _, r := range reports {
			_, _ = fmt.Fprintf(deps.Stdout, "%s  %s  %2d %s  %3d pts\n",
				r.Date, timeutil.FormatSeconds(r.TotalTime), r.CompletedTasks, pluralize("task", r.CompletedTasks), r.PointsEarned)
			total += r.TotalTime
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Tracked on days with a report: %s\n", timeutil.FormatHours(total))
		return nil
	})
}

func showStats() {
	withApp("compute statistics", func(ctx context.Context, a *app.App) error {
		all := a.Tasks.Snapshot()
		if len(all) == 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "No tasks yet")
			return nil
		}

		_, _ = fmt.Fprintln(deps.Stdout, "Time by size:")
		for _, st := range stats.SizeTimeBreakdown(all) {
			if st.Seconds == 0 {
				continue
			}
			_, _ = fmt.Fprintf(deps.Stdout, "  %-3s %8s  %5.1f%%\n", st.Size, timeutil.FormatHours(st.Seconds), st.Percent)
		}

		times := stats.CompletionTimes(all)
		_, _ = fmt.Fprintln(deps.Stdout, "Completion time (hours):")
		for _, ct := range times {
			if ct.Samples == 0 {
				continue
			}
			_, _ = fmt.Fprintf(deps.Stdout, "  %-3s avg %.2f  min %.2f  max %.2f  (%d %s)\n",
				ct.Size, ct.Avg, ct.Min, ct.Max, ct.Samples, pluralize("task", ct.Samples))
		}
		for _, p := range stats.Predictions(times) {
			_, _ = fmt.Fprintf(deps.Stdout, "  %-3s next: %.2fh (now %.2fh)\n", p.Size, p.Predicted, p.Current)
		}
		if size, ok := stats.MostEfficientSize(times); ok {
			_, _ = fmt.Fprintf(deps.Stdout, "Most efficient size: %s\n", size)
		}

		hours := stats.HourlyProductivity(all, a.Location())
		if h, ok := stats.MostProductiveHour(hours); ok {
			_, _ = fmt.Fprintf(deps.Stdout, "Most productive hour: %02d:00 (%.0f%% on completed tasks)\n", h, hours[h].Ratio()*100)
		}
		habits := stats.WorkHabits(all, a.Location())
		var parts []string
		for _, hb := range stats.Habits {
			if secs := habits[hb]; secs > 0 {
				parts = append(parts, fmt.Sprintf("%s %s", hb, timeutil.FormatHours(secs)))
			}
		}
		if len(parts) > 0 {
			_, _ = fmt.Fprintf(deps.Stdout, "Work habits: %s\n", strings.Join(parts, ", "))
		}

		if months := stats.MonthlyPoints(all); len(months) > 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "Points per month:")
			for _, m := range months {
				_, _ = fmt.Fprintf(deps.Stdout, "  %s  %d\n", m.Month, m.Points)
			}
		}
		for _, f := range stats.FoldersProgress(all) {
			_, _ = fmt.Fprintf(deps.Stdout, "Folder %-16s %d/%d done (%.0f%%)\n", f.Folder, f.Completed, f.Total, f.Percent())
		}

		days := stats.WorkloadSuggestion(all)
		_, _ = fmt.Fprintf(deps.Stdout, "Open work: about %d %s at %d pts/day\n", days, pluralize("workday", days), stats.PointsPerWorkday)
		return nil
	})
}
