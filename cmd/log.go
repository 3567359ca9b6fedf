package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/tasks"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var logCmd = &cobra.Command{
	Use:   "log <task-id>",
	Short: "Log time on a task by hand",
	Long: `Log time on a task without running the timer.

Give either a duration or a wall-clock range:
  agileplus log 3 --hours 1 --minutes 30
  agileplus log 3 --from 09:00 --to 10:30 --date 2024-03-04

A range that ends before it starts wraps past midnight.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logTime(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	addLogFlags(logCmd)
}

func addLogFlags(c *cobra.Command) {
	c.Flags().String("date", "today", "day of the entry (YYYY-MM-DD, today, yesterday)")
	c.Flags().Int("hours", 0, "hours spent")
	c.Flags().Int("minutes", 0, "minutes spent")
	c.Flags().String("from", "", "start time (HH:MM)")
	c.Flags().String("to", "", "end time (HH:MM)")
}

func logTime(cmd *cobra.Command, arg string) {
	withApp("log time", func(ctx context.Context, a *app.App) error {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		day, _ := flags.GetString("date")
		date, err := parseDay(day, a.Now())
		if err != nil {
			return err
		}
		m := tasks.ManualEntry{Date: date}
		m.Hours, _ = flags.GetInt("hours")
		m.Minutes, _ = flags.GetInt("minutes")
		m.From, _ = flags.GetString("from")
		m.To, _ = flags.GetString("to")

		e, err := a.AddManualEntry(ctx, id, m)
		if err != nil {
			return err
		}
		t, _ := a.Tasks.Task(id)
		_, _ = fmt.Fprintf(deps.Stdout, "Logged %s on #%d %s (%s)\n",
			timeutil.FormatSeconds(e.Duration), id, t.Title, e.Date)
		return nil
	})
}
