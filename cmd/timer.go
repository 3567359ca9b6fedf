package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/tasks"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var timerCmd = &cobra.Command{
	Use:   "timer <task-id>",
	Short: "Time a task in the foreground",
	Long: `Start the timer on a task and keep it running until Ctrl+C, then
record the session as a time entry for today.

Examples:
  agileplus timer 3              Run until interrupted
  agileplus timer 3 --for 25m    Stop automatically after 25 minutes`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetDuration("for")
		runTimer(args[0], limit)
	},
}

func init() {
	rootCmd.AddCommand(timerCmd)
	timerCmd.Flags().Duration("for", 0, "stop after this duration (e.g. 25m, 1h30m)")
}

func runTimer(arg string, limit time.Duration) {
	withApp("run timer", func(ctx context.Context, a *app.App) error {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		t, found := a.Tasks.Task(id)
		if !found {
			return fmt.Errorf("task #%d: %w", id, tasks.ErrTaskNotFound)
		}

		waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if limit > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(waitCtx, limit)
			defer cancel()
		}

		if err := a.Timer.Start(ctx, id); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Timing #%d %s. Press Ctrl+C to stop.\n", id, t.Title)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
	wait:
		for {
			select {
			case <-waitCtx.Done():
				break wait
			case <-ticker.C:
				_, _ = fmt.Fprintf(deps.Stdout, "\r%s", timeutil.FormatSeconds(a.Timer.Elapsed(id)))
			}
		}

		e, err := a.Timer.Stop(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "\nRecorded %s on #%d %s\n", timeutil.FormatSeconds(e.Duration), id, t.Title)
		return nil
	})
}
