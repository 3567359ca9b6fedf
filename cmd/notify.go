package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
)

var remindersCmd = &cobra.Command{
	Use:     "reminders",
	Aliases: []string{"due"},
	Short:   "Show open tasks due within three days",
	Run: func(cmd *cobra.Command, args []string) {
		keep, _ := cmd.Flags().GetBool("keep-unread")
		showReminders(!keep)
	},
}

func init() {
	rootCmd.AddCommand(remindersCmd)
	remindersCmd.Flags().Bool("keep-unread", false, "do not mark the reminders as seen")
}

func showReminders(markSeen bool) {
	withApp("load reminders", func(ctx context.Context, a *app.App) error {
		due, unread, err := a.Reminders(ctx)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "Nothing due in the next few days")
			return nil
		}
		_, _ = fmt.Fprintf(deps.Stdout, "%d due soon, %d new\n", len(due), unread)
		for _, r := range due {
			_, _ = fmt.Fprintf(deps.Stdout, "  #%-4d %-32s %s (%s)\n", r.Task.ID, r.Task.Title, r.Label(), r.Relative)
		}
		if markSeen {
			return a.Notices.MarkSeen(ctx, due)
		}
		return nil
	})
}

