package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/sprint"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var sprintCmd = &cobra.Command{
	Use:   "sprint",
	Short: "Manage sprints",
	Long: `Manage sprints: named, non-overlapping date ranges with a list of tasks.

A sprint is referenced by its name or by a unique prefix of its id.`,
	Run: func(cmd *cobra.Command, args []string) {
		listSprints()
	},
}

var sprintCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a sprint",
	Long: `Create a sprint. The end date is inclusive.

Example:
  agileplus sprint create "Sprint 1" --start 2024-03-04 --end 2024-03-15`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		createSprint(strings.Join(args, " "), start, end)
	},
}

var sprintListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sprints",
	Run: func(cmd *cobra.Command, args []string) {
		listSprints()
	},
}

var sprintShowCmd = &cobra.Command{
	Use:   "show [sprint]",
	Short: "Show a sprint's tasks (default: the current sprint)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		showSprint(ref)
	},
}

var sprintEditCmd = &cobra.Command{
	Use:   "edit <sprint>",
	Short: "Rename a sprint or change its dates",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		editSprint(cmd, args[0])
	},
}

var sprintAddCmd = &cobra.Command{
	Use:   "add <sprint> <task-id>...",
	Short: "Add tasks to a sprint",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		addToSprint(args[0], args[1:])
	},
}

var sprintRemoveCmd = &cobra.Command{
	Use:   "remove <sprint> <task-id>",
	Short: "Remove a task from a sprint",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		removeFromSprint(args[0], args[1])
	},
}

var sprintDeleteCmd = &cobra.Command{
	Use:   "delete <sprint>",
	Short: "Delete a sprint; its tasks are kept",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		deleteSprint(args[0])
	},
}

func init() {
	rootCmd.AddCommand(sprintCmd)
	sprintCmd.AddCommand(sprintCreateCmd, sprintListCmd, sprintShowCmd, sprintEditCmd,
		sprintAddCmd, sprintRemoveCmd, sprintDeleteCmd)

	sprintCreateCmd.Flags().String("start", "today", "first day (YYYY-MM-DD)")
	sprintCreateCmd.Flags().String("end", "", "last day, inclusive (YYYY-MM-DD)")
	_ = sprintCreateCmd.MarkFlagRequired("end")
	addSprintEditFlags(sprintEditCmd)
}

func addSprintEditFlags(c *cobra.Command) {
	c.Flags().String("name", "", "new name")
	c.Flags().String("start", "", "new first day (YYYY-MM-DD)")
	c.Flags().String("end", "", "new last day, inclusive (YYYY-MM-DD)")
}

// sprintRange parses a start and an inclusive end day.
func sprintRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	s, err := parseDay(start, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	e, err := parseDay(end, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	return timeutil.StartOfDay(s), timeutil.EndOfDay(e), nil
}

// findSprint resolves a sprint by exact id, name or unique id prefix.
func findSprint(a *app.App, ref string) (store.Sprint, error) {
	if sp, ok := a.Sprints.Sprint(ref); ok {
		return sp, nil
	}
	var matches []store.Sprint
	for _, sp := range a.Sprints.Sprints() {
		if strings.EqualFold(sp.Name, ref) {
			return sp, nil
		}
		if strings.HasPrefix(sp.ID, ref) {
			matches = append(matches, sp)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return store.Sprint{}, fmt.Errorf("sprint %q: %w", ref, sprint.ErrSprintNotFound)
	default:
		return store.Sprint{}, fmt.Errorf("sprint %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatSprintRange(sp store.Sprint) string {
	return sp.StartDate.Format(timeutil.DayLayout) + " - " + sp.EndDate.Format(timeutil.DayLayout)
}

func createSprint(name, start, end string) {
	withApp("create sprint", func(ctx context.Context, a *app.App) error {
		s, e, err := sprintRange(start, end, a.Now())
		if err != nil {
			return err
		}
		sp, err := a.Sprints.Create(ctx, name, s, e)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Created sprint %s (%s) %s\n", sp.Name, shortID(sp.ID), formatSprintRange(*sp))
		return nil
	})
}

func listSprints() {
	withApp("list sprints", func(ctx context.Context, a *app.App) error {
		list := a.Sprints.Sprints()
		if len(list) == 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "No sprints")
			return nil
		}
		current, _ := a.Sprints.Current()
		all := a.Tasks.Snapshot()
		for _, sp := range list {
			marker := " "
			if sp.ID == current.ID {
				marker = "*"
			}
			scope := sprint.Tasks(sp, all)
			done, total := 0, 0
			for _, t := range scope {
				total += t.Points
				if t.Completed {
					done += t.Points
				}
			}
			_, _ = fmt.Fprintf(deps.Stdout, "%s %s  %-20s %s  %d %s  %d/%d pts\n",
				marker, shortID(sp.ID), sp.Name, formatSprintRange(sp), len(scope), pluralize("task", len(scope)), done, total)
		}
		return nil
	})
}

func showSprint(ref string) {
	withApp("show sprint", func(ctx context.Context, a *app.App) error {
		var sp store.Sprint
		if ref == "" {
			current, ok := a.Sprints.Current()
			if !ok {
				_, _ = fmt.Fprintln(deps.Stdout, "No current sprint")
				return nil
			}
			sp = current
		} else {
			found, err := findSprint(a, ref)
			if err != nil {
				return err
			}
			sp = found
		}

		_, _ = fmt.Fprintf(deps.Stdout, "%s (%s) %s\n", sp.Name, shortID(sp.ID), formatSprintRange(sp))
		scope := sprint.Tasks(sp, a.Tasks.Snapshot())
		now := a.Now()
		for _, t := range scope {
			_, _ = fmt.Fprintln(deps.Stdout, "  "+formatTaskLine(t, a.Timer.Elapsed(t.ID), now))
		}
		if len(scope) == 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "  No tasks")
		}
		if st, ok := a.Goals.Current(goal.SprintContext(sp.ID)); ok && st.Target > 0 {
			_, _ = fmt.Fprintf(deps.Stdout, "Goal: %d pts\n", st.Target)
		}
		return nil
	})
}

func editSprint(cmd *cobra.Command, ref string) {
	withApp("edit sprint", func(ctx context.Context, a *app.App) error {
		sp, err := findSprint(a, ref)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		now := a.Now()
		if flags.Changed("name") {
			sp.Name, _ = flags.GetString("name")
		}
		if flags.Changed("start") {
			v, _ := flags.GetString("start")
			d, err := parseDay(v, now)
			if err != nil {
				return err
			}
			sp.StartDate = timeutil.StartOfDay(d)
		}
		if flags.Changed("end") {
			v, _ := flags.GetString("end")
			d, err := parseDay(v, now)
			if err != nil {
				return err
			}
			sp.EndDate = timeutil.EndOfDay(d)
		}
		if err := a.Sprints.Update(ctx, sp); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Updated sprint %s %s\n", sp.Name, formatSprintRange(sp))
		return nil
	})
}

func addToSprint(ref string, args []string) {
	withApp("add tasks to sprint", func(ctx context.Context, a *app.App) error {
		sp, err := findSprint(a, ref)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := parseTaskID(arg)
			if err != nil {
				return err
			}
			if _, ok := a.Tasks.Task(id); !ok {
				return fmt.Errorf("task #%d not found", id)
			}
			ids = append(ids, id)
		}
		if err := a.Sprints.AddTasks(ctx, sp.ID, ids...); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Added %d %s to %s\n", len(ids), pluralize("task", len(ids)), sp.Name)
		return nil
	})
}

func removeFromSprint(ref, arg string) {
	withApp("remove task from sprint", func(ctx context.Context, a *app.App) error {
		sp, err := findSprint(a, ref)
		if err != nil {
			return err
		}
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		if err := a.Sprints.RemoveTask(ctx, id, sp.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Removed #%d from %s\n", id, sp.Name)
		return nil
	})
}

func deleteSprint(ref string) {
	withApp("delete sprint", func(ctx context.Context, a *app.App) error {
		sp, err := findSprint(a, ref)
		if err != nil {
			return err
		}
		if err := a.Sprints.Delete(ctx, sp.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Deleted sprint %s\n", sp.Name)
		return nil
	})
}
