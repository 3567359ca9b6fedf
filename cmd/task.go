package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/tasks"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Add, list, edit, complete and delete tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task. Points default to the size's story points:
XS=1, S=2, M=3, L=5, XL=8, XXL=13.

Examples:
  agileplus task add "Fix login" --size S
  agileplus task add "Quarterly plan" --size XL --due 2024-03-31 --folder Work`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addTask(cmd, strings.Join(args, " "))
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Run: func(cmd *cobra.Command, args []string) {
		folder, _ := cmd.Flags().GetString("folder")
		open, _ := cmd.Flags().GetBool("open")
		listTasks(folder, open)
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a task",
	Long: `Edit a task. Only the given flags change.

Changing the size recomputes the points unless --points is given too.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		editTask(cmd, args[0])
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setCompleted(args[0], true)
	},
}

var taskReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Mark a completed task as open again",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setCompleted(args[0], false)
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task and remove it from its sprints",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		deleteTask(args[0])
	},
}

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "List, create, rename and delete folders",
	Run: func(cmd *cobra.Command, args []string) {
		listFolders()
	},
}

var folderAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp("create folder", func(ctx context.Context, a *app.App) error {
			f, err := a.Tasks.CreateFolder(ctx, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(deps.Stdout, "Created folder %s\n", f.Name)
			return nil
		})
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a folder and move its tasks",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withApp("rename folder", func(ctx context.Context, a *app.App) error {
			f, err := findFolder(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Tasks.RenameFolder(ctx, f.ID, args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(deps.Stdout, "Renamed folder %s to %s\n", args[0], args[1])
			return nil
		})
	},
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a folder; its tasks are kept",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp("delete folder", func(ctx context.Context, a *app.App) error {
			f, err := findFolder(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Tasks.DeleteFolder(ctx, f.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(deps.Stdout, "Deleted folder %s\n", f.Name)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskEditCmd, taskDoneCmd, taskReopenCmd, taskDeleteCmd)
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderAddCmd, folderRenameCmd, folderDeleteCmd)

	addDraftFlags(taskAddCmd)
	addDraftFlags(taskEditCmd)
	taskEditCmd.Flags().String("title", "", "new title")

	taskListCmd.Flags().StringP("folder", "f", "", "only tasks in this folder")
	taskListCmd.Flags().Bool("open", false, "hide completed tasks")
}

func addDraftFlags(c *cobra.Command) {
	c.Flags().StringP("size", "s", "", "size: XS, S, M, L, XL or XXL (default M)")
	c.Flags().IntP("points", "p", 0, "story points (default from size)")
	c.Flags().String("priority", "", "priority: low, medium or high")
	c.Flags().String("due", "", "due date (YYYY-MM-DD, today, tomorrow)")
	c.Flags().StringP("folder", "f", "", "folder name")
	c.Flags().StringP("description", "d", "", "description")
}

// draftFlags applies the task flags that were set on the command to d.
func draftFlags(cmd *cobra.Command, d *tasks.Draft, now time.Time) error {
	flags := cmd.Flags()
	if flags.Changed("size") {
		v, _ := flags.GetString("size")
		size, err := store.ParseSize(v)
		if err != nil {
			return err
		}
		if size != d.Size {
			d.Points = 0
		}
		d.Size = size
	}
	if flags.Changed("points") {
		d.Points, _ = flags.GetInt("points")
	}
	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		p, err := store.ParsePriority(v)
		if err != nil {
			return err
		}
		d.Priority = p
	}
	if flags.Changed("due") {
		v, _ := flags.GetString("due")
		if v == "" {
			d.DueDate = nil
		} else {
			due, err := parseDay(v, now)
			if err != nil {
				return err
			}
			d.DueDate = &due
		}
	}
	if flags.Changed("folder") {
		d.Folder, _ = flags.GetString("folder")
	}
	if flags.Changed("description") {
		d.Description, _ = flags.GetString("description")
	}
	if flags.Changed("title") {
		d.Title, _ = flags.GetString("title")
	}
	return nil
}

func addTask(cmd *cobra.Command, title string) {
	withApp("add task", func(ctx context.Context, a *app.App) error {
		d := tasks.Draft{Title: title, Size: store.SizeM}
		if err := draftFlags(cmd, &d, a.Now()); err != nil {
			return err
		}
		t, err := a.Tasks.Add(ctx, d)
		if err != nil {
			return err
		}
		a.RefreshReport(ctx)
		_, _ = fmt.Fprintf(deps.Stdout, "Added #%d %s (%s, %d %s)\n", t.ID, t.Title, t.Size, t.Points, pluralize("pt", t.Points))
		return nil
	})
}

func editTask(cmd *cobra.Command, arg string) {
	withApp("edit task", func(ctx context.Context, a *app.App) error {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		t, found := a.Tasks.Task(id)
		if !found {
			return fmt.Errorf("task #%d: %w", id, tasks.ErrTaskNotFound)
		}
		d := tasks.Draft{
			Title:       t.Title,
			Size:        t.Size,
			Points:      t.Points,
			Priority:    t.Priority,
			DueDate:     t.DueDate,
			Folder:      t.Folder,
			Description: t.Description,
		}
		if err := draftFlags(cmd, &d, a.Now()); err != nil {
			return err
		}
		edited, achievements, err := a.EditTask(ctx, id, d)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Updated #%d %s (%s, %d %s)\n", edited.ID, edited.Title, edited.Size, edited.Points, pluralize("pt", edited.Points))
		for _, ach := range achievements {
			printAchievement(ach)
		}
		return nil
	})
}

func setCompleted(arg string, completed bool) {
	action := "complete task"
	if !completed {
		action = "reopen task"
	}
	withApp(action, func(ctx context.Context, a *app.App) error {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		t, achievements, err := a.SetCompleted(ctx, id, completed)
		if err != nil {
			return err
		}
		if completed {
			_, _ = fmt.Fprintf(deps.Stdout, "Completed #%d %s (+%d %s)\n", t.ID, t.Title, t.Points, pluralize("pt", t.Points))
		} else {
			_, _ = fmt.Fprintf(deps.Stdout, "Reopened #%d %s\n", t.ID, t.Title)
		}
		for _, ach := range achievements {
			printAchievement(ach)
		}
		return nil
	})
}

func printAchievement(ach goal.Achievement) {
	_, _ = fmt.Fprintf(deps.Stdout, "Goal achieved: %s %d/%d points\n", contextLabel(ach.Context), ach.Progress, ach.Target)
}

func deleteTask(arg string) {
	withApp("delete task", func(ctx context.Context, a *app.App) error {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		t, found := a.Tasks.Task(id)
		if !found {
			return fmt.Errorf("task #%d: %w", id, tasks.ErrTaskNotFound)
		}
		if err := a.DeleteTask(ctx, id); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Deleted #%d %s\n", t.ID, t.Title)
		return nil
	})
}

func listTasks(folder string, openOnly bool) {
	withApp("list tasks", func(ctx context.Context, a *app.App) error {
		list := a.Tasks.Snapshot()
		if folder != "" {
			list = a.Tasks.InFolder(folder)
		}
		now := a.Now()
		shown := 0
		for _, t := range list {
			if openOnly && t.Completed {
				continue
			}
			_, _ = fmt.Fprintln(deps.Stdout, formatTaskLine(t, a.Timer.Elapsed(t.ID), now))
			shown++
		}
		if shown == 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "No tasks found")
			return nil
		}
		_, _ = fmt.Fprintf(deps.Stdout, "%d %s\n", shown, pluralize("task", shown))
		return nil
	})
}

// formatTaskLine renders one task as "[x] #id title  size/pts  time  due  folder".
func formatTaskLine(t store.Task, running int64, now time.Time) string {
	check := " "
	if t.Completed {
		check = "x"
	}
	line := fmt.Sprintf("[%s] #%-4d %-32s %-3s %2d pts  %s",
		check, t.ID, t.Title, t.Size, t.Points, timeutil.FormatSeconds(t.TotalSeconds()+running))
	if t.DueDate != nil && !t.Completed {
		line += "  due " + humanize.RelTime(*t.DueDate, now, "ago", "from now")
	}
	if t.Folder != "" {
		line += "  [" + t.Folder + "]"
	}
	return line
}

func listFolders() {
	withApp("list folders", func(ctx context.Context, a *app.App) error {
		folders := a.Tasks.Folders()
		if len(folders) == 0 {
			_, _ = fmt.Fprintln(deps.Stdout, "No folders")
			return nil
		}
		for _, f := range folders {
			n := len(a.Tasks.InFolder(f.Name))
			_, _ = fmt.Fprintf(deps.Stdout, "%-24s %d %s\n", f.Name, n, pluralize("task", n))
		}
		return nil
	})
}

func findFolder(a *app.App, name string) (store.Folder, error) {
	for _, f := range a.Tasks.Folders() {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return store.Folder{}, fmt.Errorf("folder %q: %w", name, store.ErrNotFound)
}
