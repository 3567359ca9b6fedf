package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/sprint"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Show and set point goals",
	Long: `Point goals exist for general work and for each sprint.

Use --sprint <name|id|current> to work with a sprint's goal instead of the general one.`,
	Run: func(cmd *cobra.Command, args []string) {
		ref, _ := cmd.Flags().GetString("sprint")
		showGoal(ref)
	},
}

var goalSetCmd = &cobra.Command{
	Use:   "set <points>",
	Short: "Replace the active goal",
	Long: `Replace the active goal with a new target.

A target more than 20% above the suggestion asks for confirmation first;
--yes skips the question.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref, _ := cmd.Flags().GetString("sprint")
		yes, _ := cmd.Flags().GetBool("yes")
		setGoal(ref, args[0], yes)
	},
}

var goalSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a target from past achievements",
	Run: func(cmd *cobra.Command, args []string) {
		ref, _ := cmd.Flags().GetString("sprint")
		suggestGoal(ref)
	},
}

var goalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show goal history and streaks",
	Run: func(cmd *cobra.Command, args []string) {
		goalSummary()
	},
}

func init() {
	rootCmd.AddCommand(goalCmd)
	goalCmd.AddCommand(goalSetCmd, goalSuggestCmd, goalSummaryCmd)
	goalCmd.PersistentFlags().String("sprint", "", "sprint name, id prefix or \"current\"")
	goalSetCmd.Flags().BoolP("yes", "y", false, "do not ask before setting a high target")
}

// goalContext maps --sprint to a goal context.
func goalContext(a *app.App, ref string) (string, error) {
	switch strings.ToLower(ref) {
	case "":
		return goal.GeneralContext, nil
	case "current":
		sp, ok := a.Sprints.Current()
		if !ok {
			return "", fmt.Errorf("no current sprint: %w", sprint.ErrSprintNotFound)
		}
		return goal.SprintContext(sp.ID), nil
	}
	sp, err := findSprint(a, ref)
	if err != nil {
		return "", err
	}
	return goal.SprintContext(sp.ID), nil
}

func contextLabel(goalCtx string) string {
	if goal.IsSprintContext(goalCtx) {
		return "Sprint goal"
	}
	return "General goal"
}

func showGoal(ref string) {
	withApp("show goal", func(ctx context.Context, a *app.App) error {
		goalCtx, err := goalContext(a, ref)
		if err != nil {
			return err
		}
		st, err := a.Goals.Load(ctx, goalCtx)
		if err != nil {
			return err
		}
		_, progress, err := a.GoalScope(goalCtx)
		if err != nil {
			return err
		}
		if st.Target <= 0 {
			_, _ = fmt.Fprintf(deps.Stdout, "%s: not set (%d pts completed)\n", contextLabel(goalCtx), progress)
			return nil
		}
		line := fmt.Sprintf("%s: %d/%d pts (%.0f%%)", contextLabel(goalCtx), progress, st.Target,
			100*float64(min(progress, st.Target))/float64(st.Target))
		if st.Achieved || progress >= st.Target {
			line += " achieved"
		}
		if st.Local {
			line += " [saved on this device only]"
		}
		_, _ = fmt.Fprintln(deps.Stdout, line)
		return nil
	})
}

func suggestGoal(ref string) {
	withApp("suggest goal", func(ctx context.Context, a *app.App) error {
		goalCtx, err := goalContext(a, ref)
		if err != nil {
			return err
		}
		n, err := a.SuggestGoal(ctx, goalCtx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Suggested %s: %d pts\n", strings.ToLower(contextLabel(goalCtx)), n)
		return nil
	})
}

// confirm asks a yes/no question on stdin. Anything but y or yes is a no.
func confirm(question string) bool {
	_, _ = fmt.Fprintf(deps.Stdout, "%s [y/N]: ", question)
	line, err := bufio.NewReader(deps.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

var errGoalNotConfirmed = errors.New("goal not changed")

func setGoal(ref, arg string, yes bool) {
	withApp("set goal", func(ctx context.Context, a *app.App) error {
		value, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", goal.ErrInvalidTarget, arg)
		}
		goalCtx, err := goalContext(a, ref)
		if err != nil {
			return err
		}
		suggestion, err := a.SuggestGoal(ctx, goalCtx)
		if err != nil {
			return err
		}
		if goal.NeedsConfirmation(value, suggestion) && !yes {
			q := fmt.Sprintf("%d pts is more than 20%% above the suggested %d pts. Set it anyway?", value, suggestion)
			if !confirm(q) {
				return errGoalNotConfirmed
			}
		}
		st, err := a.SetGoal(ctx, goalCtx, value)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("%s set to %d pts", contextLabel(goalCtx), st.Target)
		if st.Local {
			msg += " (saved on this device only)"
		}
		_, _ = fmt.Fprintln(deps.Stdout, msg)
		if cur, ok := a.Goals.Current(goalCtx); ok && cur.Achieved {
			_, progress, _ := a.GoalScope(goalCtx)
			printAchievement(goal.Achievement{Context: goalCtx, Target: cur.Target, Progress: progress})
		}
		return nil
	})
}

func goalSummary() {
	withApp("summarize goals", func(ctx context.Context, a *app.App) error {
		s, err := a.Goals.Summary(ctx, a.Now())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Goals set:       %d\n", s.Total)
		_, _ = fmt.Fprintf(deps.Stdout, "Achieved:        %d (%d general, %d sprint)\n", s.Achieved, s.GeneralAchieved, s.SprintAchieved)
		_, _ = fmt.Fprintf(deps.Stdout, "Current streak:  %d %s\n", s.CurrentStreak, pluralize("day", s.CurrentStreak))
		_, _ = fmt.Fprintf(deps.Stdout, "Longest streak:  %d %s\n", s.LongestStreak, pluralize("day", s.LongestStreak))
		return nil
	})
}
