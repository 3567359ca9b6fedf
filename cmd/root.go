package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/config"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
	"github.com/eddielimmm/my-agile-plus/internal/tui"
)

// cfgFile is the --config flag.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "agileplus",
	Short: "Agile task and time tracking for one person",
	Long: `agileplus tracks tasks sized in story points, the time spent on them,
sprints, point goals and daily productivity reports.

Run without a subcommand to open the terminal UI.

Usage:
  agileplus                                   Open the terminal UI
  agileplus task add "Write docs" --size M    Add a task
  agileplus task done 3                       Complete task 3
  agileplus log 3 --hours 1 --minutes 30      Log time by hand
  agileplus timer 3                           Time task 3 until Ctrl+C
  agileplus sprint create "Sprint 1" --start 2024-03-04 --end 2024-03-15
  agileplus goal set 20                       Set the general point goal
  agileplus report                            Show today's report
  agileplus serve                             Serve the JSON API`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runTUI()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/agileplus/config.toml)")
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(
		"agileplus version {{.Version}}\n" +
			"commit: " + commit + "\n" +
			"built: " + date + "\n",
	)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// fail prints an error with optional details and exits with status 1.
func fail(msg string, err error) {
	_, _ = fmt.Fprintf(deps.Stderr, "Error: %s\n", msg)
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "Details: %v\n", err)
	}
	deps.Exit(1)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads and validates the configuration, connects the stores and loads
// the snapshots. The caller closes the returned app.
func openApp(ctx context.Context, logTo func(config.Config) (io.Writer, error)) (*app.App, config.Config, bool) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		fail("Failed to load configuration", err)
		return nil, cfg, false
	}
	if err := cfg.Validate(); err != nil {
		fail("Invalid configuration", err)
		return nil, cfg, false
	}
	w := deps.Stderr
	if logTo != nil {
		if w, err = logTo(cfg); err != nil {
			fail("Failed to open the log file", err)
			return nil, cfg, false
		}
	}
	a, err := deps.OpenApp(ctx, cfg, newLogger(w, cfg.LogLevel()))
	if err != nil {
		fail("Failed to open the task backend", err)
		return nil, cfg, false
	}
	if err := a.Refresh(ctx); err != nil {
		_ = a.Close()
		fail("Failed to load tasks", err)
		return nil, cfg, false
	}
	return a, cfg, true
}

// withApp runs fn against a freshly opened app and reports its error as action.
func withApp(action string, fn func(ctx context.Context, a *app.App) error) {
	ctx := context.Background()
	a, _, ok := openApp(ctx, nil)
	if !ok {
		return
	}
	defer a.Close()
	if err := fn(ctx, a); err != nil {
		fail("Failed to "+action, err)
	}
}

// logFile opens the configured log file for appending.
func logFile(cfg config.Config) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// runTUI opens the app with logs going to the log file and runs the terminal UI.
func runTUI() {
	ctx := context.Background()
	a, _, ok := openApp(ctx, logFile)
	if !ok {
		return
	}
	defer a.Close()
	if err := tui.Run(ctx, a); err != nil {
		fail("Failed to run the terminal UI", err)
	}
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

// parseDay accepts today, yesterday, tomorrow or a date timeutil.ParseDate understands.
func parseDay(s string, now time.Time) (time.Time, error) {
	today := timeutil.StartOfDay(now)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	return timeutil.ParseDate(strings.TrimSpace(s), now.Location())
}

func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
