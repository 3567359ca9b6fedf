package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/export"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tasks and time entries to a file",
	Long: `Export every task with its time entries.

Formats:
  csv    one row per time entry
  json   tasks with nested entries
  yaml   tasks with nested entries

Examples:
  agileplus export --format csv
  agileplus export --format yaml --output tasks.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		exportTasks(format, output)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "csv", "csv, json or yaml")
	exportCmd.Flags().StringP("output", "o", "", "file to write (default agileplus-<date>.<format>)")
}

func exportTasks(format, output string) {
	f, err := export.ParseFormat(format)
	if err != nil {
		fail("Invalid export format", err)
		return
	}
	withApp("export tasks", func(ctx context.Context, a *app.App) error {
		path := output
		if path == "" {
			path = fmt.Sprintf("agileplus-%s.%s", timeutil.DayKey(a.Now()), f)
		}
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
			path += "." + string(f)
		}
		all := a.Tasks.Snapshot()
		if err := export.ToFile(f, all, path); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.Stdout, "Exported %d %s to %s\n", len(all), pluralize("task", len(all)), path)
		return nil
	})
}
