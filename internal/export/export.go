// Package export writes tasks and their time entries to CSV, JSON or YAML files.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q (use csv, json or yaml)", s)
}

// ToFile writes tasks to path in the given format.
func ToFile(f Format, tasks []store.Task, path string) error {
	switch f {
	case FormatCSV:
		return ToCSV(tasks, path)
	case FormatJSON:
		return ToJSON(tasks, path)
	case FormatYAML:
		return ToYAML(tasks, path)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// document is the shared shape of the JSON and YAML exports.
type document struct {
	ExportedAt   string         `json:"exported_at" yaml:"exported_at"`
	Count        int            `json:"count" yaml:"count"`
	TotalSeconds int64          `json:"total_seconds" yaml:"total_seconds"`
	Tasks        []exportedTask `json:"tasks" yaml:"tasks"`
}

type exportedTask struct {
	ID          int64           `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Size        store.Size      `json:"size" yaml:"size"`
	Points      int             `json:"points" yaml:"points"`
	Priority    string          `json:"priority,omitempty" yaml:"priority,omitempty"`
	Folder      string          `json:"folder,omitempty" yaml:"folder,omitempty"`
	DueDate     string          `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Completed   bool            `json:"completed" yaml:"completed"`
	CompletedAt string          `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CreatedAt   string          `json:"created_at" yaml:"created_at"`
	Tracked     string          `json:"tracked" yaml:"tracked"`
	Entries     []exportedEntry `json:"entries" yaml:"entries"`
}

type exportedEntry struct {
	ID          int64  `json:"id" yaml:"id"`
	Date        string `json:"date" yaml:"date"`
	StartTime   string `json:"start_time" yaml:"start_time"`
	DurationSec int64  `json:"duration_seconds" yaml:"duration_seconds"`
	Duration    string `json:"duration" yaml:"duration"`
}

func formatOptional(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(layout)
}

func buildDocument(tasks []store.Task) document {
	doc := document{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(tasks),
		Tasks:      make([]exportedTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		et := exportedTask{
			ID:          t.ID,
			Title:       t.Title,
			Size:        t.Size,
			Points:      t.Points,
			Priority:    string(t.Priority),
			Folder:      t.Folder,
			DueDate:     formatOptional(t.DueDate, timeutil.DayLayout),
			Completed:   t.Completed,
			CompletedAt: formatOptional(t.CompletedAt, time.RFC3339),
			CreatedAt:   t.CreatedAt.Local().Format(time.RFC3339),
			Tracked:     timeutil.FormatSeconds(t.TotalSeconds()),
			Entries:     make([]exportedEntry, 0, len(t.TimeEntries)),
		}
		for _, e := range t.TimeEntries {
			et.Entries = append(et.Entries, exportedEntry{
				ID:          e.ID,
				Date:        e.Date,
				StartTime:   e.StartTime.Local().Format(time.RFC3339),
				DurationSec: e.Duration,
				Duration:    timeutil.FormatSeconds(e.Duration),
			})
		}
		doc.TotalSeconds += t.TotalSeconds()
		doc.Tasks = append(doc.Tasks, et)
	}
	return doc
}
