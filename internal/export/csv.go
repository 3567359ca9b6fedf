package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

// ToCSV writes one row per time entry. Tasks without entries get a single row with
// empty entry columns.
func ToCSV(tasks []store.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Task ID", "Task", "Size", "Points", "Folder", "Completed", "Date", "Start", "Duration (s)", "Duration"}); err != nil {
		return err
	}

	for _, t := range tasks {
		base := []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			string(t.Size),
			strconv.Itoa(t.Points),
			t.Folder,
			strconv.FormatBool(t.Completed),
		}
		if len(t.TimeEntries) == 0 {
			if err := w.Write(append(base, "", "", "", "")); err != nil {
				return err
			}
			continue
		}
		for _, e := range t.TimeEntries {
			row := append(append([]string(nil), base...),
				e.Date,
				e.StartTime.Local().Format(time.RFC3339),
				strconv.FormatInt(e.Duration, 10),
				timeutil.FormatSeconds(e.Duration),
			)
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}
