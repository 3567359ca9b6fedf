package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

func ToJSON(tasks []store.Task, path string) error {
	data, err := json.MarshalIndent(buildDocument(tasks), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
