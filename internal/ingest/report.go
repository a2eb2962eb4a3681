package ingest

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

const reportFile = ".lastrun.report.json"

// WriteReport persists the batch report next to the panel data so operators
// can see which codes were skipped and why.
func WriteReport(dir string, rep BatchReport) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	p := filepath.Join(dir, reportFile)
	if err := os.WriteFile(p, data, 0644); err != nil {
		return err
	}
	slog.Info("ingest report saved", "path", p, "success", rep.Success, "failed", rep.Failed)
	return nil
}
