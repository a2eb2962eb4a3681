package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"cn-alpha/internal/backtest"
	"cn-alpha/internal/model"
	"cn-alpha/internal/saver"
)

// runSummary is the JSON summary artifact: the statistics plus a run id.
type runSummary struct {
	RunID string `json:"run_id"`
	TopN  int    `json:"top_n"`
	backtest.Summary
}

// saveResults writes the three artifacts: the columnar results file, the
// human-readable nav curve and the JSON summary.
func saveResults(cfg *Config, navSaver saver.NavSaver, nav []model.NavPoint, summary backtest.Summary) error {
	if err := os.MkdirAll(cfg.ResultsDir(), 0755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	records := make([]model.SelectionRecord, len(nav))
	for i, p := range nav {
		records[i] = p.SelectionRecord
	}
	if err := parquet.WriteFile(cfg.ResultsPath(), records); err != nil {
		return fmt.Errorf("write backtest results: %w", err)
	}
	slog.Info("backtest results saved", "path", cfg.ResultsPath())

	navPath := cfg.NavPath(navSaver.Extension())
	if err := navSaver.Save(nav, navPath); err != nil {
		return fmt.Errorf("write nav curve: %w", err)
	}
	slog.Info("nav curve saved", "path", navPath)

	data, err := json.MarshalIndent(runSummary{
		RunID:   uuid.NewString(),
		TopN:    cfg.TopN,
		Summary: summary,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.SummaryPath(), data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	slog.Info("summary saved", "path", cfg.SummaryPath())
	return nil
}
