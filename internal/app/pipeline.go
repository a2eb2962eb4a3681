package app

import (
	"context"
	"fmt"
	"log/slog"

	"cn-alpha/internal/backtest"
	"cn-alpha/internal/crosssec"
	"cn-alpha/internal/factor"
	"cn-alpha/internal/ingest"
	"cn-alpha/internal/model"
	"cn-alpha/internal/panel"
	"cn-alpha/internal/saver"
)

// App bundles the pipeline's dependencies, built by Wire in cmd.
type App struct {
	Config   *Config
	Store    *panel.Store
	Provider ingest.DataProvider
	NavSaver saver.NavSaver
}

// RunPipeline executes the four stages: optional ingest, factor graph,
// cross-sectional scoring, selection backtest. Stages 2-4 compose one lazy
// plan that the backtester forces exactly once.
func RunPipeline(ctx context.Context, a *App) error {
	cfg := a.Config

	// Step 1: data. A missing panel forces a full fetch regardless of
	// UPDATE_DATA, since nothing downstream can run without it.
	mode := cfg.UpdateMode
	fetch := cfg.UpdateData
	if !a.Store.Exists() {
		slog.Warn("panel file missing, running full fetch", "path", a.Store.Path)
		fetch, mode = true, "full"
	}
	if fetch {
		if err := runIngest(ctx, a, mode); err != nil {
			return err
		}
	}

	// Step 2: factor graph (lazy, no rows read yet).
	engine, err := factor.NewEngine(factor.DefaultConfig())
	if err != nil {
		return err
	}
	graph := engine.Build(a.Store)
	slog.Info("factor graph built", "factors", model.FactorNames)

	// Step 3: cross-sectional scoring (still lazy).
	csCfg := crosssec.DefaultConfig()
	if cfg.WeightsFile != "" {
		if csCfg, err = crosssec.LoadConfig(cfg.WeightsFile); err != nil {
			return err
		}
	}
	norm, err := crosssec.NewNormalizer(csCfg)
	if err != nil {
		return err
	}
	scored := norm.Process(graph)
	slog.Info("cross-section stage ready", "weights", csCfg.Weights, "winsorize", csCfg.Winsorize)

	// Step 4: backtest; Run is the single collect boundary.
	runner, err := backtest.NewRunner(cfg.TopN)
	if err != nil {
		return err
	}
	slog.Info("selecting top ranked symbols per day", "top_n", cfg.TopN)
	nav, summary, err := runner.Run(ctx, scored)
	if err != nil {
		return err
	}

	slog.Info("backtest summary",
		"days", summary.Days,
		"total_return", fmt.Sprintf("%.2f%%", summary.TotalReturn*100),
		"annual_return", fmt.Sprintf("%.2f%%", summary.AnnualReturn*100),
		"sharpe", fmt.Sprintf("%.2f", summary.Sharpe),
		"max_drawdown", fmt.Sprintf("%.2f%%", summary.MaxDrawdown*100),
		"final_nav", fmt.Sprintf("%.4f", summary.FinalNav),
		"degenerate_cohorts", scored.DegenerateCohorts(),
	)

	if cfg.SaveResults {
		if err := saveResults(cfg, a.NavSaver, nav, summary); err != nil {
			return err
		}
	}
	return nil
}

// runIngest fetches new bars and merges them into the panel. Incremental
// mode fetches strictly after each code's last observed date; full mode
// rebuilds the panel from the configured range (the explicit operator
// instruction the store's Rebuild requires).
func runIngest(ctx context.Context, a *App, mode string) error {
	cfg := a.Config
	if cfg.CodesFile == "" {
		return fmt.Errorf("CODES_FILE must be set when fetching data")
	}
	codes, err := ingest.LoadCodes(cfg.CodesFile)
	if err != nil {
		return err
	}
	slog.Info("got codes", "count", len(codes), "mode", mode)

	var maxDates map[string]model.Date
	if mode == "incremental" {
		p, err := a.Store.Load()
		if err != nil {
			// Unreadable store is fatal here; only UPDATE_MODE=full may
			// rebuild over it.
			return err
		}
		maxDates = p.MaxDates()
	}

	jobs, upToDate := ingest.BuildJobs(codes, maxDates, cfg.Start(), cfg.End())
	if upToDate > 0 {
		slog.Info("codes already up to date", "count", upToDate)
	}
	if len(jobs) == 0 {
		slog.Info("no fetch jobs, panel unchanged")
		return nil
	}

	runner := ingest.NewRunner(a.Provider, cfg.FetchWorkers)
	bars, rep := runner.FetchBatch(ctx, jobs)
	rep.UpToDate = upToDate
	if err := ingest.WriteReport(cfg.ResultsDir(), rep); err != nil {
		slog.Warn("could not write ingest report", "error", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(bars) == 0 {
		slog.Info("no new bars, panel unchanged")
		return nil
	}

	var p *panel.Panel
	if mode == "incremental" {
		p, err = a.Store.MergeIncremental(bars)
	} else {
		p, err = a.Store.Rebuild(bars)
	}
	if err != nil {
		return err
	}
	slog.Info("panel updated", "rows", p.Len(), "path", a.Store.Path)
	return nil
}
