package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"cn-alpha/internal/metrics"
	"cn-alpha/internal/model"
	"cn-alpha/internal/slogx"
)

// Job is one fetch unit: a code and its date range.
type Job struct {
	Code string
	From model.Date
	To   model.Date
}

// jobResult is sent by workers for fan-in.
type jobResult struct {
	ok     bool
	code   string
	rng    string
	bars   []model.Bar
	reason string
}

// FailedEntry records one isolated per-code failure for the run report.
type FailedEntry struct {
	Code      string `json:"code"`
	DateRange string `json:"date_range"`
	Reason    string `json:"reason"`
}

// BatchReport summarizes one ingest batch.
type BatchReport struct {
	RunID    string        `json:"run_id"`
	Provider string        `json:"provider"`
	Jobs     int           `json:"jobs"`
	UpToDate int           `json:"up_to_date"`
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Bars     int           `json:"bars"`
	FailedBy []FailedEntry `json:"failed_by,omitempty"`
}

// BuildJobs computes one job per code. With maxDates (incremental mode) a
// code starts the day after its last observed date; codes already at or past
// `to` are skipped and counted. With nil maxDates every code gets the full
// [from, to] range.
func BuildJobs(codes []string, maxDates map[string]model.Date, from, to model.Date) (jobs []Job, upToDate int) {
	for _, code := range codes {
		start := from
		if last, ok := maxDates[code]; ok {
			if last >= to {
				upToDate++
				continue
			}
			start = last.AddDays(1)
		}
		jobs = append(jobs, Job{Code: code, From: start, To: to})
	}
	return jobs, upToDate
}

// Runner fetches a batch of jobs through a worker pool. Per-code failures
// are isolated: logged, counted, and the batch continues.
type Runner struct {
	Provider DataProvider
	Workers  int
}

func NewRunner(p DataProvider, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{Provider: p, Workers: workers}
}

// FetchBatch runs all jobs and returns the combined bars plus the report.
// Workers log through a fan-in channel logger so lines never interleave.
func (r *Runner) FetchBatch(ctx context.Context, jobs []Job) ([]model.Bar, BatchReport) {
	rep := BatchReport{
		RunID:    uuid.NewString(),
		Provider: r.Provider.GetName(),
		Jobs:     len(jobs),
	}
	if len(jobs) == 0 {
		return nil, rep
	}

	logs := make(chan string, 1024)
	logger := slogx.NewChanLogger(logs)
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		for line := range logs {
			slog.Info(line)
		}
	}()

	pending := make(chan Job, len(jobs))
	for _, j := range jobs {
		pending <- j
	}
	close(pending)

	results := make(chan jobResult, len(jobs))
	var wg sync.WaitGroup
	wg.Add(r.Workers)
	for w := 0; w < r.Workers; w++ {
		go func() {
			defer wg.Done()
			for job := range pending {
				if ctx.Err() != nil {
					return
				}
				bars, err := r.Provider.FetchDaily(ctx, job.Code, job.From, job.To)
				rng := job.From.String() + ".." + job.To.String()
				if err != nil {
					ferr := &FetchError{Code: job.Code, Err: err}
					logger.Error("fetch fail", "code", job.Code, "date_range", rng, "reason", err.Error())
					results <- jobResult{code: job.Code, rng: rng, reason: ferr.Error()}
					continue
				}
				logger.Info("fetch ok", "code", job.Code, "date_range", rng, "bars", len(bars))
				results <- jobResult{ok: true, code: job.Code, bars: bars}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var bars []model.Bar
	for res := range results {
		if res.ok {
			rep.Success++
			rep.Bars += len(res.bars)
			bars = append(bars, res.bars...)
			continue
		}
		rep.Failed++
		rep.FailedBy = append(rep.FailedBy, FailedEntry{Code: res.code, DateRange: res.rng, Reason: res.reason})
		metrics.SymbolsSkipped.Inc()
	}
	metrics.BarsIngested.Add(float64(rep.Bars))

	close(logs)
	logWg.Wait()

	slog.Info("fetch batch done",
		"run_id", rep.RunID, "success", rep.Success, "failed", rep.Failed, "bars", rep.Bars)
	return bars, rep
}
