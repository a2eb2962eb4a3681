// Package backtest runs the daily top-N selection over scored rows and
// derives the strategy return series and its summary statistics.
package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"

	"cn-alpha/internal/model"
)

// tradingDaysPerYear annualizes returns and sharpe.
const tradingDaysPerYear = 252

// ScoreSource is the upstream lazy scored sequence. Run is the pipeline's
// single force-evaluation point.
type ScoreSource interface {
	Collect(ctx context.Context) ([]model.ScoredRow, error)
}

// Summary holds the run's performance statistics. Every field is 0 for an
// empty series; Sharpe is 0 when the return std is 0 or the series has at
// most one day.
type Summary struct {
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	FinalNav     float64 `json:"final_nav"`
	Days         int     `json:"days"`
}

// Runner performs the daily ranking, selection and aggregation.
type Runner struct {
	TopN int
}

func NewRunner(topN int) (*Runner, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("top_n must be positive, got %d", topN)
	}
	return &Runner{TopN: topN}, nil
}

// Run forces the scored sequence, selects the top-N symbols per date by
// descending score (ordinal tie-break: first-seen input order), aggregates
// realized next-period returns and computes NAV and summary statistics.
// An empty scored sequence returns empty records and a zero summary.
func (r *Runner) Run(ctx context.Context, src ScoreSource) ([]model.NavPoint, Summary, error) {
	rows, err := src.Collect(ctx)
	if err != nil {
		return nil, Summary{}, err
	}

	cohorts := make(map[model.Date][]int)
	var dates []model.Date
	for i, row := range rows {
		if model.IsNull(row.Score) {
			continue // unrankable, never selected
		}
		if _, ok := cohorts[row.Date]; !ok {
			dates = append(dates, row.Date)
		}
		cohorts[row.Date] = append(cohorts[row.Date], i)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	records := make([]model.SelectionRecord, 0, len(dates))
	for _, d := range dates {
		idx := cohorts[d]
		// Stable sort keeps the original row order on score ties, so rank
		// assignment is the deterministic ordinal of a descending sort.
		sort.SliceStable(idx, func(a, b int) bool {
			return rows[idx[a]].Score > rows[idx[b]].Score
		})
		sel := idx
		if len(sel) > r.TopN {
			sel = sel[:r.TopN]
		}

		var sum float64
		codes := make([]string, len(sel))
		for k, i := range sel {
			codes[k] = rows[i].Code
			if !model.IsNull(rows[i].NextRet) {
				sum += rows[i].NextRet // null next_ret counts as 0
			}
		}
		records = append(records, model.SelectionRecord{
			Date:        d,
			StrategyRet: sum / float64(len(sel)),
			StockCount:  int32(len(sel)),
			Codes:       codes,
		})
	}

	nav := Nav(records)
	return nav, Summarize(nav), nil
}

// Nav converts a date-ascending record series into NAV points:
// cum_nav[i] = prod(1 + strategy_ret[0..i]).
func Nav(records []model.SelectionRecord) []model.NavPoint {
	out := make([]model.NavPoint, len(records))
	cum := 1.0
	for i, rec := range records {
		cum *= 1 + rec.StrategyRet
		out[i] = model.NavPoint{SelectionRecord: rec, CumNav: cum}
	}
	return out
}

// Summarize computes the run statistics over a date-ascending NAV series.
func Summarize(nav []model.NavPoint) Summary {
	t := len(nav)
	if t == 0 {
		return Summary{}
	}
	final := nav[t-1].CumNav

	var sum float64
	for _, p := range nav {
		sum += p.StrategyRet
	}
	mean := sum / float64(t)

	sharpe := 0.0
	if t > 1 {
		var sq float64
		for _, p := range nav {
			d := p.StrategyRet - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(t-1))
		if std > 0 {
			sharpe = mean / std * math.Sqrt(tradingDaysPerYear)
		}
	}

	maxDD := 0.0
	runMax := math.Inf(-1)
	for _, p := range nav {
		if p.CumNav > runMax {
			runMax = p.CumNav
		}
		if dd := p.CumNav/runMax - 1; dd < maxDD {
			maxDD = dd
		}
	}

	return Summary{
		TotalReturn:  final - 1,
		AnnualReturn: math.Pow(final, tradingDaysPerYear/float64(t)) - 1,
		Sharpe:       sharpe,
		MaxDrawdown:  maxDD,
		FinalNav:     final,
		Days:         t,
	}
}
