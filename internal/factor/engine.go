// Package factor builds the per-symbol factor layer of the pipeline:
// a one-step-ahead return label plus rolling technical factors, computed
// strictly inside each symbol's own chronological sequence.
package factor

import (
	"context"
	"fmt"
	"math"
	"sync"

	"cn-alpha/internal/model"
)

// ComputationError means the source violated the engine's input contract
// (duplicate keys, unsorted partition, empty code). Fatal by design: silent
// wrong numbers are worse than a crash in a backtest.
type ComputationError struct {
	Reason string
}

func (e *ComputationError) Error() string {
	return "factor computation: " + e.Reason
}

// Source supplies the panel rows. The panel store satisfies this.
type Source interface {
	Bars() ([]model.Bar, error)
}

// Config holds the rolling windows. Windows must be >= 2; the volatility
// window is the slowest factor and drives the warm-up filter.
type Config struct {
	VolRatioWindow   int
	VolatilityWindow int
}

// DefaultConfig returns the reference windows: 5-day volume ratio,
// 20-day close volatility.
func DefaultConfig() Config {
	return Config{VolRatioWindow: 5, VolatilityWindow: 20}
}

func (c Config) validate() error {
	if c.VolRatioWindow < 2 || c.VolatilityWindow < 2 {
		return fmt.Errorf("rolling windows must be >= 2, got %d and %d", c.VolRatioWindow, c.VolatilityWindow)
	}
	if c.VolatilityWindow < c.VolRatioWindow {
		return fmt.Errorf("volatility window %d must not be shorter than vol ratio window %d (it drives the warm-up filter)", c.VolatilityWindow, c.VolRatioWindow)
	}
	return nil
}

// Engine builds lazy factor graphs.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Build records the plan over src. No rows are read and nothing is computed
// until a downstream consumer forces evaluation through Collect.
func (e *Engine) Build(src Source) *Graph {
	return &Graph{src: src, cfg: e.cfg}
}

// Graph is the deferred factor computation. Collect evaluates exactly once;
// repeated calls return the memoized result.
type Graph struct {
	src  Source
	cfg  Config
	once sync.Once
	rows []model.FactorRow
	err  error
}

// Collect forces evaluation. The returned slice is shared across callers and
// must be treated as read-only.
func (g *Graph) Collect(ctx context.Context) ([]model.FactorRow, error) {
	g.once.Do(func() {
		g.rows, g.err = g.evaluate(ctx)
	})
	return g.rows, g.err
}

func (g *Graph) evaluate(ctx context.Context) ([]model.FactorRow, error) {
	bars, err := g.src.Bars()
	if err != nil {
		return nil, fmt.Errorf("factor source: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parts, order, err := partitionIndex(bars)
	if err != nil {
		return nil, err
	}

	out := make([]model.FactorRow, 0, len(bars))
	for _, code := range order {
		idx := parts[code]
		rows, err := g.evaluatePartition(bars, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// evaluatePartition computes labels and rolling factors over one symbol's
// ordered rows, then drops the warm-up rows of the slowest window.
func (g *Graph) evaluatePartition(bars []model.Bar, idx []int) ([]model.FactorRow, error) {
	w1 := g.cfg.VolRatioWindow
	w2 := g.cfg.VolatilityWindow

	n := len(idx)
	kept := n - (w2 - 1)
	if kept < 0 {
		kept = 0
	}
	out := make([]model.FactorRow, 0, kept)

	var volSum float64            // rolling volume sum, window w1
	var closeSum, closeSq float64 // rolling close sum / sum of squares, window w2

	for i := 0; i < n; i++ {
		b := bars[idx[i]]
		r := model.FactorRow{
			Bar:        b,
			NextRet:    model.Null(),
			LogVol:     model.Null(),
			VolRatio:   model.Null(),
			Volatility: model.Null(),
		}

		// Label: next-period simple return, never crossing the symbol
		// boundary. Null on the symbol's last observed date.
		if i+1 < n {
			cur := float64(b.Close)
			next := float64(bars[idx[i+1]].Close)
			if cur != 0 {
				r.NextRet = (next - cur) / cur
			}
		}

		v := float64(b.Volume)
		if v > 0 {
			r.LogVol = math.Log(v)
		}

		volSum += v
		if i >= w1 {
			volSum -= float64(bars[idx[i-w1]].Volume)
		}
		if i >= w1-1 {
			mean := volSum / float64(w1)
			if mean != 0 {
				r.VolRatio = v / mean
			}
		}

		c := float64(b.Close)
		closeSum += c
		closeSq += c * c
		if i >= w2 {
			old := float64(bars[idx[i-w2]].Close)
			closeSum -= old
			closeSq -= old * old
		}
		if i >= w2-1 {
			r.Volatility = sampleStd(closeSum, closeSq, w2)
		}

		// Warm-up filter: the slowest rolling factor decides which rows the
		// cross-sectional stage ever sees.
		if !model.IsNull(r.Volatility) {
			out = append(out, r)
		}
	}
	return out, nil
}

// sampleStd computes the sample standard deviation (ddof=1) from running
// sum and sum of squares over a full window of size n.
func sampleStd(sum, sumSq float64, n int) float64 {
	variance := (sumSq - sum*sum/float64(n)) / float64(n-1)
	if variance < 0 { // float cancellation on near-constant series
		variance = 0
	}
	return math.Sqrt(variance)
}

// partitionIndex maps each code to its row indices in chronological order,
// preserving first-seen code order. Rows of one code must arrive with
// strictly increasing dates; anything else is a contract violation.
func partitionIndex(bars []model.Bar) (map[string][]int, []string, error) {
	parts := make(map[string][]int)
	var order []string
	for i, b := range bars {
		if b.Code == "" {
			return nil, nil, &ComputationError{Reason: fmt.Sprintf("row %d has empty code", i)}
		}
		idx := parts[b.Code]
		if len(idx) == 0 {
			order = append(order, b.Code)
		} else if last := bars[idx[len(idx)-1]]; b.Date <= last.Date {
			return nil, nil, &ComputationError{
				Reason: fmt.Sprintf("partition %s not strictly increasing: %s then %s", b.Code, last.Date, b.Date),
			}
		}
		parts[b.Code] = append(idx, i)
	}
	return parts, order, nil
}
