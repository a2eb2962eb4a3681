// Package crosssec normalizes factors across same-day cohorts and combines
// them into the composite score. All statistics (quantiles, mean, std) are
// computed strictly within one date's cohort; nothing looks across dates.
package crosssec

import (
	"context"
	"math"
	"sort"
	"sync"

	"cn-alpha/internal/factor"
	"cn-alpha/internal/metrics"
	"cn-alpha/internal/model"
)

// Normalizer applies the configured winsorization, z-scoring and weighted
// combination.
type Normalizer struct {
	cfg Config
}

func NewNormalizer(cfg Config) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{cfg: cfg}, nil
}

// Process chains the normalization onto the factor graph. Still lazy: rows
// materialize only when the downstream consumer collects.
func (n *Normalizer) Process(g *factor.Graph) *Scored {
	return &Scored{graph: g, cfg: n.cfg}
}

// Scored is the deferred scored sequence. Collect evaluates the whole
// composed plan (factor graph included) exactly once.
type Scored struct {
	graph *factor.Graph
	cfg   Config

	once       sync.Once
	rows       []model.ScoredRow
	err        error
	degenerate int
}

// Collect forces evaluation; the result is memoized and shared.
func (s *Scored) Collect(ctx context.Context) ([]model.ScoredRow, error) {
	s.once.Do(func() {
		s.rows, s.err = s.evaluate(ctx)
	})
	return s.rows, s.err
}

// DegenerateCohorts reports how many date cohorts of size < 2 the evaluation
// saw. Zero until Collect has run.
func (s *Scored) DegenerateCohorts() int { return s.degenerate }

func (s *Scored) evaluate(ctx context.Context) ([]model.ScoredRow, error) {
	rows, err := s.graph.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Cohort index: date -> row positions, first-seen date order. Cohorts
	// are independent of each other, so a future parallel version can fan
	// out per date without changing results.
	cohorts := make(map[model.Date][]int)
	var dates []model.Date
	for i, r := range rows {
		if _, ok := cohorts[r.Date]; !ok {
			dates = append(dates, r.Date)
		}
		cohorts[r.Date] = append(cohorts[r.Date], i)
	}

	// Working columns per weighted factor, in weights order.
	cols := make([][]float64, len(s.cfg.Weights))
	for k, w := range s.cfg.Weights {
		col := make([]float64, len(rows))
		for i, r := range rows {
			v, _ := r.Factor(w.Factor)
			col[i] = v
		}
		cols[k] = col
	}

	winsorize := make(map[string]bool, len(s.cfg.Winsorize))
	for _, f := range s.cfg.Winsorize {
		winsorize[f] = true
	}

	for _, d := range dates {
		idx := cohorts[d]
		if len(idx) < 2 {
			s.degenerate++
			metrics.DegenerateCohorts.Inc()
		}
		for k, w := range s.cfg.Weights {
			if winsorize[w.Factor] {
				clipCohort(cols[k], idx)
			}
			standardizeCohort(cols[k], idx, s.cfg.Epsilon)
		}
	}

	out := make([]model.ScoredRow, len(rows))
	for i, r := range rows {
		z := make([]float64, len(cols))
		score := 0.0
		for k := range cols {
			z[k] = cols[k][i]
			score += s.cfg.Weights[k].Weight * z[k]
		}
		out[i] = model.ScoredRow{FactorRow: r, Z: z, Score: score}
	}
	return out, nil
}

// clipCohort winsorizes col at the cohort's 1st and 99th percentile.
// Null members neither contribute to the quantiles nor get clipped.
func clipCohort(col []float64, idx []int) {
	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		if !model.IsNull(col[i]) {
			vals = append(vals, col[i])
		}
	}
	if len(vals) == 0 {
		return
	}
	sort.Float64s(vals)
	lo := quantile(vals, 0.01)
	hi := quantile(vals, 0.99)
	for _, i := range idx {
		if model.IsNull(col[i]) {
			continue
		}
		if col[i] < lo {
			col[i] = lo
		} else if col[i] > hi {
			col[i] = hi
		}
	}
}

// quantile picks the nearest-rank element of sorted vals: index
// round(q*(n-1)). Same interpolation up and down the pipeline.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	i := int(math.Round(q * float64(len(sorted)-1)))
	return sorted[i]
}

// standardizeCohort replaces col values by their cohort z-score:
// z = (x - mean) / (std + eps), sample std over the cohort's non-null
// members. A cohort with fewer than 2 non-null members has std 0 and eps
// keeps the division finite (z = 0 there, since x equals the mean).
func standardizeCohort(col []float64, idx []int, eps float64) {
	var sum float64
	var n int
	for _, i := range idx {
		if !model.IsNull(col[i]) {
			sum += col[i]
			n++
		}
	}
	if n == 0 {
		return
	}
	mean := sum / float64(n)

	std := 0.0
	if n >= 2 {
		var sq float64
		for _, i := range idx {
			if !model.IsNull(col[i]) {
				d := col[i] - mean
				sq += d * d
			}
		}
		std = math.Sqrt(sq / float64(n-1))
	}

	for _, i := range idx {
		if model.IsNull(col[i]) {
			continue
		}
		col[i] = (col[i] - mean) / (std + eps)
	}
}
