package crosssec

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cn-alpha/internal/factor"
	"cn-alpha/internal/model"
)

// buildScored runs a tiny two-window factor graph over bars and chains cfg.
func buildScored(t *testing.T, bars []model.Bar, cfg Config) *Scored {
	t.Helper()
	e, err := factor.NewEngine(factor.Config{VolRatioWindow: 2, VolatilityWindow: 2})
	require.NoError(t, err)
	n, err := NewNormalizer(cfg)
	require.NoError(t, err)
	return n.Process(e.Build(barsSource(bars)))
}

type barsSource []model.Bar

func (s barsSource) Bars() ([]model.Bar, error) { return s, nil }

// cohortBars builds one symbol-per-row cohorts: for each date, len(turnovers)
// symbols. Every symbol gets two bars (one warm-up day plus the cohort day)
// so the factor stage keeps exactly one row per symbol.
func cohortBars(turnovers []float32) []model.Bar {
	day0 := model.MustDate("2020-01-01")
	var bars []model.Bar
	for i, to := range turnovers {
		code := string(rune('A' + i/26)) + string(rune('A'+i%26)) + "0001"
		bars = append(bars,
			model.Bar{Code: code, Date: day0, Close: 10, Volume: 100, Turnover: to},
			model.Bar{Code: code, Date: day0.AddDays(1), Close: 10, Volume: 100, Turnover: to},
		)
	}
	return bars
}

func weightsOn(factorName string) Config {
	return Config{
		Weights: []FactorWeight{{Factor: factorName, Weight: 1}},
		Epsilon: 1e-6,
	}
}

func TestZScoreWithinCohort(t *testing.T) {
	// cohort turnovers 1, 2, 3: mean 2, sample std 1
	scored := buildScored(t, cohortBars([]float32{1, 2, 3}), weightsOn(model.FactorTurnover))
	rows, err := scored.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.InDelta(t, -1, rows[0].Score, 1e-5)
	assert.InDelta(t, 0, rows[1].Score, 1e-5)
	assert.InDelta(t, 1, rows[2].Score, 1e-5)
}

func TestCohortOfOneGetsZeroZ(t *testing.T) {
	scored := buildScored(t, cohortBars([]float32{5}), weightsOn(model.FactorTurnover))
	rows, err := scored.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.False(t, math.IsNaN(rows[0].Score))
	require.False(t, math.IsInf(rows[0].Score, 0))
	assert.InDelta(t, 0, rows[0].Score, 1e-9)
	assert.Equal(t, 1, scored.DegenerateCohorts())
}

func TestStatsNeverCrossDates(t *testing.T) {
	// Two dates with disjoint turnover scales. If cohorts leaked across
	// dates, day one's z-scores would all be negative.
	day0 := model.MustDate("2020-01-01")
	var bars []model.Bar
	mk := func(code string, turnovers ...float32) {
		for i, to := range turnovers {
			bars = append(bars, model.Bar{
				Code: code, Date: day0.AddDays(i), Close: 10, Volume: 100, Turnover: to,
			})
		}
	}
	mk("000001", 1, 1, 100)
	mk("000002", 1, 2, 200)
	mk("000003", 1, 3, 300)

	scored := buildScored(t, bars, weightsOn(model.FactorTurnover))
	rows, err := scored.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 6) // 3 symbols x dates 2,3

	byDate := map[model.Date][]float64{}
	for _, r := range rows {
		byDate[r.Date] = append(byDate[r.Date], r.Score)
	}
	for d, scores := range byDate {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		assert.InDelta(t, 0, sum, 1e-5, "cohort %s z-scores must center on zero", d)
	}
}

func TestWinsorizeClipsTails(t *testing.T) {
	// 101 values 0..100: nearest-rank q01 = 1, q99 = 99.
	vals := make([]float32, 101)
	for i := range vals {
		vals[i] = float32(i)
	}
	cfg := weightsOn(model.FactorTurnover)
	cfg.Winsorize = []string{model.FactorTurnover}

	clipped := buildScored(t, cohortBars(vals), cfg)
	rows, err := clipped.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 101)

	plain := buildScored(t, cohortBars(vals), weightsOn(model.FactorTurnover))
	plainRows, err := plain.Collect(context.Background())
	require.NoError(t, err)

	// Once the tails clip to the bounds, the extreme scores collapse onto
	// their neighbors: turnover 0 becomes 1, turnover 100 becomes 99.
	assert.InDelta(t, rows[0].Score, rows[1].Score, 1e-9)
	assert.InDelta(t, rows[100].Score, rows[99].Score, 1e-9)
	// without winsorization the tails differ
	assert.Greater(t, math.Abs(plainRows[0].Score-plainRows[1].Score), 1e-6)
	assert.Greater(t, math.Abs(plainRows[100].Score-plainRows[99].Score), 1e-6)
}

func TestNullFactorPropagatesWithoutPoisoningCohort(t *testing.T) {
	// Zero volume makes log-vol null for one symbol; its score is null but
	// the rest of the cohort still standardizes over the valid members.
	day0 := model.MustDate("2020-01-01")
	var bars []model.Bar
	mk := func(code string, vol float32) {
		bars = append(bars,
			model.Bar{Code: code, Date: day0, Close: 10, Volume: 50, Turnover: 1},
			model.Bar{Code: code, Date: day0.AddDays(1), Close: 10, Volume: vol, Turnover: 1},
		)
	}
	mk("000001", 0) // log null on cohort day
	mk("000002", 100)
	mk("000003", 200)

	scored := buildScored(t, bars, weightsOn(model.FactorLogVol))
	rows, err := scored.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, model.IsNull(rows[0].Score))
	assert.False(t, model.IsNull(rows[1].Score))
	assert.False(t, model.IsNull(rows[2].Score))
	// two valid members, symmetric z
	assert.InDelta(t, -rows[2].Score, rows[1].Score, 1e-5)
}

func TestConfigValidate(t *testing.T) {
	def := DefaultConfig()
	require.NoError(t, def.Validate())

	bad := def
	bad.Weights = append([]FactorWeight{}, def.Weights...)
	bad.Weights[0].Factor = "factor_bogus"
	assert.Error(t, bad.Validate())

	bad = def
	bad.Epsilon = 0
	assert.Error(t, bad.Validate())

	assert.Error(t, Config{Epsilon: 1e-6}.Validate(), "empty weights")
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	data := `
winsorize:
  - factor_vol_ratio
weights:
  - factor: factor_vol_ratio
    weight: 0.7
  - factor: factor_log_vol
    weight: 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{model.FactorVolRatio}, cfg.Winsorize)
	require.Len(t, cfg.Weights, 2)
	assert.Equal(t, 0.7, cfg.Weights[0].Weight)
	assert.Equal(t, 1e-6, cfg.Epsilon)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
