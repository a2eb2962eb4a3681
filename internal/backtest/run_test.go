package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cn-alpha/internal/model"
)

// staticScores is an in-memory ScoreSource.
type staticScores []model.ScoredRow

func (s staticScores) Collect(ctx context.Context) ([]model.ScoredRow, error) {
	return s, nil
}

func scoredRow(code, date string, score, nextRet float64) model.ScoredRow {
	return model.ScoredRow{
		FactorRow: model.FactorRow{
			Bar: model.Bar{
				Code: code,
				Date: model.MustDate(date),
			},
			NextRet: nextRet,
		},
		Score: score,
	}
}

func TestRankIsDeterministicOrdinal(t *testing.T) {
	rows := staticScores{
		scoredRow("000001", "2020-01-01", 1.0, 0),
		scoredRow("000002", "2020-01-01", 3.0, 0),
		scoredRow("000003", "2020-01-01", 2.0, 0),
		scoredRow("000004", "2020-01-01", 3.0, 0), // tie with 000002
		scoredRow("000005", "2020-01-01", 0.5, 0),
	}
	r, err := NewRunner(5)
	require.NoError(t, err)
	nav, _, err := r.Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, nav, 1)

	// Rank 1..5, descending score, first-seen order on ties: the earlier
	// 000002 outranks the tied 000004.
	assert.Equal(t, []string{"000002", "000004", "000003", "000001", "000005"}, nav[0].Codes)
	assert.Equal(t, int32(5), nav[0].StockCount)
}

func TestTopNSelection(t *testing.T) {
	rows := staticScores{
		scoredRow("000001", "2020-01-01", 1.0, 0.01),
		scoredRow("000002", "2020-01-01", 3.0, 0.03),
		scoredRow("000003", "2020-01-01", 2.0, 0.02),
	}
	r, err := NewRunner(2)
	require.NoError(t, err)
	nav, _, err := r.Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, nav, 1)

	assert.Equal(t, []string{"000002", "000003"}, nav[0].Codes)
	assert.InDelta(t, 0.025, nav[0].StrategyRet, 1e-9)
}

func TestFewerThanTopNSelectsAll(t *testing.T) {
	rows := staticScores{
		scoredRow("000001", "2020-01-01", 1.0, 0.02),
	}
	r, err := NewRunner(30)
	require.NoError(t, err)
	nav, _, err := r.Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, nav, 1)
	assert.Equal(t, int32(1), nav[0].StockCount)
	assert.InDelta(t, 0.02, nav[0].StrategyRet, 1e-9)
}

func TestNullScoresNeverSelected(t *testing.T) {
	rows := staticScores{
		scoredRow("000001", "2020-01-01", model.Null(), 0.99),
		scoredRow("000002", "2020-01-01", 1.0, 0.01),
	}
	r, err := NewRunner(2)
	require.NoError(t, err)
	nav, _, err := r.Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, nav, 1)
	assert.Equal(t, []string{"000002"}, nav[0].Codes)
}

func TestNullNextRetCountsAsZero(t *testing.T) {
	rows := staticScores{
		scoredRow("000001", "2020-01-01", 2.0, model.Null()),
		scoredRow("000002", "2020-01-01", 1.0, 0.10),
	}
	r, err := NewRunner(2)
	require.NoError(t, err)
	nav, _, err := r.Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, nav, 1)
	assert.Equal(t, int32(2), nav[0].StockCount)
	assert.InDelta(t, 0.05, nav[0].StrategyRet, 1e-9)
}

func TestRecordsSortedByDate(t *testing.T) {
	rows := staticScores{
		scoredRow("000001", "2020-01-03", 1.0, 0.02),
		scoredRow("000001", "2020-01-01", 1.0, 0.10),
		scoredRow("000001", "2020-01-02", 1.0, -0.05),
	}
	r, err := NewRunner(1)
	require.NoError(t, err)
	nav, _, err := r.Run(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, nav, 3)
	assert.Equal(t, "2020-01-01", nav[0].Date.String())
	assert.Equal(t, "2020-01-03", nav[2].Date.String())
}

func TestNavRoundTrip(t *testing.T) {
	records := []model.SelectionRecord{
		{Date: model.MustDate("2020-01-01"), StrategyRet: 0.10},
		{Date: model.MustDate("2020-01-02"), StrategyRet: -0.05},
		{Date: model.MustDate("2020-01-03"), StrategyRet: 0.02},
	}
	nav := Nav(records)
	require.Len(t, nav, 3)
	assert.InDelta(t, 1.10, nav[0].CumNav, 1e-9)
	assert.InDelta(t, 1.045, nav[1].CumNav, 1e-9)
	assert.InDelta(t, 1.0659, nav[2].CumNav, 1e-9)
}

func TestSummarize(t *testing.T) {
	records := []model.SelectionRecord{
		{Date: model.MustDate("2020-01-01"), StrategyRet: 0.10},
		{Date: model.MustDate("2020-01-02"), StrategyRet: -0.05},
		{Date: model.MustDate("2020-01-03"), StrategyRet: 0.02},
	}
	s := Summarize(Nav(records))
	assert.Equal(t, 3, s.Days)
	assert.InDelta(t, 0.0659, s.TotalReturn, 1e-9)
	assert.InDelta(t, 1.0659, s.FinalNav, 1e-9)
	// drawdown: trough 1.045 after peak 1.10
	assert.InDelta(t, 1.045/1.10-1, s.MaxDrawdown, 1e-9)
	assert.Greater(t, s.Sharpe, 0.0)
}

func TestSummarizeConstantReturnsHaveZeroSharpe(t *testing.T) {
	records := []model.SelectionRecord{
		{Date: model.MustDate("2020-01-01"), StrategyRet: 0.01},
		{Date: model.MustDate("2020-01-02"), StrategyRet: 0.01},
	}
	s := Summarize(Nav(records))
	assert.Equal(t, 0.0, s.Sharpe)
	assert.Equal(t, 0.0, s.MaxDrawdown, "monotone nav has no drawdown")
}

func TestEmptyScoredSequence(t *testing.T) {
	r, err := NewRunner(10)
	require.NoError(t, err)
	nav, s, err := r.Run(context.Background(), staticScores{})
	require.NoError(t, err)
	assert.Empty(t, nav)
	assert.Equal(t, Summary{}, s)
}

func TestRunnerRejectsNonPositiveTopN(t *testing.T) {
	_, err := NewRunner(0)
	assert.Error(t, err)
	_, err = NewRunner(-3)
	assert.Error(t, err)
}
