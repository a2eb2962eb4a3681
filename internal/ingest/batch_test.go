package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cn-alpha/internal/model"
)

// mockProvider serves canned bars per code; codes in fail error out.
type mockProvider struct {
	bars map[string][]model.Bar
	fail map[string]bool
}

func (m *mockProvider) GetName() string { return "mock" }
func (m *mockProvider) Close() error    { return nil }

func (m *mockProvider) FetchDaily(ctx context.Context, code string, from, to model.Date) ([]model.Bar, error) {
	if m.fail[code] {
		return nil, fmt.Errorf("simulated outage")
	}
	return m.bars[code], nil
}

func TestBuildJobsFullMode(t *testing.T) {
	from, to := model.MustDate("2020-01-01"), model.MustDate("2020-06-30")
	jobs, upToDate := BuildJobs([]string{"000001", "600000"}, nil, from, to)
	assert.Equal(t, 0, upToDate)
	require.Len(t, jobs, 2)
	assert.Equal(t, Job{Code: "000001", From: from, To: to}, jobs[0])
}

func TestBuildJobsIncremental(t *testing.T) {
	from, to := model.MustDate("2020-01-01"), model.MustDate("2020-06-30")
	maxDates := map[string]model.Date{
		"000001": model.MustDate("2020-03-15"), // behind: fetch the gap
		"600000": to,                           // current: skip
	}
	jobs, upToDate := BuildJobs([]string{"000001", "600000", "300750"}, maxDates, from, to)
	assert.Equal(t, 1, upToDate)
	require.Len(t, jobs, 2)
	// gap starts the day after the last observed date
	assert.Equal(t, model.MustDate("2020-03-16"), jobs[0].From)
	// unseen code gets the full range
	assert.Equal(t, from, jobs[1].From)
}

func TestFetchBatchIsolatesFailures(t *testing.T) {
	day := model.MustDate("2020-01-02")
	p := &mockProvider{
		bars: map[string][]model.Bar{
			"000001": {{Code: "000001", Date: day, Close: 1}},
			"600000": {{Code: "600000", Date: day, Close: 2}},
		},
		fail: map[string]bool{"000002": true},
	}
	r := NewRunner(p, 3)

	from, to := model.MustDate("2020-01-01"), model.MustDate("2020-01-31")
	jobs, _ := BuildJobs([]string{"000001", "000002", "600000"}, nil, from, to)
	bars, rep := r.FetchBatch(context.Background(), jobs)

	assert.Equal(t, 2, rep.Success)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Bars)
	assert.Len(t, bars, 2)
	require.Len(t, rep.FailedBy, 1)
	assert.Equal(t, "000002", rep.FailedBy[0].Code)
	assert.Contains(t, rep.FailedBy[0].Reason, "simulated outage")
	assert.NotEmpty(t, rep.RunID)
}

func TestFetchBatchEmptyJobs(t *testing.T) {
	r := NewRunner(&mockProvider{}, 2)
	bars, rep := r.FetchBatch(context.Background(), nil)
	assert.Empty(t, bars)
	assert.Equal(t, 0, rep.Jobs)
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	rep := BatchReport{RunID: "test-run", Provider: "mock", Jobs: 3, Success: 2, Failed: 1}
	require.NoError(t, WriteReport(dir, rep))

	data, err := os.ReadFile(filepath.Join(dir, reportFile))
	require.NoError(t, err)
	var got BatchReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, rep, got)
}

func TestLoadCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")
	require.NoError(t, os.WriteFile(path, []byte("# A-share universe\n000001\n\n600000\n"), 0644))

	codes, err := LoadCodes(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001", "600000"}, codes)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n# nothing\n"), 0644))
	_, err = LoadCodes(empty)
	assert.Error(t, err)
}
