package report_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/rates"
	"github.com/shiftmetrics/shift-insights/internal/report"
	"github.com/shiftmetrics/shift-insights/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow(t *testing.T) window.Window {
	t.Helper()

	w, err := window.New(
		time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err, "Setup: could not create window")
	return w
}

func testResults() []rates.ProcessResult {
	return []rates.ProcessResult{
		{
			Process:        "Picking",
			Volumes:        map[string]float64{"Units": 240},
			Hours:          2,
			Rates:          map[string]float64{"Units": 120},
			SourceStrategy: "exact",
			Reconciliation: "pass through",
		},
		rates.NoData("Stowing"),
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	r := report.New("XYZ1", testWindow(t), testResults(), 1234567*time.Microsecond)

	assert.NotEmpty(t, r.RunID, "Each run should get its own ID")
	assert.Equal(t, "XYZ1", r.Site)
	assert.Equal(t, "1.235s", r.Duration, "Duration should round to milliseconds")
	assert.Equal(t, []string{"Stowing"}, r.Failed, "Processes without data should be listed as failed")
	assert.Len(t, r.Results, 2)

	other := report.New("XYZ1", testWindow(t), testResults(), time.Second)
	assert.NotEqual(t, r.RunID, other.RunID, "Run IDs should not repeat")
}

func TestWriteAndLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	r := report.New("XYZ1", testWindow(t), testResults(), time.Second)

	path, err := r.Write(dir)
	require.NoError(t, err, "Write should create the directory and the report")
	assert.Equal(t, ".json", filepath.Ext(path))

	got, err := report.Load(path)
	require.NoError(t, err, "Load should read back a written report")
	assert.Equal(t, r.RunID, got.RunID)
	assert.Equal(t, r.Failed, got.Failed)
	require.Len(t, got.Results, 2)
	assert.InDelta(t, 120.0, got.Results[0].Rates["Units"], 1e-9)
	assert.True(t, got.Results[1].NoData)
	assert.False(t, got.Results[1].HasRates(), "Failed processes should round-trip without rates")
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		name    string
		content string

		wantErr error
	}{
		"Wrong extension":  {name: "1709618400.csv", wantErr: report.ErrInvalidReportExt},
		"Unparsable name":  {name: "latest.json", wantErr: report.ErrInvalidReportName},
		"Invalid contents": {name: "1709618400.json", content: "not json"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tc.name)
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0600), "Setup: could not write file")

			_, err := report.Load(path)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "Load should reject the file by name")
				return
			}
			require.Error(t, err, "Load should reject unparsable contents")
		})
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	t.Run("Missing directory", func(t *testing.T) {
		t.Parallel()

		path, err := report.Latest(filepath.Join(t.TempDir(), "nonexistent"))
		require.NoError(t, err, "A missing directory should not be an error")
		assert.Empty(t, path, "A missing directory holds no reports")
	})

	t.Run("Picks newest and skips strays", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		for _, name := range []string{"1709618400.json", "1709704800.json", "notes.txt", "latest.json"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0600), "Setup: could not write file")
		}

		path, err := report.Latest(dir)
		require.NoError(t, err, "Latest should succeed")
		assert.Equal(t, filepath.Join(dir, "1709704800.json"), path, "Latest should pick the newest timestamped report")
	})
}
