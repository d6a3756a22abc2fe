package commands

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shiftmetrics/shift-insights/internal/report"
	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/shiftmetrics/shift-insights/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = "Date,Hour,Size,Paid Hours,Units\n" +
	"2024/03/05,6,Total,1.0,100\n" +
	"2024/03/05,7,Total,1.0,100\n"

func writeTestCookie(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cookie")
	content := ".portal.example.com\tTRUE\t/\tTRUE\t0\tmidway_session\tabc123\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600), "Setup: could not write cookie file")
	return path
}

func pullArgs(t *testing.T, baseURL, reportDir string, extra ...string) []string {
	t.Helper()

	missing := filepath.Join(t.TempDir(), "nonexistent")
	args := []string{
		"pull",
		"--site", "XYZ1",
		"--start", "2024-03-05 06:00",
		"--end", "2024-03-05 08:00",
		"--base-url", baseURL,
		"--cookie-file", writeTestCookie(t),
		"--report-dir", reportDir,
		"--schema", filepath.Join(missing, "processes.toml"),
		"--sites", filepath.Join(missing, "sites.ini"),
	}
	return append(args, extra...)
}

func TestPullWritesReport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testCSV)
	}))
	defer ts.Close()

	reportDir := filepath.Join(t.TempDir(), "reports")
	app, err := New()
	require.NoError(t, err, "Setup: could not create app")
	app.cmd.SetArgs(pullArgs(t, ts.URL+"/reports/", reportDir))

	require.NoError(t, app.Run(), "A healthy portal should make the pull succeed")

	path, err := report.Latest(reportDir)
	require.NoError(t, err)
	require.NotEmpty(t, path, "The run should have written a report")

	got, err := report.Load(path)
	require.NoError(t, err, "The written report should load back")
	assert.Equal(t, "XYZ1", got.Site)
	assert.Empty(t, got.Failed, "No process should have failed")
	assert.Len(t, got.Results, len(schema.New().Processes()), "Every known process should be reported")
	for _, res := range got.Results {
		assert.Equal(t, "exact", res.SourceStrategy, "%s should have been served from the exact window", res.Process)
		assert.InDelta(t, 2.0, res.Hours, 1e-9, "%s hours mismatch", res.Process)
	}
}

func TestPullCriticalProcessFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	reportDir := filepath.Join(t.TempDir(), "reports")
	app, err := New()
	require.NoError(t, err, "Setup: could not create app")
	app.cmd.SetArgs(pullArgs(t, ts.URL+"/reports/", reportDir,
		"--weeks-back", "0",
		"--critical", "Case Receive",
	))

	err = app.Run()
	require.Error(t, err, "A failed critical process should fail the run")
	assert.ErrorContains(t, err, "Case Receive")

	path, err := report.Latest(reportDir)
	require.NoError(t, err)
	require.NotEmpty(t, path, "The report should still be written on a critical failure")

	got, err := report.Load(path)
	require.NoError(t, err)
	assert.Contains(t, got.Failed, "Case Receive")
}

func TestPullRejectsBadWindows(t *testing.T) {
	tests := map[string]struct {
		start string
		end   string
	}{
		"End before start": {start: "2024-03-05 08:00", end: "2024-03-05 06:00"},
		"Unparsable start": {start: "sometime", end: "2024-03-05 08:00"},
		"Missing end":      {start: "2024-03-05 06:00", end: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			app, err := New()
			require.NoError(t, err, "Setup: could not create app")

			missing := filepath.Join(t.TempDir(), "nonexistent")
			args := []string{
				"pull",
				"--site", "XYZ1",
				"--cookie-file", writeTestCookie(t),
				"--schema", filepath.Join(missing, "processes.toml"),
				"--sites", filepath.Join(missing, "sites.ini"),
			}
			if tc.start != "" {
				args = append(args, "--start", tc.start)
			}
			if tc.end != "" {
				args = append(args, "--end", tc.end)
			}
			app.cmd.SetArgs(args)

			require.Error(t, app.Run(), "An unusable window should fail the pull")
		})
	}
}

func TestServeMetrics(t *testing.T) {
	app, err := New()
	require.NoError(t, err, "Setup: could not create app")

	reg := prometheus.NewRegistry()
	port := testutils.GetFreePort(t, "localhost")

	stop := app.serveMetrics(reg, port)
	defer stop()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/metrics", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "Metrics endpoint should come up")
}
