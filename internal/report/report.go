// Package report assembles and persists run reports: the normalized
// per-process results of one pull, plus enough metadata to audit how each
// number was obtained.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shiftmetrics/shift-insights/internal/constants"
	"github.com/shiftmetrics/shift-insights/internal/fileutils"
	"github.com/shiftmetrics/shift-insights/internal/rates"
	"github.com/shiftmetrics/shift-insights/internal/window"
)

var (
	// ErrInvalidReportExt is returned when a report file has an invalid extension.
	ErrInvalidReportExt = errors.New("invalid report file extension")

	// ErrInvalidReportName is returned when a report file name can't be parsed.
	ErrInvalidReportName = errors.New("invalid report file name")
)

// Report is the persisted output of one pull run.
type Report struct {
	RunID       string    `json:"runId"`
	Site        string    `json:"site"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	GeneratedAt time.Time `json:"generatedAt"`
	Duration    string    `json:"duration"`

	Results []rates.ProcessResult `json:"results"`
	Failed  []string              `json:"failed,omitempty"`
}

// New assembles a report for one run. Processes without data are listed under
// Failed in addition to carrying their NoData marker.
func New(site string, w window.Window, results []rates.ProcessResult, elapsed time.Duration) Report {
	r := Report{
		RunID:       uuid.NewString(),
		Site:        site,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		GeneratedAt: time.Now().UTC(),
		Duration:    elapsed.Round(time.Millisecond).String(),
		Results:     results,
	}
	for _, res := range results {
		if res.NoData {
			r.Failed = append(r.Failed, res.Process)
		}
	}
	return r
}

// Write persists the report atomically under dir, named by its generation
// timestamp, and returns the path written.
func (r Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("could not create report directory: %v", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not marshal report: %v", err)
	}

	path := filepath.Join(dir, strconv.FormatInt(r.GeneratedAt.Unix(), 10)+constants.ReportExtension)
	if err := fileutils.AtomicWrite(path, data); err != nil {
		return "", fmt.Errorf("could not write report: %v", err)
	}
	return path, nil
}

// Load reads a previously written report back from path.
func Load(path string) (Report, error) {
	if _, err := timestampOf(path); err != nil {
		return Report{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to open report file: %v", err)
	}
	defer f.Close()

	var r Report
	if err := fileutils.ParseJSON(f, &r); err != nil {
		return Report{}, err
	}
	return r, nil
}

// Latest returns the path of the most recent report under dir, or an empty
// string when the directory holds none. Non-report files are skipped.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read report directory: %v", err)
	}

	var latest string
	var latestTS int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, err := timestampOf(entry.Name())
		if err != nil {
			continue
		}
		if latest == "" || ts > latestTS {
			latest = filepath.Join(dir, entry.Name())
			latestTS = ts
		}
	}
	return latest, nil
}

// timestampOf parses the generation timestamp out of a report file name.
func timestampOf(path string) (int64, error) {
	name := filepath.Base(path)
	if filepath.Ext(name) != constants.ReportExtension {
		return 0, ErrInvalidReportExt
	}

	ts, err := strconv.ParseInt(strings.TrimSuffix(name, filepath.Ext(name)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidReportName, err)
	}
	return ts, nil
}
