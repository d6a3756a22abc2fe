package reconcile_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/metrictable"
	"github.com/shiftmetrics/shift-insights/internal/reconcile"
	"github.com/shiftmetrics/shift-insights/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRoles struct{}

func (testRoles) IsTimeAnchor(field string) bool {
	return strings.Contains(strings.ToLower(field), "date")
}

func (testRoles) IsVolume(field string) bool {
	return strings.Contains(strings.ToLower(field), "units")
}

func (testRoles) IsHours(field string) bool {
	return strings.Contains(strings.ToLower(field), "hours")
}

var shiftStart = time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)

func twoHourWindow(t *testing.T) window.Window {
	t.Helper()
	w, err := window.New(shiftStart, shiftStart.Add(2*time.Hour))
	require.NoError(t, err, "Setup: requested window")
	return w
}

func parseTable(t *testing.T, body string) *metrictable.Table {
	t.Helper()
	table, err := metrictable.Parse([]byte(body), testRoles{})
	require.NoError(t, err, "Setup: parse table")
	return table
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body string

		wantActual float64
	}{
		"Hours column sum": {
			body:       "Size,Units,Hours\nSmall,100,10\nLarge,50,14\n",
			wantActual: 24,
		},
		"Anchor span when no hours column": {
			body:       "Date,Units\n2025-06-30 08:00,10\n2025-06-30 20:00,20\n",
			wantActual: 12,
		},
		"Zero hours and no anchors": {
			body:       "Size,Units\nSmall,10\n",
			wantActual: 0,
		},
		"Degenerate zero-valued hours falls back to anchors": {
			body:       "Date,Units,Hours\n2025-06-30 08:00,10,0\n2025-06-30 14:00,20,0\n",
			wantActual: 6,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cov := reconcile.Estimate(parseTable(t, tc.body), twoHourWindow(t))
			assert.InDelta(t, tc.wantActual, cov.ActualHours, 1e-9)
			assert.InDelta(t, 2.0, cov.RequestedHours, 1e-9)
		})
	}
}

// Scenario: a 2 hour request answered with a 24 hour table and no per-row
// timestamps must be scaled, not taken at face value.
func TestReconcileScalesWithoutAnchors(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("Size,Units,Hours\n")
	for i := 0; i < 24; i++ {
		sb.WriteString(fmt.Sprintf("Small,%d,1\n", 1700))
	}
	table := parseTable(t, sb.String())

	res := reconcile.New().Reconcile(table, twoHourWindow(t))

	require.Equal(t, reconcile.ProportionalScale, res.Kind)
	assert.InDelta(t, 2.0/24.0, res.Factor, 1e-9)
	assert.Len(t, res.Table.Rows, 24, "scaling keeps every row")
	assert.InDelta(t, 3400.0, res.Table.Sum("Units"), 1e-6)
	assert.InDelta(t, 2.0, res.Table.Sum("Hours"), 1e-6)
	assert.InDelta(t, 40800.0, table.Sum("Units"), 1e-6, "input table is not mutated")
}

// Scenario: the same over-covering answer with reliable per-row timestamps is
// filtered exactly instead of scaled.
func TestReconcilePrefersExactFilter(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("Date,Units,Hours\n")
	for i := 0; i < 24; i++ {
		sb.WriteString(fmt.Sprintf("%s,%d,1\n", shiftStart.Add(time.Duration(i-8)*time.Hour).Format("2006-01-02 15:04"), 100*(i+1)))
	}
	table := parseTable(t, sb.String())

	res := reconcile.New().Reconcile(table, twoHourWindow(t))

	require.Equal(t, reconcile.ExactFilter, res.Kind)
	assert.Equal(t, 1.0, res.Factor)
	require.Len(t, res.Table.Rows, 2, "exactly the rows in [start, end)")
	// Rows at offsets 8 and 9 fall inside [08:00, 10:00).
	assert.InDelta(t, 900.0, res.Table.Rows[0][1].Num, 1e-9)
	assert.InDelta(t, 1000.0, res.Table.Rows[1][1].Num, 1e-9)
}

func TestReconcilePassThroughWithinTolerance(t *testing.T) {
	t.Parallel()

	// 2.4 hours of coverage for a 2 hour request is within the 1.25 factor.
	table := parseTable(t, "Size,Units,Hours\nSmall,100,2.4\n")

	res := reconcile.New().Reconcile(table, twoHourWindow(t))

	require.Equal(t, reconcile.PassThrough, res.Kind)
	assert.Equal(t, 1.0, res.Factor)
	assert.Same(t, table, res.Table)
}

func TestReconcileZeroHoursNeverScales(t *testing.T) {
	t.Parallel()

	table := parseTable(t, "Size,Units\nSmall,9000\n")

	res := reconcile.New().Reconcile(table, twoHourWindow(t))

	require.Equal(t, reconcile.PassThrough, res.Kind, "scaling by an undefined factor is refused")
	assert.InDelta(t, 9000.0, res.Table.Sum("Units"), 1e-9)
}

func TestReconcileUnderCoverageScalesUp(t *testing.T) {
	t.Parallel()

	// With a sub-1 tolerance configured, 1.2 hours of coverage against a
	// 2 hour request is reconciled upward: the factor exceeds 1.
	table := parseTable(t, "Size,Units,Hours\nSmall,600,1.2\n")

	res := reconcile.New(reconcile.WithTolerance(0.5)).Reconcile(table, twoHourWindow(t))

	require.Equal(t, reconcile.ProportionalScale, res.Kind)
	assert.InDelta(t, 2.0/1.2, res.Factor, 1e-9)
	assert.Greater(t, res.Factor, 1.0)
	assert.InDelta(t, 1000.0, res.Table.Sum("Units"), 1e-6)
}

func TestReconcileFilterEmptyFallsBackToScaling(t *testing.T) {
	t.Parallel()

	// All anchors are outside the requested window: exact filtering would
	// produce an empty table, so scaling takes over.
	body := "Date,Units,Hours\n2025-06-29 08:00,1200,12\n2025-06-29 20:00,1200,12\n"
	table := parseTable(t, body)

	res := reconcile.New().Reconcile(table, twoHourWindow(t))

	require.Equal(t, reconcile.ProportionalScale, res.Kind)
	assert.InDelta(t, 2.0/24.0, res.Factor, 1e-9)
	assert.Len(t, res.Table.Rows, 2)
}

func TestReconcileFilterUsesSiteLocalAnchors(t *testing.T) {
	t.Parallel()

	// Report timestamps are site wall clock. With the window in a non-UTC
	// zone, rows matching the local [08:00, 10:00) shift must be kept even
	// though their naive UTC parse lies outside the window instants.
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err, "Setup: load location")
	start := time.Date(2025, 6, 30, 8, 0, 0, 0, loc)
	w, err := window.New(start, start.Add(2*time.Hour))
	require.NoError(t, err, "Setup: requested window")

	var sb strings.Builder
	sb.WriteString("Date,Units,Hours\n")
	for i := 0; i < 24; i++ {
		sb.WriteString(fmt.Sprintf("2025-06-30 %02d:00,100,1\n", i))
	}
	table := parseTable(t, sb.String())

	res := reconcile.New().Reconcile(table, w)

	require.Equal(t, reconcile.ExactFilter, res.Kind)
	assert.Len(t, res.Table.Rows, 2, "the 08:00 and 09:00 local rows")
	assert.InDelta(t, 200.0, res.Table.Sum("Units"), 1e-9)
}

func TestReconcileToleranceConfigurable(t *testing.T) {
	t.Parallel()

	table := parseTable(t, "Size,Units,Hours\nSmall,100,3\n")
	w := twoHourWindow(t)

	strict := reconcile.New(reconcile.WithTolerance(1.0)).Reconcile(table, w)
	lax := reconcile.New(reconcile.WithTolerance(2.0)).Reconcile(table, w)

	assert.Equal(t, reconcile.ProportionalScale, strict.Kind)
	assert.Equal(t, reconcile.PassThrough, lax.Kind)
}
