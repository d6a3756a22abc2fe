package metrictable_test

import (
	"testing"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/metrictable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, body string) *metrictable.Table {
	t.Helper()
	table, err := metrictable.Parse([]byte(body), testRoles{})
	require.NoError(t, err, "Setup: parse test table")
	return table
}

func TestSum(t *testing.T) {
	t.Parallel()

	table := mustParse(t, "Size,Units,Paid Hours\nSmall,100,2\nLarge,50,1.5\nTotal,150,3.5\n")

	assert.InDelta(t, 300.0, table.Sum("Units"), 1e-9)
	assert.InDelta(t, 7.0, table.Sum("paid hours"), 1e-9, "field lookup is case-insensitive")
	assert.Zero(t, table.Sum("No Such Field"))
}

func TestSumWhere(t *testing.T) {
	t.Parallel()

	table := mustParse(t, "Size,Unit Type,Units\nTotal,Case,100\nTotal,EACH,40\nSmall,Case,60\n")

	tests := map[string]struct {
		conds []metrictable.Condition

		want float64
	}{
		"Single condition": {
			conds: []metrictable.Condition{{Field: "Size", Equals: []string{"Total"}}},
			want:  140,
		},
		"Two conditions": {
			conds: []metrictable.Condition{
				{Field: "Size", Equals: []string{"Total"}},
				{Field: "Unit Type", Equals: []string{"Case"}},
			},
			want: 100,
		},
		"Case-insensitive value match": {
			conds: []metrictable.Condition{{Field: "Unit Type", Equals: []string{"each"}}},
			want:  40,
		},
		"Value list has OR semantics": {
			conds: []metrictable.Condition{{Field: "Size", Equals: []string{"Small", "Large"}}},
			want:  60,
		},
		"Unknown condition field matches nothing": {
			conds: []metrictable.Condition{{Field: "Ghost", Equals: []string{"x"}}},
			want:  0,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, table.SumWhere("Units", tc.conds), 1e-9)
		})
	}
}

func TestScale(t *testing.T) {
	t.Parallel()

	table := mustParse(t, "Size,Units,Paid Hours,UPH\nSmall,1200,12,100\nLarge,600,12,50\n")

	table.Scale(1.0 / 12.0)

	assert.Len(t, table.Rows, 2, "scaling never changes row count")
	assert.InDelta(t, 150.0, table.Sum("Units"), 1e-6)
	assert.InDelta(t, 2.0, table.Sum("Paid Hours"), 1e-6)
	// UPH is neither a volume nor an hours field: untouched.
	assert.InDelta(t, 150.0, table.Sum("UPH"), 1e-9)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	table := mustParse(t, "Size,Units\nSmall,1\nLarge,2\nSmall,3\n")

	small := table.Filter(func(row metrictable.Row) bool { return row[0].Raw == "Small" })

	assert.Len(t, small.Rows, 2)
	assert.Len(t, table.Rows, 3, "original table unchanged")
	assert.Equal(t, table.Fields, small.Fields)
}

func TestAppend(t *testing.T) {
	t.Parallel()

	a := mustParse(t, "Size,Units\nSmall,1\n")
	b := mustParse(t, "size , units\nLarge,2\n")
	c := mustParse(t, "Size,Units,Extra\nSmall,1,x\n")

	require.NoError(t, a.Append(b), "matching schema up to case and spacing merges")
	assert.Len(t, a.Rows, 2)

	require.Error(t, a.Append(c), "field count mismatch is rejected")
}

func TestAnchorTimes(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body string

		want    []time.Time
		wantOK  bool
	}{
		"Single datetime column": {
			body: "DateTime,Units\n2025-06-30 08:00,10\n2025-06-30 09:30,20\n",
			want: []time.Time{
				time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC),
				time.Date(2025, 6, 30, 9, 30, 0, 0, time.UTC),
			},
			wantOK: true,
		},
		"Date plus hour column": {
			body: "Date,Hour of Day,Units\n2025-06-30,8,10\n2025-06-30,14,20\n",
			want: []time.Time{
				time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC),
				time.Date(2025, 6, 30, 14, 0, 0, 0, time.UTC),
			},
			wantOK: true,
		},
		"One bad anchor poisons the column": {
			body:   "Date,Units\n2025-06-30,10\nnot a date,20\n",
			wantOK: false,
		},
		"No time fields": {
			body:   "Size,Units\nSmall,10\n",
			wantOK: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			table := mustParse(t, tc.body)
			got, ok := table.AnchorTimes()
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
