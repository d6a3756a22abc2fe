// Package metrictable turns raw portal payloads into structured tables and
// gives the reconciliation engine typed access to their columns.
//
// Field roles (time anchor, volume, hours) are not hard-coded: they are
// assigned at parse time from a vocabulary supplied by the process schema.
package metrictable

import (
	"fmt"
	"strings"
	"time"
)

// FieldRoles classifies a column by name. Implemented by the schema package.
type FieldRoles interface {
	IsTimeAnchor(field string) bool
	IsVolume(field string) bool
	IsHours(field string) bool
}

// Value is a single table cell. Numeric cells keep the parsed number
// alongside the raw text.
type Value struct {
	Raw     string
	Num     float64
	Numeric bool
}

// Row is one record, aligned with the table's field list.
type Row []Value

// Table is an ordered collection of rows sharing one schema.
type Table struct {
	Fields []string
	Rows   []Row

	// Designated columns, assigned from the schema vocabulary at parse time.
	TimeFields   []string
	VolumeFields []string
	HoursFields  []string
}

// FieldIndex returns the position of the named field, matching
// case-insensitively with surrounding whitespace ignored.
func (t *Table) FieldIndex(name string) (int, bool) {
	for i, f := range t.Fields {
		if strings.EqualFold(strings.TrimSpace(f), strings.TrimSpace(name)) {
			return i, true
		}
	}
	return 0, false
}

// Sum adds up the numeric values of the named column. Non-numeric cells
// contribute nothing.
func (t *Table) Sum(field string) float64 {
	i, ok := t.FieldIndex(field)
	if !ok {
		return 0
	}

	var total float64
	for _, row := range t.Rows {
		if row[i].Numeric {
			total += row[i].Num
		}
	}
	return total
}

// SumWhere adds up the named column over rows matching all conditions.
func (t *Table) SumWhere(field string, conds []Condition) float64 {
	i, ok := t.FieldIndex(field)
	if !ok {
		return 0
	}

	var total float64
	for _, row := range t.Rows {
		if !t.matches(row, conds) {
			continue
		}
		if row[i].Numeric {
			total += row[i].Num
		}
	}
	return total
}

// Condition restricts a sum to rows whose field equals one of the accepted
// values. String comparison is case-insensitive and trims whitespace.
type Condition struct {
	Field  string
	Equals []string
}

func (t *Table) matches(row Row, conds []Condition) bool {
	for _, c := range conds {
		i, ok := t.FieldIndex(c.Field)
		if !ok {
			return false
		}

		cell := strings.ToLower(strings.TrimSpace(row[i].Raw))
		hit := false
		for _, want := range c.Equals {
			if cell == strings.ToLower(strings.TrimSpace(want)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Scale multiplies every designated volume and hours cell by factor. Row
// count is unchanged: scaling adjusts magnitudes, never membership.
func (t *Table) Scale(factor float64) {
	cols := make([]int, 0, len(t.VolumeFields)+len(t.HoursFields))
	for _, f := range append(append([]string{}, t.VolumeFields...), t.HoursFields...) {
		if i, ok := t.FieldIndex(f); ok {
			cols = append(cols, i)
		}
	}

	for _, row := range t.Rows {
		for _, i := range cols {
			if row[i].Numeric {
				row[i].Num *= factor
				row[i].Raw = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", row[i].Num), "0"), ".")
			}
		}
	}
}

// Clone returns a deep copy of the table. Used before destructive operations
// such as scaling so the original rows stay intact.
func (t *Table) Clone() *Table {
	c := &Table{
		Fields:       append([]string{}, t.Fields...),
		TimeFields:   append([]string{}, t.TimeFields...),
		VolumeFields: append([]string{}, t.VolumeFields...),
		HoursFields:  append([]string{}, t.HoursFields...),
		Rows:         make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append(Row{}, row...)
	}
	return c
}

// Filter returns a copy of the table keeping only rows for which keep is true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	filtered := &Table{
		Fields:       t.Fields,
		TimeFields:   t.TimeFields,
		VolumeFields: t.VolumeFields,
		HoursFields:  t.HoursFields,
	}
	for _, row := range t.Rows {
		if keep(row) {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered
}

// Append merges another table's rows into this one. Schemas must match.
func (t *Table) Append(other *Table) error {
	if len(other.Fields) != len(t.Fields) {
		return fmt.Errorf("cannot merge tables: %d fields vs %d", len(other.Fields), len(t.Fields))
	}
	for i, f := range t.Fields {
		if !strings.EqualFold(strings.TrimSpace(f), strings.TrimSpace(other.Fields[i])) {
			return fmt.Errorf("cannot merge tables: field %q vs %q", f, other.Fields[i])
		}
	}

	t.Rows = append(t.Rows, other.Rows...)
	return nil
}

// anchorLayouts are the timestamp formats the portal is known to emit.
var anchorLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// AnchorTimes coerces every row's time anchor to a timestamp. The anchor is
// either a single datetime column, or a date column combined with hour and
// minute columns. Returns false if any row fails to coerce: exact filtering
// must not run on partially reliable anchors.
func (t *Table) AnchorTimes() ([]time.Time, bool) {
	if len(t.TimeFields) == 0 || len(t.Rows) == 0 {
		return nil, false
	}

	dateIdx := -1
	hourIdx := -1
	minuteIdx := -1
	for _, f := range t.TimeFields {
		i, ok := t.FieldIndex(f)
		if !ok {
			continue
		}
		switch {
		case containsFold(f, "hour"):
			hourIdx = i
		case containsFold(f, "minute"):
			minuteIdx = i
		case dateIdx < 0:
			dateIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, false
	}

	times := make([]time.Time, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts, ok := coerceTime(row[dateIdx].Raw)
		if !ok {
			return nil, false
		}

		if hourIdx >= 0 && row[hourIdx].Numeric {
			ts = ts.Add(time.Duration(row[hourIdx].Num) * time.Hour)
		}
		if minuteIdx >= 0 && row[minuteIdx].Numeric {
			ts = ts.Add(time.Duration(row[minuteIdx].Num) * time.Minute)
		}
		times = append(times, ts)
	}
	return times, true
}

func coerceTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range anchorLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
