// Package reconcile narrows an over-covering metric table to the window that
// was actually requested.
//
// The reporting portal routinely ignores short intraday windows and answers
// with days or weeks of data. Before any rate is derived, the table's real
// time coverage is compared against the request: tables within tolerance pass
// through, tables with reliable per-row timestamps are filtered exactly, and
// tables without them are scaled proportionally as a last resort.
package reconcile

import (
	"log/slog"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/constants"
	"github.com/shiftmetrics/shift-insights/internal/metrictable"
	"github.com/shiftmetrics/shift-insights/internal/window"
)

// Kind tags how a table was reconciled.
type Kind int

const (
	// PassThrough means the table was already within tolerance of the request
	// (or had no measurable coverage) and is used unmodified.
	PassThrough Kind = iota
	// ExactFilter means rows were restricted by timestamp membership.
	ExactFilter
	// ProportionalScale means every volume and hours cell was multiplied by
	// requestedHours/actualHours. An approximation, flagged as such.
	ProportionalScale
)

func (k Kind) String() string {
	switch k {
	case ExactFilter:
		return "exact filter"
	case ProportionalScale:
		return "proportional scale"
	default:
		return "pass through"
	}
}

// Coverage compares a table's actual time span against the request.
type Coverage struct {
	ActualHours    float64
	RequestedHours float64
}

// Result is a reconciled table plus how it got that way. Factor is 1 except
// for ProportionalScale.
type Result struct {
	Table  *metrictable.Table
	Kind   Kind
	Factor float64
}

// Engine reconciles tables against requested windows.
type Engine struct {
	tolerance float64
}

type options struct {
	tolerance float64
}

var defaultOptions = options{
	tolerance: constants.DefaultCoverageTolerance,
}

// Options represents an optional function to override Engine default values.
type Options func(*options)

// WithTolerance overrides the coverage tolerance factor.
func WithTolerance(tolerance float64) Options {
	return func(o *options) {
		if tolerance > 0 {
			o.tolerance = tolerance
		}
	}
}

// New returns a reconciliation Engine.
func New(args ...Options) Engine {
	opts := defaultOptions
	for _, opt := range args {
		opt(&opts)
	}
	return Engine{tolerance: opts.tolerance}
}

// Estimate computes the table's coverage. Actual hours is the sum of the
// designated hours columns when present, otherwise the span between the
// earliest and latest time anchors. Computed fresh per table, never cached.
func Estimate(t *metrictable.Table, requested window.Window) Coverage {
	c := Coverage{RequestedHours: requested.Hours()}

	for _, f := range t.HoursFields {
		c.ActualHours += t.Sum(f)
	}
	if c.ActualHours > 0 {
		return c
	}

	if anchors, ok := t.AnchorTimes(); ok && len(anchors) > 0 {
		minT, maxT := anchors[0], anchors[0]
		for _, ts := range anchors[1:] {
			if ts.Before(minT) {
				minT = ts
			}
			if ts.After(maxT) {
				maxT = ts
			}
		}
		c.ActualHours = maxT.Sub(minT).Hours()
	}
	return c
}

// Reconcile narrows the table to the requested window.
//
// Exact filtering is always preferred over scaling: it preserves per-row
// integrity. Scaling is the fallback when per-row timestamps are missing or
// unreliable, and never changes row count. A table with zero measurable
// hours passes through unchanged; scaling by an undefined factor is refused
// and the caller must treat the result as having no reliable rate.
func (e Engine) Reconcile(t *metrictable.Table, requested window.Window) Result {
	cov := Estimate(t, requested)

	if cov.ActualHours == 0 {
		slog.Debug("Reconcile: no measurable coverage", "window", requested)
		return Result{Table: t, Kind: PassThrough, Factor: 1}
	}

	if cov.ActualHours <= cov.RequestedHours*e.tolerance {
		slog.Debug("Reconcile: coverage within tolerance",
			"actualHours", cov.ActualHours, "requestedHours", cov.RequestedHours)
		return Result{Table: t, Kind: PassThrough, Factor: 1}
	}

	if anchors, ok := t.AnchorTimes(); ok {
		// Report timestamps are site-local wall clock; rebase them into the
		// window's zone before membership checks.
		loc := requested.Start.Location()
		i := 0
		filtered := t.Filter(func(metrictable.Row) bool {
			keep := requested.Contains(rebase(anchors[i], loc))
			i++
			return keep
		})
		if len(filtered.Rows) > 0 {
			slog.Debug("Reconcile: exact filter",
				"kept", len(filtered.Rows), "of", len(t.Rows), "window", requested)
			return Result{Table: filtered, Kind: ExactFilter, Factor: 1}
		}
	}

	factor := cov.RequestedHours / cov.ActualHours
	scaled := t.Clone()
	scaled.Scale(factor)
	slog.Debug("Reconcile: proportional scale",
		"factor", factor, "actualHours", cov.ActualHours, "requestedHours", cov.RequestedHours)
	return Result{Table: scaled, Kind: ProportionalScale, Factor: factor}
}

func rebase(ts time.Time, loc *time.Location) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), 0, loc)
}
