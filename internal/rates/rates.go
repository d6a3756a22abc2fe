// Package rates derives the final productivity numbers for a process from a
// reconciled table.
//
// Rates are always recomputed as volume over hours from the reconciled
// aggregates. The portal's own rate columns are never copied: they were
// computed against the original, unreconciled time span and are invalid once
// the table has been filtered or scaled.
package rates

import (
	"log/slog"

	"github.com/shiftmetrics/shift-insights/internal/reconcile"
	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/shiftmetrics/shift-insights/internal/window"
)

// ProcessResult is the final output for one named process. A metric with
// zero aggregate hours has no entry in Rates: an undefined rate is absent,
// never zero.
type ProcessResult struct {
	Process string             `json:"process"`
	Volumes map[string]float64 `json:"volumes"`
	Hours   float64            `json:"hours"`
	Rates   map[string]float64 `json:"rates,omitempty"`

	SourceStrategy string  `json:"sourceStrategy"`
	Reconciliation string  `json:"reconciliation"`
	ScaleFactor    float64 `json:"scaleFactor,omitempty"`
	NoData         bool    `json:"noData,omitempty"`
}

// HasRates reports whether at least one rate could be computed.
func (r ProcessResult) HasRates() bool {
	return len(r.Rates) > 0
}

// Recompute aggregates the reconciled table per the process schema and
// derives every declared rate from those aggregates.
func Recompute(res reconcile.Result, proc schema.Process, strategy window.Strategy) ProcessResult {
	out := ProcessResult{
		Process:        proc.Name,
		Volumes:        make(map[string]float64, len(proc.Volumes)),
		SourceStrategy: strategy.String(),
		Reconciliation: res.Kind.String(),
	}
	if res.Kind == reconcile.ProportionalScale {
		out.ScaleFactor = res.Factor
	}

	out.Hours = res.Table.SumWhere(proc.Hours.Field, proc.Hours.Where)
	for name, m := range proc.Volumes {
		out.Volumes[name] = res.Table.SumWhere(m.Field, m.Where)
	}

	if out.Hours <= 0 {
		slog.Debug("No hours aggregate, rates undefined", "process", proc.Name)
		return out
	}

	out.Rates = make(map[string]float64, len(out.Volumes))
	for name, volume := range out.Volumes {
		out.Rates[name] = volume / out.Hours
	}
	return out
}

// NoData returns the explicit empty result for a process no attempt could
// serve. Distinguishable from a genuine zero-valued result.
func NoData(process string) ProcessResult {
	return ProcessResult{
		Process:        process,
		Volumes:        map[string]float64{},
		SourceStrategy: window.StrategyNone.String(),
		Reconciliation: reconcile.PassThrough.String(),
		NoData:         true,
	}
}
