package puller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/metrictable"
	"github.com/shiftmetrics/shift-insights/internal/rates"
	"github.com/shiftmetrics/shift-insights/internal/reconcile"
	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/shiftmetrics/shift-insights/internal/window"
)

const week = 7 * 24 * time.Hour

// historical is the last fallback rung: average the same window over the
// preceding weeks. Each week is fetched independently and reconciled against
// its own shifted window, so an over-answering portal is narrowed per week
// before averaging. Weeks that fail or come back with a different report
// shape are skipped, and the merged table is scaled down to a per-week
// average before rates are recomputed.
func (p *Puller) historical(ctx context.Context, site string, proc schema.Process, requested window.Window) (rates.ProcessResult, error) {
	if p.weeksBack == 0 {
		return rates.ProcessResult{}, errors.New("historical averaging is disabled")
	}

	var merged *metrictable.Table
	weeks := 0
	for k := 1; k <= p.weeksBack; k++ {
		shifted := requested.Shift(-time.Duration(k) * week)
		table, err := p.fetchTable(ctx, site, proc, shifted, window.StrategyHistorical.String())
		if err != nil {
			slog.Debug("Historical week unavailable", "process", proc.Name, "weeksAgo", k, "err", err)
			continue
		}
		reconciled := p.engine.Reconcile(table, shifted)

		if weeks == 0 {
			merged = reconciled.Table
		} else if err := merged.Append(reconciled.Table); err != nil {
			slog.Debug("Historical week has a different shape, skipping", "process", proc.Name, "weeksAgo", k, "err", err)
			continue
		}
		weeks++
	}
	if weeks == 0 {
		return rates.ProcessResult{}, errors.New("no historical week could be fetched")
	}

	averaged := merged.Clone()
	averaged.Scale(1 / float64(weeks))
	slog.Info("Falling back to historical average", "process", proc.Name, "weeks", weeks)

	result := reconcile.Result{Table: averaged, Kind: reconcile.PassThrough, Factor: 1}
	res := rates.Recompute(result, proc, window.StrategyHistorical)
	if res.Hours == 0 {
		return rates.ProcessResult{}, errors.New("no historical week had labor hours")
	}
	return res, nil
}
