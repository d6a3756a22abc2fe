// Package puller drives the per-process pipeline: fetch a report, classify
// and parse it, reconcile it against the requested window, and recompute
// rates from the reconciled aggregates.
//
// The portal is treated as unreliable: every process walks a fixed fallback
// ladder (exact window, widened window, maximal window, then historical
// averaging) and only reports no data once every rung has been exhausted.
package puller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shiftmetrics/shift-insights/internal/classify"
	"github.com/shiftmetrics/shift-insights/internal/constants"
	"github.com/shiftmetrics/shift-insights/internal/metrictable"
	"github.com/shiftmetrics/shift-insights/internal/rates"
	"github.com/shiftmetrics/shift-insights/internal/reconcile"
	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/shiftmetrics/shift-insights/internal/window"
	"golang.org/x/sync/errgroup"
)

// ErrCriticalProcess is returned by Run when a process marked critical ends
// the fallback ladder without usable data.
var ErrCriticalProcess = errors.New("critical process has no usable data")

// Outcome labels for the fetch attempts counter.
const (
	outcomeOK          = "ok"
	outcomeTransport   = "transport_error"
	outcomeErrorMarkup = "error_markup"
	outcomeUnparsable  = "unparsable"
)

type dFetcher interface {
	Fetch(ctx context.Context, site string, proc schema.Process, w window.Window) ([]byte, error)
}

// Puller pulls and normalizes metrics for every process in a catalog.
type Puller struct {
	fetcher dFetcher
	catalog *schema.Catalog

	selector     window.Selector
	engine       reconcile.Engine
	workers      int
	fetchTimeout time.Duration
	weeksBack    int

	fetchAttempts   *prometheus.CounterVec
	processFailures prometheus.Counter
}

type options struct {
	selector     window.Selector
	engine       reconcile.Engine
	workers      int
	fetchTimeout time.Duration
	weeksBack    int
}

// Options represents an optional function to override Puller default values.
type Options func(*options)

// WithSelector overrides the window fetch strategy selector.
func WithSelector(s window.Selector) Options {
	return func(o *options) {
		o.selector = s
	}
}

// WithEngine overrides the reconciliation engine.
func WithEngine(e reconcile.Engine) Options {
	return func(o *options) {
		o.engine = e
	}
}

// WithWorkers sets how many processes are pulled concurrently.
func WithWorkers(n int) Options {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithFetchTimeout sets the per-fetch timeout.
func WithFetchTimeout(timeout time.Duration) Options {
	return func(o *options) {
		if timeout > 0 {
			o.fetchTimeout = timeout
		}
	}
}

// WithWeeksBack sets how many prior weeks the historical fallback averages
// over. Zero disables the historical rung.
func WithWeeksBack(n int) Options {
	return func(o *options) {
		if n >= 0 {
			o.weeksBack = n
		}
	}
}

// New creates a Puller over the given fetcher and process catalog, and
// registers its metrics with reg.
func New(fetcher dFetcher, catalog *schema.Catalog, reg prometheus.Registerer, args ...Options) (*Puller, error) {
	opts := options{
		selector:     window.NewSelector(),
		engine:       reconcile.New(),
		workers:      constants.DefaultWorkers,
		fetchTimeout: constants.DefaultFetchTimeout,
		weeksBack:    constants.DefaultWeeksBack,
	}
	for _, opt := range args {
		opt(&opts)
	}

	fetchAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pull_fetch_attempts_total",
		Help: "Number of report fetch attempts by fallback strategy and outcome.",
	}, []string{"strategy", "outcome"})
	if err := reg.Register(fetchAttempts); err != nil {
		return nil, fmt.Errorf("failed to register fetch attempts counter: %v", err)
	}
	processFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pull_process_failures_total",
		Help: "Number of processes that exhausted every fallback strategy.",
	})
	if err := reg.Register(processFailures); err != nil {
		return nil, fmt.Errorf("failed to register process failures counter: %v", err)
	}

	return &Puller{
		fetcher:         fetcher,
		catalog:         catalog,
		selector:        opts.selector,
		engine:          opts.engine,
		workers:         opts.workers,
		fetchTimeout:    opts.fetchTimeout,
		weeksBack:       opts.weeksBack,
		fetchAttempts:   fetchAttempts,
		processFailures: processFailures,
	}, nil
}

// Run pulls every process in the catalog for the requested window at site.
// Results come back in catalog order, one entry per process, with NoData set
// on processes that exhausted the fallback ladder.
//
// Run only returns an error when a critical process has no usable data or
// the context is canceled; ordinary process failures are reported in the
// results themselves.
func (p *Puller) Run(ctx context.Context, site string, requested window.Window) ([]rates.ProcessResult, error) {
	processes := p.catalog.Processes()
	results := make([]rates.ProcessResult, len(processes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, proc := range processes {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = p.pull(ctx, site, proc, requested)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var critical []string
	for _, res := range results {
		if res.NoData && p.catalog.IsCritical(res.Process) {
			critical = append(critical, res.Process)
		}
	}
	if len(critical) > 0 {
		sort.Strings(critical)
		return results, fmt.Errorf("%w: %s", ErrCriticalProcess, strings.Join(critical, ", "))
	}
	return results, nil
}

// pull walks the fallback ladder for a single process.
func (p *Puller) pull(ctx context.Context, site string, proc schema.Process, requested window.Window) rates.ProcessResult {
	for _, candidate := range p.selector.Candidates(requested) {
		res, err := p.attempt(ctx, site, proc, candidate)
		if err != nil {
			slog.Debug("Fetch attempt failed", "process", proc.Name, "strategy", candidate.Strategy, "err", err)
			continue
		}
		return res
	}

	res, err := p.historical(ctx, site, proc, requested)
	if err != nil {
		slog.Warn("Process has no usable data", "process", proc.Name, "err", err)
		p.processFailures.Inc()
		return rates.NoData(proc.Name)
	}
	return res
}

// attempt fetches one window candidate and runs it through the pipeline. A
// result whose aggregate hours are zero is not usable and advances the ladder
// like any other failed attempt.
func (p *Puller) attempt(ctx context.Context, site string, proc schema.Process, candidate window.Candidate) (rates.ProcessResult, error) {
	table, err := p.fetchTable(ctx, site, proc, candidate.Fetch, candidate.Strategy.String())
	if err != nil {
		return rates.ProcessResult{}, err
	}

	reconciled := p.engine.Reconcile(table, candidate.Requested)
	res := rates.Recompute(reconciled, proc, candidate.Strategy)
	if res.Hours == 0 {
		return rates.ProcessResult{}, errors.New("reconciled table has zero labor hours")
	}
	return res, nil
}

// fetchTable fetches and parses one report, recording the attempt outcome.
func (p *Puller) fetchTable(ctx context.Context, site string, proc schema.Process, w window.Window, strategy string) (*metrictable.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	body, err := p.fetcher.Fetch(ctx, site, proc, w)
	if err != nil {
		p.fetchAttempts.WithLabelValues(strategy, outcomeTransport).Inc()
		return nil, err
	}

	switch classify.Classify(string(body)) {
	case classify.ErrorMarkup:
		p.fetchAttempts.WithLabelValues(strategy, outcomeErrorMarkup).Inc()
		return nil, errors.New("portal answered with an error page")
	case classify.Unparsable:
		p.fetchAttempts.WithLabelValues(strategy, outcomeUnparsable).Inc()
		return nil, errors.New("portal answered with an unparsable payload")
	}

	table, err := metrictable.Parse(body, p.catalog.Roles(proc))
	if err != nil {
		p.fetchAttempts.WithLabelValues(strategy, outcomeUnparsable).Inc()
		return nil, err
	}

	p.fetchAttempts.WithLabelValues(strategy, outcomeOK).Inc()
	return table, nil
}
