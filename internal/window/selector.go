package window

import (
	"time"

	"github.com/shiftmetrics/shift-insights/internal/constants"
)

// Selector produces the ordered fetch candidates for a requested window.
type Selector struct {
	widenFactor  int
	widenCeiling time.Duration
	maximalSpan  time.Duration
}

type selectorOptions struct {
	// Private members exported for tests.
	widenFactor  int
	widenCeiling time.Duration
	maximalSpan  time.Duration
}

var defaultSelectorOptions = selectorOptions{
	widenFactor:  constants.DefaultWidenFactor,
	widenCeiling: constants.DefaultWidenCeiling,
	maximalSpan:  constants.DefaultMaximalSpan,
}

// SelectorOptions represents an optional function to override Selector default values.
type SelectorOptions func(*selectorOptions)

// WithWidenFactor sets the widening multiple for the widened candidate.
func WithWidenFactor(factor int) SelectorOptions {
	return func(o *selectorOptions) {
		if factor > 1 {
			o.widenFactor = factor
		}
	}
}

// WithWidenCeiling caps the widened candidate span.
func WithWidenCeiling(ceiling time.Duration) SelectorOptions {
	return func(o *selectorOptions) {
		if ceiling > 0 {
			o.widenCeiling = ceiling
		}
	}
}

// WithMaximalSpan sets the last-resort candidate span.
func WithMaximalSpan(span time.Duration) SelectorOptions {
	return func(o *selectorOptions) {
		if span > 0 {
			o.maximalSpan = span
		}
	}
}

// NewSelector returns a Selector with the configured widening parameters.
func NewSelector(args ...SelectorOptions) Selector {
	opts := defaultSelectorOptions
	for _, opt := range args {
		opt(&opts)
	}

	return Selector{
		widenFactor:  opts.widenFactor,
		widenCeiling: opts.widenCeiling,
		maximalSpan:  opts.maximalSpan,
	}
}

// Candidates returns the windows to try against the portal, in order: the
// exact request, a symmetrically padded widening, and a maximally wide span
// centered on the request. Consecutive duplicates are dropped so an already
// wide request does not get fetched twice.
func (s Selector) Candidates(requested Window) []Candidate {
	candidates := []Candidate{{
		Fetch:     requested,
		Requested: requested,
		Strategy:  StrategyExact,
	}}

	widened := s.widen(requested)
	if widened != requested {
		candidates = append(candidates, Candidate{
			Fetch:     widened,
			Requested: requested,
			Strategy:  StrategyWidened,
		})
	}

	maximal := s.maximal(requested)
	if maximal != widened && maximal != requested {
		candidates = append(candidates, Candidate{
			Fetch:     maximal,
			Requested: requested,
			Strategy:  StrategyMaximal,
		})
	}

	return candidates
}

// widen pads the window symmetrically up to widenFactor times its duration,
// capped at the configured ceiling.
func (s Selector) widen(requested Window) Window {
	span := requested.Duration() * time.Duration(s.widenFactor)
	if span > s.widenCeiling {
		span = s.widenCeiling
	}
	if span <= requested.Duration() {
		return requested
	}

	pad := (span - requested.Duration()) / 2
	return Window{Start: requested.Start.Add(-pad), End: requested.End.Add(pad)}
}

// maximal centers a fixed large span on the requested window. Last resort
// before the historical source.
func (s Selector) maximal(requested Window) Window {
	if requested.Duration() >= s.maximalSpan {
		return requested
	}

	pad := (s.maximalSpan - requested.Duration()) / 2
	return Window{Start: requested.Start.Add(-pad), End: requested.End.Add(pad)}
}
