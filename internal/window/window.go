// Package window defines the half-open time interval metrics are requested for,
// and the ordered fetch candidates tried against the reporting portal.
//
// The portal is designed for long-horizon historical analysis and routinely
// ignores short intraday windows, so a single exact request is not enough: the
// selector produces progressively wider candidate windows, each carrying the
// original request so reconciliation always knows the true target.
package window

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a window's start is not strictly before its end.
var ErrInvalidWindow = errors.New("window start must be before end")

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// New returns a Window over [start, end).
func New(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, fmt.Errorf("%w: start %s, end %s", ErrInvalidWindow, start, end)
	}
	return Window{Start: start, End: end}, nil
}

// Duration returns the window's length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Hours returns the window's length in hours.
func (w Window) Hours() float64 {
	return w.Duration().Hours()
}

// Contains reports whether t falls within [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Shift returns the window moved by d. Used by the historical source to
// request the same shift in previous weeks.
func (w Window) Shift(d time.Duration) Window {
	return Window{Start: w.Start.Add(d), End: w.End.Add(d)}
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format("2006-01-02 15:04"), w.End.Format("2006-01-02 15:04"))
}

// Strategy identifies which fetch attempt produced a result.
type Strategy int

const (
	// StrategyNone marks a process for which no attempt yielded data.
	StrategyNone Strategy = iota
	// StrategyExact is the requested window fetched as-is.
	StrategyExact
	// StrategyWidened is the moderately padded candidate window.
	StrategyWidened
	// StrategyMaximal is the last-resort wide candidate window.
	StrategyMaximal
	// StrategyHistorical is the alternate source: previous weeks averaged.
	StrategyHistorical
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyWidened:
		return "widened"
	case StrategyMaximal:
		return "maximal"
	case StrategyHistorical:
		return "historical"
	default:
		return "none"
	}
}

// Candidate pairs a window to fetch with the window that was actually asked for.
type Candidate struct {
	Fetch     Window
	Requested Window
	Strategy  Strategy
}
