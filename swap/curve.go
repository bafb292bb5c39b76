package swap

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/meenmo/quantlib/utils"
)

// ErrInvalidCurveNodes is returned when curve nodes are unsorted, duplicated or non-positive.
var ErrInvalidCurveNodes = errors.New("invalid curve nodes")

// NodeCurve interpolates supplied discount factors linearly in log(DF) on an
// ACT/365F time axis. Beyond the last node the last zero rate is held flat.
type NodeCurve struct {
	reference time.Time
	times     []float64
	logDF     []float64
	pl        interp.PiecewiseLinear
}

// NewNodeCurve builds a curve from pillar dates and their discount factors.
// Pillars must lie strictly after reference; DF(reference) is pinned to 1.
func NewNodeCurve(reference time.Time, dates []time.Time, dfs []float64) (*NodeCurve, error) {
	if len(dates) == 0 || len(dates) != len(dfs) {
		return nil, fmt.Errorf("NewNodeCurve: %d dates vs %d discount factors: %w", len(dates), len(dfs), ErrInvalidCurveNodes)
	}

	idx := make([]int, len(dates))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return dates[idx[a]].Before(dates[idx[b]]) })

	times := []float64{0}
	logDF := []float64{0}
	for _, i := range idx {
		t := utils.Days(reference, dates[i]) / 365.0
		if t <= times[len(times)-1] {
			return nil, fmt.Errorf("NewNodeCurve: pillar %s: %w", utils.FormatDate(dates[i]), ErrInvalidCurveNodes)
		}
		if !(dfs[i] > 0) {
			return nil, fmt.Errorf("NewNodeCurve: discount factor %g at %s: %w", dfs[i], utils.FormatDate(dates[i]), ErrInvalidCurveNodes)
		}
		times = append(times, t)
		logDF = append(logDF, math.Log(dfs[i]))
	}

	c := &NodeCurve{reference: reference, times: times, logDF: logDF}
	if err := c.pl.Fit(times, logDF); err != nil {
		return nil, fmt.Errorf("NewNodeCurve: %w", err)
	}
	return c, nil
}

// NewZeroCurve builds a NodeCurve from continuously compounded zero rates (decimal).
func NewZeroCurve(reference time.Time, dates []time.Time, zeros []float64) (*NodeCurve, error) {
	if len(dates) != len(zeros) {
		return nil, fmt.Errorf("NewZeroCurve: %d dates vs %d rates: %w", len(dates), len(zeros), ErrInvalidCurveNodes)
	}
	dfs := make([]float64, len(zeros))
	for i, z := range zeros {
		dfs[i] = math.Exp(-z * utils.Days(reference, dates[i]) / 365.0)
	}
	return NewNodeCurve(reference, dates, dfs)
}

// Reference returns the curve's valuation date.
func (c *NodeCurve) Reference() time.Time { return c.reference }

// DF returns the discount factor to t. Dates on or before the reference date discount to 1.
func (c *NodeCurve) DF(t time.Time) float64 {
	tau := utils.Days(c.reference, t) / 365.0
	if tau <= 0 {
		return 1
	}
	last := len(c.times) - 1
	if tau >= c.times[last] {
		return math.Exp(c.logDF[last] * tau / c.times[last])
	}
	return math.Exp(c.pl.Predict(tau))
}

// ZeroRateAt returns the continuously compounded zero rate to t (decimal).
func (c *NodeCurve) ZeroRateAt(t time.Time) float64 {
	tau := utils.Days(c.reference, t) / 365.0
	if tau <= 0 {
		return -c.logDF[1] / c.times[1]
	}
	return -math.Log(c.DF(t)) / tau
}

// FlatCurve discounts at a single continuously compounded rate (decimal).
type FlatCurve struct {
	Reference time.Time
	Rate      float64
}

func (c FlatCurve) DF(t time.Time) float64 {
	tau := utils.Days(c.Reference, t) / 365.0
	if tau <= 0 {
		return 1
	}
	return math.Exp(-c.Rate * tau)
}
