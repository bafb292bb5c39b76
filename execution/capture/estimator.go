// Package capture aggregates the implementation shortfall of a discrete
// trajectory, period by period, under a linear-impact arithmetic price walk.
package capture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/strategy"
)

// ShortfallAggregate holds the per-period contributions to the expected
// implementation shortfall and its variance. Index k-1 refers to period
// (t_{k-1}, t_k].
type ShortfallAggregate struct {
	IncrementalPermanentImpactExpectation []float64
	IncrementalTemporaryImpactExpectation []float64
	IncrementalDriftExpectation           []float64
	IncrementalExpectation                []float64
	IncrementalVariance                   []float64
}

// Estimate decomposes the cost of trajectory under params.
//
// For period k with trade n_k, rate v_k = n_k/τ_k and holdings x_k:
//
//	permanent   γ x_k n_k
//	temporary   n_k h(v_k)
//	drift       −α τ_k x_k
//	variance    σ² τ_k x_k² + τ_k v_k² σ̃(v_k)²
func Estimate(traj strategy.DiscreteTrajectory, params dynamics.PriceEvolutionParameters) (ShortfallAggregate, error) {
	if err := params.Validate(); err != nil {
		return ShortfallAggregate{}, fmt.Errorf("Estimate: %w", err)
	}
	n := traj.NumIntervals()
	if n == 0 || len(traj.Holdings) != n+1 {
		return ShortfallAggregate{}, fmt.Errorf("Estimate: malformed trajectory: %w", strategy.ErrInvalidTrajectory)
	}

	agg := ShortfallAggregate{
		IncrementalPermanentImpactExpectation: make([]float64, n),
		IncrementalTemporaryImpactExpectation: make([]float64, n),
		IncrementalDriftExpectation:           make([]float64, n),
		IncrementalExpectation:                make([]float64, n),
		IncrementalVariance:                   make([]float64, n),
	}

	sigma := params.Dynamics.Volatility
	alpha := params.Dynamics.Drift
	tau := traj.Intervals()
	for k := 0; k < n; k++ {
		x := traj.Holdings[k+1]
		trade := traj.TradeList[k]
		rate := trade / tau[k]

		perm := x * tau[k] * params.Permanent.Evaluate(rate)
		temp := trade * params.Temporary.Evaluate(rate)
		drift := -alpha * tau[k] * x
		enhanced := params.ExecutionVolatility(rate)

		agg.IncrementalPermanentImpactExpectation[k] = perm
		agg.IncrementalTemporaryImpactExpectation[k] = temp
		agg.IncrementalDriftExpectation[k] = drift
		agg.IncrementalExpectation[k] = perm + temp + drift
		agg.IncrementalVariance[k] = sigma*sigma*tau[k]*x*x + tau[k]*rate*rate*enhanced*enhanced
	}
	return agg, nil
}

// CumulativePermanentImpactExpectation returns running sums of the permanent impact.
func (a ShortfallAggregate) CumulativePermanentImpactExpectation() []float64 {
	return cumulative(a.IncrementalPermanentImpactExpectation)
}

// CumulativeTemporaryImpactExpectation returns running sums of the temporary impact.
func (a ShortfallAggregate) CumulativeTemporaryImpactExpectation() []float64 {
	return cumulative(a.IncrementalTemporaryImpactExpectation)
}

// CumulativeDriftExpectation returns running sums of the drift contribution.
func (a ShortfallAggregate) CumulativeDriftExpectation() []float64 {
	return cumulative(a.IncrementalDriftExpectation)
}

// CumulativeExpectation returns running sums of the expected shortfall.
func (a ShortfallAggregate) CumulativeExpectation() []float64 {
	return cumulative(a.IncrementalExpectation)
}

// CumulativeVariance returns running sums of the shortfall variance.
func (a ShortfallAggregate) CumulativeVariance() []float64 {
	return cumulative(a.IncrementalVariance)
}

// Synopsis summarises the total cost distribution.
func (a ShortfallAggregate) Synopsis() Synopsis {
	return Synopsis{
		Mean:     floats.Sum(a.IncrementalExpectation),
		Variance: floats.Sum(a.IncrementalVariance),
	}
}

func cumulative(in []float64) []float64 {
	if len(in) == 0 {
		return nil
	}
	return floats.CumSum(make([]float64, len(in)), in)
}

// Synopsis is the normal approximation of the total transaction cost.
type Synopsis struct {
	Mean     float64
	Variance float64
}

// TotalCostDistributionSynopsis estimates and summarises in one call.
func TotalCostDistributionSynopsis(traj strategy.DiscreteTrajectory, params dynamics.PriceEvolutionParameters) (Synopsis, error) {
	agg, err := Estimate(traj, params)
	if err != nil {
		return Synopsis{}, err
	}
	return agg.Synopsis(), nil
}

// StdDev returns √Variance.
func (s Synopsis) StdDev() float64 {
	return math.Sqrt(math.Max(s.Variance, 0))
}

// Normal returns the distribution as a gonum normal.
func (s Synopsis) Normal() distuv.Normal {
	return distuv.Normal{Mu: s.Mean, Sigma: s.StdDev()}
}

// ValueAtRisk returns the cost level exceeded with probability 1 − confidence.
func (s Synopsis) ValueAtRisk(confidence float64) (float64, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, fmt.Errorf("ValueAtRisk: confidence must lie in (0, 1), got %v", confidence)
	}
	if s.Variance <= 0 {
		return s.Mean, nil
	}
	return s.Normal().Quantile(confidence), nil
}
