package generator

import (
	"fmt"
	"math"

	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

// AlmgrenChriss2000Discrete is the closed-form discrete optimal trajectory of
// Almgren and Chriss (2000), "Optimal Execution of Portfolio Transactions".
type AlmgrenChriss2000Discrete struct {
	EfficientDiscreteTrajectory

	// Kappa solves cosh(κτ) − 1 = κ̃²τ²/2.
	Kappa float64
	// KappaTilda is √(λσ²/η̃).
	KappaTilda float64
	// EtaTilda is the temporary impact slope net of the permanent impact, η − γτ/2.
	EtaTilda float64
	// DriftTarget is x̄ = α/(2λσ²), the holdings a drift-chasing trader would keep.
	DriftTarget float64
}

// HalfLife returns 1/κ, the characteristic liquidation time.
func (a AlmgrenChriss2000Discrete) HalfLife() float64 {
	return halfLife(a.Kappa)
}

// AlmgrenChriss2000 generates the closed-form trajectory for uniform
// intervals and linear impact.
//
//	x_j = X sinh(κ(T−t_j))/sinh(κT) + x̄ [1 − (sinh(κ(T−t_j)) + sinh(κt_j))/sinh(κT)]
//
// With λσ² = 0 the trajectory is linear, bent by the drift if there is one.
func AlmgrenChriss2000(control strategy.DiscreteTrajectoryControl, params dynamics.PriceEvolutionParameters, utility risk.MeanVarianceObjectiveUtility) (AlmgrenChriss2000Discrete, error) {
	if err := control.Order.Validate(); err != nil {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000: %w", err)
	}
	if err := params.Validate(); err != nil {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000: %w", err)
	}
	if control.NumIntervals() < 1 || !control.IsUniform() {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000: %w", ErrNonUniformControl)
	}
	if params.HasTradingEnhancedRisk() {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000: trading-enhanced volatility: %w", ErrUnsupportedWalk)
	}

	nodes := control.ExecutionTimeNodes
	N := control.NumIntervals()
	T := nodes[N]
	tau := T / float64(N)
	X := control.Order.Size

	sigma := params.Dynamics.Volatility
	alpha := params.Dynamics.Drift
	gamma := params.Permanent.Slope
	epsilon := params.Temporary.Offset
	eta := params.Temporary.Slope
	lambda := utility.RiskAversion

	etaTilda := eta - 0.5*gamma*tau
	if etaTilda <= 0 {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000: η − γτ/2 = %g must be positive", etaTilda)
	}

	out := AlmgrenChriss2000Discrete{EtaTilda: etaTilda}
	holdings := make([]float64, N+1)

	riskRate := lambda * sigma * sigma
	if riskRate == 0 {
		curvature := alpha / (4 * etaTilda)
		for j, t := range nodes {
			holdings[j] = X*(1-t/T) + curvature*t*(T-t)
		}
	} else {
		out.KappaTilda = math.Sqrt(riskRate / etaTilda)
		out.Kappa = math.Acosh(1+0.5*out.KappaTilda*out.KappaTilda*tau*tau) / tau
		out.DriftTarget = alpha / (2 * riskRate)

		kT := out.Kappa * T
		for j, t := range nodes {
			remaining := sinhRatio(out.Kappa*(T-t), kT)
			elapsed := sinhRatio(out.Kappa*t, kT)
			holdings[j] = X*remaining + out.DriftTarget*(1-remaining-elapsed)
		}
	}
	holdings[0] = X
	holdings[N] = 0

	traj, err := strategy.NewDiscreteTrajectory(nodes, holdings)
	if err != nil {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000: %w", err)
	}

	var absTrades, sqTrades, sumHoldings, sqHoldings float64
	for k, n := range traj.TradeList {
		x := traj.Holdings[k+1]
		absTrades += math.Abs(n)
		sqTrades += n * n
		sumHoldings += x
		sqHoldings += x * x
	}

	mean := 0.5*gamma*X*X + epsilon*absTrades + etaTilda/tau*sqTrades - alpha*tau*sumHoldings
	variance := sigma * sigma * tau * sqHoldings

	out.EfficientDiscreteTrajectory = EfficientDiscreteTrajectory{
		DiscreteTrajectory:         traj,
		TransactionCostExpectation: mean,
		TransactionCostVariance:    variance,
		Utility:                    utility.Utility(mean, variance),
	}
	return out, nil
}

// AlmgrenChriss2000Standard is the convenience entry point taking the order
// terms directly.
func AlmgrenChriss2000Standard(size, executionTime float64, numIntervals int, params dynamics.PriceEvolutionParameters, riskAversion float64) (AlmgrenChriss2000Discrete, error) {
	order, err := strategy.NewOrderSpecification(size, executionTime)
	if err != nil {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000Standard: %w", err)
	}
	control, err := strategy.FixedInterval(order, numIntervals)
	if err != nil {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000Standard: %w", err)
	}
	utility, err := risk.NewMeanVariance(riskAversion)
	if err != nil {
		return AlmgrenChriss2000Discrete{}, fmt.Errorf("AlmgrenChriss2000Standard: %w", err)
	}
	return AlmgrenChriss2000(control, params, utility)
}
