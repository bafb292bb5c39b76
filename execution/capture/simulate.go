package capture

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/strategy"
)

// Simulate draws realized implementation shortfalls of traj under params by
// walking the price path. Over period k, with trade n_k at rate v_k,
//
//	S_k = S_{k-1} + α τ_k + σ τ_k^½ ξ_k − τ_k g(v_k)
//	S̃_k = S_{k-1} − h(v_k) + σ̃(v_k) τ_k^-½ ζ_k
//
// where g and h are the permanent and temporary impact. The shortfall is
// x_0 S_0 − Σ n_k S̃_k − x_N S_N, any residual marked at the final price.
func Simulate(traj strategy.DiscreteTrajectory, params dynamics.PriceEvolutionParameters, paths int, src rand.Source) ([]float64, error) {
	if paths <= 0 {
		return nil, fmt.Errorf("Simulate: paths must be positive, got %d", paths)
	}
	if src == nil {
		return nil, fmt.Errorf("Simulate: random source is required")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("Simulate: %w", err)
	}
	n := traj.NumIntervals()
	if n == 0 || len(traj.Holdings) != n+1 {
		return nil, fmt.Errorf("Simulate: malformed trajectory: %w", strategy.ErrInvalidTrajectory)
	}

	sigma := params.Dynamics.Volatility
	alpha := params.Dynamics.Drift
	tau := traj.Intervals()
	z := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	out := make([]float64, paths)
	for p := range out {
		// The shortfall does not depend on S_0.
		price := 0.0
		proceeds := 0.0
		for k, trade := range traj.TradeList {
			rate := trade / tau[k]
			fill := price - params.Temporary.Evaluate(rate)
			if enhanced := params.ExecutionVolatility(rate); enhanced != 0 {
				fill += enhanced / math.Sqrt(tau[k]) * z.Rand()
			}
			proceeds += trade * fill
			price += alpha*tau[k] + sigma*math.Sqrt(tau[k])*z.Rand() - tau[k]*params.Permanent.Evaluate(rate)
		}
		out[p] = -proceeds - traj.Holdings[n]*price
	}
	return out, nil
}
