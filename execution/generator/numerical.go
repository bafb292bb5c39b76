package generator

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/meenmo/quantlib/execution/capture"
	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

// Numerical optimizer defaults.
const (
	DefaultGradientThreshold = 1e-10
	DefaultMajorIterations   = 5000
)

// NumericalSettings tunes OptimalDiscrete. The zero value uses the defaults.
type NumericalSettings struct {
	GradientThreshold float64
	MajorIterations   int
	// Initial seeds the search; the linear trajectory when nil.
	Initial *strategy.DiscreteTrajectory
	Logger  *zap.Logger
}

func (s NumericalSettings) withDefaults() NumericalSettings {
	if s.GradientThreshold <= 0 {
		s.GradientThreshold = DefaultGradientThreshold
	}
	if s.MajorIterations <= 0 {
		s.MajorIterations = DefaultMajorIterations
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	return s
}

// OptimalDiscrete minimises utility(E, V) over the interior holdings
// x_1..x_{N−1} with L-BFGS. It handles any node spacing, any objective
// utility and rate-dependent execution volatility.
//
// The search runs on y = x/X with the objective scaled by |U| of the linear
// trajectory so gradient thresholds are independent of order size.
func OptimalDiscrete(control strategy.DiscreteTrajectoryControl, params dynamics.PriceEvolutionParameters, utility risk.ObjectiveUtility, settings NumericalSettings) (EfficientDiscreteTrajectory, error) {
	if utility == nil {
		return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: utility is required")
	}
	if err := control.Order.Validate(); err != nil {
		return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: %w", err)
	}
	if err := params.Validate(); err != nil {
		return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: %w", err)
	}
	settings = settings.withDefaults()

	start := settings.Initial
	if start == nil {
		linear, err := strategy.LinearTrajectory(control)
		if err != nil {
			return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: %w", err)
		}
		start = &linear
	}
	if len(start.Holdings) != len(control.ExecutionTimeNodes) {
		return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: initial trajectory has %d nodes, control has %d: %w",
			len(start.Holdings), len(control.ExecutionTimeNodes), strategy.ErrInvalidTrajectory)
	}

	obj := &shortfallObjective{
		size:    control.Order.Size,
		tau:     control.Intervals(),
		params:  params,
		utility: utility,
	}
	N := len(obj.tau)

	y0 := make([]float64, N-1)
	for i := range y0 {
		y0[i] = start.Holdings[i+1] / obj.size
	}
	obj.scale = 1
	if u := math.Abs(obj.value(y0, nil)); u > 0 && !math.IsInf(u, 0) {
		obj.scale = u
	}

	y := y0
	if N > 1 {
		problem := optimize.Problem{
			Func: func(y []float64) float64 { return obj.value(y, nil) },
			Grad: func(grad, y []float64) { obj.value(y, grad) },
		}
		result, err := optimize.Minimize(problem, y0, &optimize.Settings{
			GradientThreshold: settings.GradientThreshold,
			MajorIterations:   settings.MajorIterations,
			Converger:         &optimize.FunctionConverge{Absolute: 1e-15, Relative: 1e-15, Iterations: 200},
		}, &optimize.LBFGS{})
		switch {
		case result == nil:
			return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: %w", err)
		case err != nil:
			// Line searches stall once the objective is flat to machine precision.
			settings.Logger.Warn("optimizer stopped early",
				zap.Error(err),
				zap.String("status", result.Status.String()),
				zap.Int("major_iterations", result.Stats.MajorIterations))
		default:
			settings.Logger.Debug("optimizer converged",
				zap.String("status", result.Status.String()),
				zap.Int("major_iterations", result.Stats.MajorIterations),
				zap.Int("func_evaluations", result.Stats.FuncEvaluations))
		}
		if result.F > obj.value(y0, nil) {
			return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: optimizer did not improve on the initial trajectory (status %s)", result.Status)
		}
		y = result.X
	}

	holdings := make([]float64, N+1)
	holdings[0] = obj.size
	for i, yi := range y {
		holdings[i+1] = yi * obj.size
	}
	traj, err := strategy.NewDiscreteTrajectory(control.ExecutionTimeNodes, holdings)
	if err != nil {
		return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: %w", err)
	}
	synopsis, err := capture.TotalCostDistributionSynopsis(traj, params)
	if err != nil {
		return EfficientDiscreteTrajectory{}, fmt.Errorf("OptimalDiscrete: %w", err)
	}
	return EfficientDiscreteTrajectory{
		DiscreteTrajectory:         traj,
		TransactionCostExpectation: synopsis.Mean,
		TransactionCostVariance:    synopsis.Variance,
		Utility:                    utility.Utility(synopsis.Mean, synopsis.Variance),
	}, nil
}

// shortfallObjective evaluates utility(E, V)/scale over normalised interior
// holdings. Period k contributes, with n = x_{k−1} − x_k and v = n/τ,
//
//	E_k = τ x_k g(v) + n h(v) − α τ x_k
//	V_k = σ² τ x_k² + τ v² σ̃(v)²
type shortfallObjective struct {
	size    float64
	tau     []float64
	params  dynamics.PriceEvolutionParameters
	utility risk.ObjectiveUtility
	scale   float64
}

func (o *shortfallObjective) value(y, grad []float64) float64 {
	N := len(o.tau)
	holding := func(k int) float64 {
		switch {
		case k == 0:
			return o.size
		case k == N:
			return 0
		default:
			return y[k-1] * o.size
		}
	}

	p := o.params
	sigma2 := p.Dynamics.Volatility * p.Dynamics.Volatility
	alpha := p.Dynamics.Drift

	var mean, variance float64
	var dMean, dVar []float64
	if grad != nil {
		dMean = make([]float64, N+1)
		dVar = make([]float64, N+1)
	}
	for k := 1; k <= N; k++ {
		tau := o.tau[k-1]
		prev, x := holding(k-1), holding(k)
		n := prev - x
		v := n / tau
		vol := p.ExecutionVolatility(v)

		mean += tau*x*p.Permanent.Evaluate(v) + n*p.Temporary.Evaluate(v) - alpha*tau*x
		variance += sigma2*tau*x*x + tau*v*v*vol*vol

		if grad == nil {
			continue
		}
		// Partial derivatives in x_k (holding n fixed) and in n_k.
		meanX := tau*p.Permanent.Evaluate(v) - alpha*tau
		meanN := x*p.Permanent.Derivative(v) + p.Temporary.Evaluate(v) + v*p.Temporary.Derivative(v)
		varX := 2 * sigma2 * tau * x
		varN := 2*v*vol*vol + 2*v*v*vol*p.ExecutionVolatilityDerivative(v)

		dMean[k] += meanX - meanN
		dVar[k] += varX - varN
		dMean[k-1] += meanN
		dVar[k-1] += varN
	}

	if grad != nil {
		wMean, wVar := o.utility.Sensitivity(mean, variance)
		for i := range grad {
			grad[i] = (wMean*dMean[i+1] + wVar*dVar[i+1]) * o.size / o.scale
		}
	}
	return o.utility.Utility(mean, variance) / o.scale
}
