package adaptive

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/quantlib/execution/generator"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

// ErrInvalidMarketStates is returned for market state paths the dynamic
// generator cannot use.
var ErrInvalidMarketStates = errors.New("invalid market states")

// TradeRateInitializer seeds the trade rate in force before the first
// observed state has been acted on.
type TradeRateInitializer int

const (
	// TradeRateZeroInitialization starts from rest: the first interval is
	// already traded adaptively off the state observed at t = 0.
	TradeRateZeroInitialization TradeRateInitializer = iota + 1
	// TradeRateStaticInitialization starts from the static trajectory's v(0)
	// and follows the static schedule over the first interval.
	TradeRateStaticInitialization
)

func (t TradeRateInitializer) String() string {
	switch t {
	case TradeRateZeroInitialization:
		return "zero"
	case TradeRateStaticInitialization:
		return "static"
	default:
		return fmt.Sprintf("TradeRateInitializer(%d)", int(t))
	}
}

// ParseTradeRateInitializer maps "zero" or "static" to an initializer.
func ParseTradeRateInitializer(name string) (TradeRateInitializer, error) {
	switch name {
	case "zero", "":
		return TradeRateZeroInitialization, nil
	case "static":
		return TradeRateStaticInitialization, nil
	default:
		return 0, fmt.Errorf("ParseTradeRateInitializer: unknown initializer %q", name)
	}
}

// CoordinatedVariationStatic is the non-adaptive benchmark: the continuous
// Almgren-Chriss trajectory at the reference parameters.
type CoordinatedVariationStatic struct {
	Determinant TrajectoryDeterminant
	Trajectory  generator.EfficientContinuousTrajectory
}

// CoordinatedVariationDynamic is the adaptive trajectory realised along an
// observed market state path.
type CoordinatedVariationDynamic struct {
	Determinant        TrajectoryDeterminant
	ExecutionTimeNodes []float64
	MarketStates       []float64
	// NonDimensionalHoldings is x/X at each node.
	NonDimensionalHoldings []float64
	// NonDimensionalTradeRate[i] is θv/X at the start of the interval ending
	// at node i; entry 0 comes from the initializer.
	NonDimensionalTradeRate []float64
	// NonDimensionalCost is c(s_i, ϑ_i); the cost to go is CostScale·(x/X)²·c.
	NonDimensionalCost []float64
	// RealizedCost is the temporary impact paid along the path,
	// Σ η(s_i) n_i²/Δt.
	RealizedCost float64
}

// Holdings returns the holdings in shares.
func (d CoordinatedVariationDynamic) Holdings() []float64 {
	out := make([]float64, len(d.NonDimensionalHoldings))
	for i, y := range d.NonDimensionalHoldings {
		out[i] = y * d.Determinant.ExecutionSize
	}
	return out
}

// Trajectory returns the discrete holdings schedule.
func (d CoordinatedVariationDynamic) Trajectory() (strategy.DiscreteTrajectory, error) {
	return strategy.NewDiscreteTrajectory(d.ExecutionTimeNodes, d.Holdings())
}

// CostToGo returns CostScale·(x_i/X)²·c_i at each node.
func (d CoordinatedVariationDynamic) CostToGo() []float64 {
	out := make([]float64, len(d.NonDimensionalCost))
	for i, c := range d.NonDimensionalCost {
		y := d.NonDimensionalHoldings[i]
		out[i] = d.Determinant.CostScale * y * y * c
	}
	return out
}

// CoordinatedVariationTrajectoryGenerator builds static and adaptive
// trajectories for an order under coordinated variation.
type CoordinatedVariationTrajectoryGenerator struct {
	order       strategy.OrderSpecification
	variation   CoordinatedVariation
	utility     risk.MeanVarianceObjectiveUtility
	evolver     *CostEvolver
	initializer TradeRateInitializer
}

// NewCoordinatedVariationTrajectoryGenerator validates the inputs.
func NewCoordinatedVariationTrajectoryGenerator(order strategy.OrderSpecification, cv CoordinatedVariation, utility risk.MeanVarianceObjectiveUtility, evolver *CostEvolver, initializer TradeRateInitializer) (*CoordinatedVariationTrajectoryGenerator, error) {
	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("NewCoordinatedVariationTrajectoryGenerator: %w", err)
	}
	if !(cv.ReferenceLiquidity > 0) {
		return nil, fmt.Errorf("NewCoordinatedVariationTrajectoryGenerator: reference liquidity must be positive")
	}
	if evolver == nil {
		return nil, fmt.Errorf("NewCoordinatedVariationTrajectoryGenerator: cost evolver is required")
	}
	if initializer != TradeRateZeroInitialization && initializer != TradeRateStaticInitialization {
		return nil, fmt.Errorf("NewCoordinatedVariationTrajectoryGenerator: unknown trade rate initializer %v", initializer)
	}
	return &CoordinatedVariationTrajectoryGenerator{
		order:       order,
		variation:   cv,
		utility:     utility,
		evolver:     evolver,
		initializer: initializer,
	}, nil
}

// TrajectoryDeterminant returns the non-dimensional scales of the problem.
func (g *CoordinatedVariationTrajectoryGenerator) TrajectoryDeterminant() TrajectoryDeterminant {
	return newTrajectoryDeterminant(g.order.Size, g.evolver.Process.RelaxationTime, g.utility.RiskAversion, g.variation)
}

// GenerateStatic returns the continuous Almgren-Chriss trajectory at s = 0.
func (g *CoordinatedVariationTrajectoryGenerator) GenerateStatic() (CoordinatedVariationStatic, error) {
	traj, err := generator.ContinuousAlmgrenChriss(g.order, g.variation.ReferenceParameters(), g.utility)
	if err != nil {
		return CoordinatedVariationStatic{}, fmt.Errorf("GenerateStatic: %w", err)
	}
	return CoordinatedVariationStatic{Determinant: g.TrajectoryDeterminant(), Trajectory: traj}, nil
}

// GenerateDynamic trades along marketStates, observed at equally spaced
// nodes spanning the execution horizon. Over each interval the holdings
// decay by exp(−∫g dϑ) with g taken in the state observed at the start of
// the interval; the last interval liquidates. Under the static initializer
// the first interval instead follows the static schedule.
func (g *CoordinatedVariationTrajectoryGenerator) GenerateDynamic(marketStates []float64) (CoordinatedVariationDynamic, error) {
	if len(marketStates) < 2 {
		return CoordinatedVariationDynamic{}, fmt.Errorf("GenerateDynamic: need at least 2 market states, got %d: %w", len(marketStates), ErrInvalidMarketStates)
	}
	for i, s := range marketStates {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return CoordinatedVariationDynamic{}, fmt.Errorf("GenerateDynamic: non-finite market state at node %d: %w", i, ErrInvalidMarketStates)
		}
	}

	det := g.TrajectoryDeterminant()
	N := len(marketStates) - 1
	T := g.order.MaxExecutionTime
	dt := T / float64(N)
	step := dt / det.RelaxationTime

	// Surface index k holds remaining time (k+1)·Δϑ; node i has N−i intervals left.
	remaining := make([]float64, N)
	for k := range remaining {
		remaining[k] = float64(k+1) * step
	}
	surface, err := g.evolver.Solve(det.NonDimensionalUrgency, remaining, marketStates)
	if err != nil {
		return CoordinatedVariationDynamic{}, fmt.Errorf("GenerateDynamic: %w", err)
	}

	out := CoordinatedVariationDynamic{
		Determinant:             det,
		ExecutionTimeNodes:      make([]float64, N+1),
		MarketStates:            append([]float64(nil), marketStates...),
		NonDimensionalHoldings:  make([]float64, N+1),
		NonDimensionalTradeRate: make([]float64, N+1),
		NonDimensionalCost:      make([]float64, N+1),
	}
	for i := range out.ExecutionTimeNodes {
		out.ExecutionTimeNodes[i] = dt * float64(i)
	}
	out.ExecutionTimeNodes[N] = T

	var static *strategy.ContinuousTrajectory
	if g.initializer == TradeRateStaticInitialization {
		st, err := g.GenerateStatic()
		if err != nil {
			return CoordinatedVariationDynamic{}, fmt.Errorf("GenerateDynamic: %w", err)
		}
		static = &st.Trajectory.ContinuousTrajectory
		out.NonDimensionalTradeRate[0] = static.TradeRate(0) / det.TradeRateScale
	}

	out.NonDimensionalHoldings[0] = 1
	for i := 0; i < N; i++ {
		s := marketStates[i]
		k := N - i - 1

		sens, err := surface.SensitivityAt(k, s)
		if err != nil {
			return CoordinatedVariationDynamic{}, fmt.Errorf("GenerateDynamic: %w", err)
		}
		y := out.NonDimensionalHoldings[i]
		out.NonDimensionalTradeRate[i+1] = y * sens
		out.NonDimensionalCost[i] = math.Exp(s) * sens

		switch {
		case k == 0:
			out.NonDimensionalHoldings[i+1] = 0
		case i == 0 && static != nil:
			out.NonDimensionalTradeRate[1] = out.NonDimensionalTradeRate[0]
			out.NonDimensionalHoldings[1] = static.Holdings(out.ExecutionTimeNodes[1]) / det.ExecutionSize
		default:
			from, err := surface.IntegralAt(k, s)
			if err != nil {
				return CoordinatedVariationDynamic{}, fmt.Errorf("GenerateDynamic: %w", err)
			}
			to, err := surface.IntegralAt(k-1, s)
			if err != nil {
				return CoordinatedVariationDynamic{}, fmt.Errorf("GenerateDynamic: %w", err)
			}
			out.NonDimensionalHoldings[i+1] = y * math.Exp(-(from - to))
		}

		trade := (y - out.NonDimensionalHoldings[i+1]) * det.ExecutionSize
		out.RealizedCost += g.variation.Liquidity(s) * trade * trade / dt
	}

	return out, nil
}
