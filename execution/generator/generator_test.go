package generator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/meenmo/quantlib/execution/capture"
	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/generator"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

// Almgren-Chriss (2000) sample: 1e6 shares of a $50 stock, 30% annual vol,
// 10% annual return, liquidated over 5 days.
func acParams(t *testing.T) dynamics.PriceEvolutionParameters {
	t.Helper()

	dyn, err := dynamics.FromAnnualReturnsSettings(0.10, 0.30, 0, 50)
	require.NoError(t, err)
	params, err := dynamics.LinearExpectation(dyn,
		dynamics.SlopeOnly(2.5e-7),
		dynamics.ParticipationRateLinear{Offset: 0.0625, Slope: 2.5e-6},
	)
	require.NoError(t, err)
	return params
}

func acControl(t *testing.T, n int) strategy.DiscreteTrajectoryControl {
	t.Helper()

	order, err := strategy.NewOrderSpecification(1e6, 5)
	require.NoError(t, err)
	control, err := strategy.FixedInterval(order, n)
	require.NoError(t, err)
	return control
}

func meanVariance(t *testing.T, lambda float64) risk.MeanVarianceObjectiveUtility {
	t.Helper()

	u, err := risk.NewMeanVariance(lambda)
	require.NoError(t, err)
	return u
}

func TestAlmgrenChriss2000_ReferenceUrgency(t *testing.T) {
	t.Parallel()

	out, err := generator.AlmgrenChriss2000(acControl(t, 5), acParams(t), meanVariance(t, 1e-6))
	require.NoError(t, err)

	assert.InDelta(t, 2.375e-6, out.EtaTilda, 1e-15)
	assert.InDelta(t, 0.6156, out.KappaTilda, 1e-3)
	assert.InDelta(t, 0.6063, out.Kappa, 1e-3)
	assert.InDelta(t, 1/out.Kappa, out.HalfLife(), 1e-12)
	assert.InDelta(t, 0.02/(2*0.9e-6), out.DriftTarget, 1e-6)

	h := out.Holdings
	require.Len(t, h, 6)
	assert.Equal(t, 1e6, h[0])
	assert.Equal(t, 0.0, h[5])
	for k := 1; k < len(h); k++ {
		assert.Less(t, h[k], h[k-1], "holdings must decrease at node %d", k)
	}
}

func TestAlmgrenChriss2000_SatisfiesEulerLagrange(t *testing.T) {
	t.Parallel()

	out, err := generator.AlmgrenChriss2000(acControl(t, 10), acParams(t), meanVariance(t, 1e-6))
	require.NoError(t, err)

	tau := 0.5
	h := out.Holdings
	for j := 1; j < len(h)-1; j++ {
		lhs := (h[j-1] - 2*h[j] + h[j+1]) / (tau * tau)
		rhs := out.KappaTilda * out.KappaTilda * (h[j] - out.DriftTarget)
		assert.InDelta(t, rhs, lhs, 1e-6*math.Abs(rhs)+1e-6, "node %d", j)
	}
}

func TestAlmgrenChriss2000_ReconcilesWithEstimator(t *testing.T) {
	t.Parallel()

	params := acParams(t)
	out, err := generator.AlmgrenChriss2000(acControl(t, 5), params, meanVariance(t, 1e-6))
	require.NoError(t, err)

	syn, err := capture.TotalCostDistributionSynopsis(out.DiscreteTrajectory, params)
	require.NoError(t, err)
	assert.InEpsilon(t, syn.Mean, out.TransactionCostExpectation, 1e-9)
	assert.InEpsilon(t, syn.Variance, out.TransactionCostVariance, 1e-9)
	assert.InEpsilon(t, syn.Mean+1e-6*syn.Variance, out.Utility, 1e-9)
}

func TestAlmgrenChriss2000_RiskNeutralWithoutDriftIsLinear(t *testing.T) {
	t.Parallel()

	params := acParams(t)
	params.Dynamics.Drift = 0
	control := acControl(t, 5)

	out, err := generator.AlmgrenChriss2000(control, params, meanVariance(t, 0))
	require.NoError(t, err)
	linear, err := strategy.LinearTrajectory(control)
	require.NoError(t, err)

	assert.InDeltaSlice(t, linear.Holdings, out.Holdings, 1e-6)
	assert.Zero(t, out.Kappa)
	assert.True(t, math.IsInf(out.HalfLife(), 1))
}

func TestAlmgrenChriss2000_RejectsInvalidInputs(t *testing.T) {
	t.Parallel()

	order, err := strategy.NewOrderSpecification(1e6, 3)
	require.NoError(t, err)
	uneven, err := strategy.NewDiscreteTrajectoryControl(order, []float64{0, 1, 3})
	require.NoError(t, err)

	_, err = generator.AlmgrenChriss2000(uneven, acParams(t), meanVariance(t, 1e-6))
	assert.ErrorIs(t, err, generator.ErrNonUniformControl)

	cheap := acParams(t)
	cheap.Temporary.Slope = 1e-7
	_, err = generator.AlmgrenChriss2000(acControl(t, 5), cheap, meanVariance(t, 1e-6))
	assert.ErrorContains(t, err, "must be positive")

	noisy := acParams(t)
	noisy.TemporaryVolatility = dynamics.SlopeOnly(1e-3)
	_, err = generator.AlmgrenChriss2000(acControl(t, 5), noisy, meanVariance(t, 1e-6))
	assert.ErrorIs(t, err, generator.ErrUnsupportedWalk)
}

func TestAlmgrenChriss2000Standard(t *testing.T) {
	t.Parallel()

	a, err := generator.AlmgrenChriss2000Standard(1e6, 5, 5, acParams(t), 1e-6)
	require.NoError(t, err)
	b, err := generator.AlmgrenChriss2000(acControl(t, 5), acParams(t), meanVariance(t, 1e-6))
	require.NoError(t, err)
	assert.Equal(t, b.Holdings, a.Holdings)

	_, err = generator.AlmgrenChriss2000Standard(1e6, 5, 5, acParams(t), -1)
	assert.Error(t, err)
}

func TestOptimalDiscrete_MatchesClosedForm(t *testing.T) {
	t.Parallel()

	control := acControl(t, 5)
	params := acParams(t)
	closed, err := generator.AlmgrenChriss2000(control, params, meanVariance(t, 1e-6))
	require.NoError(t, err)

	numerical, err := generator.OptimalDiscrete(control, params, meanVariance(t, 1e-6), generator.NumericalSettings{})
	require.NoError(t, err)

	assert.InDeltaSlice(t, closed.Holdings, numerical.Holdings, 1)
	assert.InEpsilon(t, closed.Utility, numerical.Utility, 1e-9)
}

func TestOptimalDiscrete_MedianValueAtRiskIsRiskNeutral(t *testing.T) {
	t.Parallel()

	control := acControl(t, 5)
	params := acParams(t)
	median, err := risk.NewValueAtRisk(0.5)
	require.NoError(t, err)

	numerical, err := generator.OptimalDiscrete(control, params, median, generator.NumericalSettings{})
	require.NoError(t, err)
	neutral, err := generator.AlmgrenChriss2000(control, params, meanVariance(t, 0))
	require.NoError(t, err)

	assert.InDeltaSlice(t, neutral.Holdings, numerical.Holdings, 1)
}

func TestOptimalDiscrete_ValueAtRiskBeatsLinear(t *testing.T) {
	t.Parallel()

	control := acControl(t, 8)
	params := acParams(t)
	v, err := risk.NewValueAtRisk(0.95)
	require.NoError(t, err)

	out, err := generator.OptimalDiscrete(control, params, v, generator.NumericalSettings{})
	require.NoError(t, err)

	linear, err := strategy.LinearTrajectory(control)
	require.NoError(t, err)
	syn, err := capture.TotalCostDistributionSynopsis(linear, params)
	require.NoError(t, err)

	assert.Less(t, out.Utility, v.Utility(syn.Mean, syn.Variance))
	assert.Less(t, out.Holdings[1], linear.Holdings[1], "risk aversion front-loads the sale")
}

func TestOptimalDiscrete_SingleInterval(t *testing.T) {
	t.Parallel()

	out, err := generator.OptimalDiscrete(acControl(t, 1), acParams(t), meanVariance(t, 1e-6), generator.NumericalSettings{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1e6, 0}, out.Holdings)
}

func TestOptimalDiscrete_RejectsMissingUtility(t *testing.T) {
	t.Parallel()

	_, err := generator.OptimalDiscrete(acControl(t, 5), acParams(t), nil, generator.NumericalSettings{})
	assert.ErrorContains(t, err, "utility is required")
}

func TestOptimalDiscrete_RejectsMismatchedInitial(t *testing.T) {
	t.Parallel()

	seed, err := strategy.LinearTrajectory(acControl(t, 3))
	require.NoError(t, err)
	_, err = generator.OptimalDiscrete(acControl(t, 5), acParams(t), meanVariance(t, 1e-6), generator.NumericalSettings{Initial: &seed})
	assert.ErrorIs(t, err, strategy.ErrInvalidTrajectory)
}

func TestContinuousAlmgrenChriss_ClosedFormMatchesQuadrature(t *testing.T) {
	t.Parallel()

	params := acParams(t)
	params.Dynamics.Drift = 0
	order := acControl(t, 1).Order

	out, err := generator.ContinuousAlmgrenChriss(order, params, meanVariance(t, 1e-6))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.9e-6/2.5e-6), out.Kappa, 1e-12)

	grid := make([]float64, 4001)
	floats.Span(grid, 0, 5)
	x2 := make([]float64, len(grid))
	v2 := make([]float64, len(grid))
	for i, ti := range grid {
		x := out.Holdings(ti)
		v := out.TradeRate(ti)
		x2[i], v2[i] = x*x, v*v
	}
	X := 1e6
	mean := 0.5*2.5e-7*X*X + 0.0625*X + 2.5e-6*integrate.Simpsons(grid, v2)
	variance := 0.9 * integrate.Simpsons(grid, x2)

	assert.InEpsilon(t, mean, out.TransactionCostExpectation, 1e-8)
	assert.InEpsilon(t, variance, out.TransactionCostVariance, 1e-8)
	assert.InDelta(t, X, out.Holdings(0), 1e-6)
	assert.InDelta(t, 0, out.Holdings(5), 1e-6)
}

func TestContinuousAlmgrenChriss_TradeRateIsHoldingsSlope(t *testing.T) {
	t.Parallel()

	out, err := generator.ContinuousAlmgrenChriss(acControl(t, 1).Order, acParams(t), meanVariance(t, 1e-6))
	require.NoError(t, err)

	const h = 1e-5
	for _, ti := range []float64{0.5, 2.5, 4.5} {
		slope := (out.Holdings(ti+h) - out.Holdings(ti-h)) / (2 * h)
		assert.InEpsilon(t, -slope, out.TradeRate(ti), 1e-5, "t=%v", ti)
	}
}

func TestContinuousAlmgrenChriss_LimitOfFineDiscreteGrid(t *testing.T) {
	t.Parallel()

	params := acParams(t)
	continuous, err := generator.ContinuousAlmgrenChriss(acControl(t, 1).Order, params, meanVariance(t, 1e-6))
	require.NoError(t, err)
	discrete, err := generator.AlmgrenChriss2000(acControl(t, 1000), params, meanVariance(t, 1e-6))
	require.NoError(t, err)

	assert.InDelta(t, continuous.Holdings(2.5), discrete.Holdings[500], 1e-3*1e6)
	assert.InEpsilon(t, continuous.Utility, discrete.Utility, 1e-2)
}

func TestConstantTradingEnhanced_ReducesUrgency(t *testing.T) {
	t.Parallel()

	order := acControl(t, 1).Order
	base := acParams(t)
	base.Dynamics.Drift = 0

	plain, err := generator.ContinuousAlmgrenChriss(order, base, meanVariance(t, 1e-6))
	require.NoError(t, err)
	same, err := generator.ConstantTradingEnhanced(order, base, meanVariance(t, 1e-6))
	require.NoError(t, err)
	assert.InDelta(t, plain.Kappa, same.Kappa, 1e-15)
	assert.InEpsilon(t, plain.Utility, same.Utility, 1e-12)

	noisy := base
	noisy.TemporaryVolatility = dynamics.ParticipationRateLinear{Offset: 1.5}
	enhanced, err := generator.ConstantTradingEnhanced(order, noisy, meanVariance(t, 1e-6))
	require.NoError(t, err)

	assert.InDelta(t, math.Sqrt(0.9e-6/(2.5e-6+1e-6*2.25)), enhanced.Kappa, 1e-12)
	assert.Greater(t, enhanced.Holdings(2.5), plain.Holdings(2.5))
	assert.Greater(t, enhanced.TransactionCostVariance, plain.TransactionCostVariance)

	noisy.TemporaryVolatility.Slope = 1e-3
	_, err = generator.ConstantTradingEnhanced(order, noisy, meanVariance(t, 1e-6))
	assert.ErrorIs(t, err, generator.ErrUnsupportedWalk)
}

func TestOptimalDiscrete_ConstantTradingEnhancedActsAsExtraImpact(t *testing.T) {
	t.Parallel()

	order, err := strategy.NewOrderSpecification(1000, 10)
	require.NoError(t, err)
	control, err := strategy.FixedInterval(order, 20)
	require.NoError(t, err)
	utility := meanVariance(t, 0.01)

	enhanced, err := dynamics.TradingEnhanced(1, dynamics.SlopeOnly(0.05), dynamics.ParticipationRateLinear{Offset: 1})
	require.NoError(t, err)
	numerical, err := generator.OptimalDiscrete(control, enhanced, utility, generator.NumericalSettings{})
	require.NoError(t, err)

	// λα₀² = 0.01 folds into the temporary slope.
	equivalent, err := dynamics.TradingEnhanced(1, dynamics.SlopeOnly(0.06), dynamics.ParticipationRateLinear{})
	require.NoError(t, err)
	closed, err := generator.AlmgrenChriss2000(control, equivalent, utility)
	require.NoError(t, err)

	assert.InDeltaSlice(t, closed.Holdings, numerical.Holdings, 1e-3)
}

func TestAlmgren2003LinearTradingEnhanced(t *testing.T) {
	t.Parallel()

	order, err := strategy.NewOrderSpecification(1000, 10)
	require.NoError(t, err)
	control, err := strategy.FixedInterval(order, 20)
	require.NoError(t, err)
	utility := meanVariance(t, 0.01)

	params, err := dynamics.TradingEnhanced(1, dynamics.SlopeOnly(0.05), dynamics.SlopeOnly(0.02))
	require.NoError(t, err)

	out, err := generator.Almgren2003LinearTradingEnhanced(control, params, utility, generator.NumericalSettings{})
	require.NoError(t, err)

	tStar := math.Sqrt(0.05 / 0.01)
	assert.InDelta(t, tStar, out.CharacteristicTime, 1e-12)
	assert.InDelta(t, math.Sqrt(3)*tStar*tStar/0.02, out.CharacteristicSize, 1e-9)
	assert.Equal(t, 1000.0, out.Holdings[0])
	assert.Equal(t, 0.0, out.Holdings[20])

	// Neither the linear schedule nor the plain Almgren-Chriss one does
	// better once execution noise is priced in.
	linear, err := strategy.LinearTrajectory(control)
	require.NoError(t, err)
	plainParams := params
	plainParams.TemporaryVolatility = dynamics.ParticipationRateLinear{}
	plain, err := generator.AlmgrenChriss2000(control, plainParams, utility)
	require.NoError(t, err)

	for _, rival := range []strategy.DiscreteTrajectory{linear, plain.DiscreteTrajectory} {
		syn, err := capture.TotalCostDistributionSynopsis(rival, params)
		require.NoError(t, err)
		assert.LessOrEqual(t, out.Utility, utility.Utility(syn.Mean, syn.Variance)+1e-9)
	}

	constant := params
	constant.TemporaryVolatility = dynamics.ParticipationRateLinear{Offset: 1}
	_, err = generator.Almgren2003LinearTradingEnhanced(control, constant, utility, generator.NumericalSettings{})
	assert.ErrorIs(t, err, generator.ErrUnsupportedWalk)
}
