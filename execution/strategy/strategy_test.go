package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/quantlib/execution/strategy"
)

func TestFixedInterval(t *testing.T) {
	t.Parallel()

	order, err := strategy.NewOrderSpecification(1e6, 5)
	require.NoError(t, err)

	control, err := strategy.FixedInterval(order, 5)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, control.ExecutionTimeNodes)
	assert.Equal(t, 5, control.NumIntervals())
	assert.True(t, control.IsUniform())
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, control.Intervals())
}

func TestOrderSpecification_Invalid(t *testing.T) {
	t.Parallel()

	_, err := strategy.NewOrderSpecification(0, 5)
	require.Error(t, err)

	_, err = strategy.NewOrderSpecification(100, -1)
	require.Error(t, err)

	order, err := strategy.NewOrderSpecification(100, 1)
	require.NoError(t, err)
	_, err = strategy.FixedInterval(order, 0)
	require.Error(t, err)
}

func TestNewDiscreteTrajectoryControl_RejectsBadNodes(t *testing.T) {
	t.Parallel()

	order, err := strategy.NewOrderSpecification(100, 2)
	require.NoError(t, err)

	_, err = strategy.NewDiscreteTrajectoryControl(order, []float64{0, 1, 1, 2})
	require.ErrorIs(t, err, strategy.ErrInvalidTrajectory)

	_, err = strategy.NewDiscreteTrajectoryControl(order, []float64{0, 1, 3})
	require.Error(t, err)

	control, err := strategy.NewDiscreteTrajectoryControl(order, []float64{0, 0.5, 2})
	require.NoError(t, err)
	assert.False(t, control.IsUniform())
}

func TestDiscreteTrajectoryControl_NoIntervals(t *testing.T) {
	t.Parallel()

	for _, control := range []strategy.DiscreteTrajectoryControl{
		{},
		{ExecutionTimeNodes: []float64{0}},
	} {
		assert.NotPanics(t, func() { control.IsUniform() })
		assert.True(t, control.IsUniform())
		assert.Empty(t, control.Intervals())
		assert.Zero(t, control.NumIntervals())
	}

	var traj strategy.DiscreteTrajectory
	assert.Empty(t, traj.TradeRates())
}

func TestNewDiscreteTrajectory_TradeList(t *testing.T) {
	t.Parallel()

	traj, err := strategy.NewDiscreteTrajectory([]float64{0, 1, 3}, []float64{100, 60, 0})
	require.NoError(t, err)

	assert.Equal(t, []float64{40, 60}, traj.TradeList)
	assert.Equal(t, []float64{40, 30}, traj.TradeRates())
	assert.Equal(t, 3.0, traj.ExecutionTime())
	assert.Equal(t, 100.0, traj.InitialHoldings())

	_, err = strategy.NewDiscreteTrajectory([]float64{0, 1}, []float64{100})
	require.ErrorIs(t, err, strategy.ErrInvalidTrajectory)
}

func TestLinearTrajectory(t *testing.T) {
	t.Parallel()

	order, err := strategy.NewOrderSpecification(1000, 4)
	require.NoError(t, err)
	control, err := strategy.FixedInterval(order, 4)
	require.NoError(t, err)

	traj, err := strategy.LinearTrajectory(control)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 750, 500, 250, 0}, traj.Holdings)
	assert.Equal(t, []float64{250, 250, 250, 250}, traj.TradeList)
}

func TestRoundToLots_PreservesOrderSize(t *testing.T) {
	t.Parallel()

	traj, err := strategy.NewDiscreteTrajectory(
		[]float64{0, 1, 2, 3, 4},
		[]float64{10000, 7312.4, 4899.51, 2251.2, 0},
	)
	require.NoError(t, err)

	rounded, err := traj.RoundToLots(100)
	require.NoError(t, err)

	assert.Equal(t, []float64{10000, 7300, 4900, 2300, 0}, rounded.Holdings)
	assert.InDelta(t, 10000, floats.Sum(rounded.TradeList), 1e-9)

	_, err = traj.RoundToLots(0)
	require.Error(t, err)
}

func TestContinuousTrajectory_Sample(t *testing.T) {
	t.Parallel()

	ct := strategy.ContinuousTrajectory{
		ExecutionTime: 2,
		Holdings:      func(t float64) float64 { return 10 * (1 - t/2) },
		TradeRate:     func(float64) float64 { return 5 },
	}

	traj, err := ct.Sample([]float64{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 5, 0}, traj.Holdings)

	_, err = strategy.ContinuousTrajectory{}.Sample([]float64{0, 1})
	require.ErrorIs(t, err, strategy.ErrInvalidTrajectory)
}
