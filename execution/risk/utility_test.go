package risk_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/quantlib/execution/risk"
)

func TestMeanVariance(t *testing.T) {
	t.Parallel()

	mv, err := risk.NewMeanVariance(1e-6)
	require.NoError(t, err)

	assert.InDelta(t, 100+1e-6*4e12, mv.Utility(100, 4e12), 1e-9)
	dm, dv := mv.Sensitivity(0, 0)
	assert.Equal(t, 1.0, dm)
	assert.Equal(t, 1e-6, dv)

	_, err = risk.NewMeanVariance(-1)
	require.Error(t, err)
}

func TestValueAtRisk(t *testing.T) {
	t.Parallel()

	v, err := risk.NewValueAtRisk(0.95)
	require.NoError(t, err)
	assert.InDelta(t, 1.644854, v.Multiplier(), 1e-6)

	assert.InDelta(t, 10+1.644854*3, v.Utility(10, 9), 1e-5)

	_, dv := v.Sensitivity(10, 9)
	assert.InDelta(t, 0.5*1.644854/3, dv, 1e-6)

	_, dv = v.Sensitivity(10, 0)
	assert.Zero(t, dv)

	var u risk.ObjectiveUtility = v
	assert.False(t, math.IsNaN(u.Utility(0, -1)))

	_, err = risk.NewValueAtRisk(1)
	require.Error(t, err)
}

func TestValueAtRisk_LiteralMatchesConstructor(t *testing.T) {
	t.Parallel()

	built, err := risk.NewValueAtRisk(0.95)
	require.NoError(t, err)
	literal := risk.ValueAtRiskObjectiveUtility{Confidence: 0.95}

	assert.InDelta(t, built.Utility(10, 100), literal.Utility(10, 100), 1e-12)
	assert.InDelta(t, 10+1.644854*10, literal.Utility(10, 100), 1e-5)

	_, want := built.Sensitivity(10, 100)
	_, got := literal.Sensitivity(10, 100)
	assert.InDelta(t, want, got, 1e-12)
}
