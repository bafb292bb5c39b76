package swap_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/quantlib/swap"
	"github.com/meenmo/quantlib/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCurve(t *testing.T) *swap.NodeCurve {
	t.Helper()
	ref := date(2026, time.January, 15)
	curve, err := swap.NewZeroCurve(ref,
		[]time.Time{date(2027, time.January, 15), date(2028, time.January, 15), date(2031, time.January, 15), date(2036, time.January, 15)},
		[]float64{0.020, 0.022, 0.026, 0.030},
	)
	require.NoError(t, err)
	return curve
}

func testSwap(direction swap.Position, rate float64) swap.InterestRateSwap {
	return swap.InterestRateSwap{
		Effective: date(2026, time.January, 15),
		Maturity:  date(2031, time.January, 15),
		Notional:  10_000_000,
		FixedRate: rate,
		Direction: direction,
		FixedLeg:  swap.LegConvention{PaymentMonths: 12, DayCount: utils.Thirty360E},
		FloatLeg:  swap.LegConvention{PaymentMonths: 6, DayCount: utils.ACT360},
	}
}

func TestNodeCurveInterpolation(t *testing.T) {
	t.Parallel()

	ref := date(2026, time.January, 1)
	p1 := ref.AddDate(0, 0, 365)
	p2 := ref.AddDate(0, 0, 730)
	curve, err := swap.NewNodeCurve(ref, []time.Time{p2, p1}, []float64{0.94, 0.97})
	require.NoError(t, err)

	assert.Equal(t, 1.0, curve.DF(ref))
	assert.InDelta(t, 0.97, curve.DF(p1), 1e-12)
	assert.InDelta(t, 0.94, curve.DF(p2), 1e-12)

	mid := ref.AddDate(0, 0, 365+182)
	w := 182.0 / 365.0
	want := math.Exp((1-w)*math.Log(0.97) + w*math.Log(0.94))
	assert.InDelta(t, want, curve.DF(mid), 1e-12)

	// Flat zero rate beyond the last pillar.
	far := ref.AddDate(0, 0, 1460)
	assert.InDelta(t, curve.ZeroRateAt(p2), curve.ZeroRateAt(far), 1e-12)
}

func TestNodeCurveRejectsBadNodes(t *testing.T) {
	t.Parallel()

	ref := date(2026, time.January, 1)
	_, err := swap.NewNodeCurve(ref, []time.Time{ref}, []float64{1})
	require.ErrorIs(t, err, swap.ErrInvalidCurveNodes)

	_, err = swap.NewNodeCurve(ref, []time.Time{ref.AddDate(1, 0, 0)}, []float64{-0.5})
	require.ErrorIs(t, err, swap.ErrInvalidCurveNodes)

	_, err = swap.NewNodeCurve(ref, []time.Time{ref.AddDate(1, 0, 0), ref.AddDate(1, 0, 0)}, []float64{0.98, 0.97})
	require.ErrorIs(t, err, swap.ErrInvalidCurveNodes)

	_, err = swap.NewNodeCurve(ref, nil, nil)
	require.ErrorIs(t, err, swap.ErrInvalidCurveNodes)
}

func TestGenerateScheduleFrontStub(t *testing.T) {
	t.Parallel()

	periods, err := swap.GenerateSchedule(date(2026, time.March, 1), date(2027, time.January, 15),
		swap.LegConvention{PaymentMonths: 6, DayCount: utils.ACT365F})
	require.NoError(t, err)
	require.Len(t, periods, 2)

	assert.Equal(t, date(2026, time.March, 1), periods[0].StartDate)
	assert.Equal(t, date(2026, time.July, 15), periods[0].EndDate)
	assert.Equal(t, date(2027, time.January, 15), periods[1].EndDate)
	assert.Equal(t, periods[1].EndDate, periods[1].PayDate)
	assert.InDelta(t, 136.0/365.0, periods[0].Accrual, 1e-12)

	_, err = swap.GenerateSchedule(date(2027, time.January, 15), date(2026, time.January, 15), swap.LegConvention{PaymentMonths: 6, DayCount: utils.ACT360})
	require.Error(t, err)
}

func TestFloatLegTelescopes(t *testing.T) {
	t.Parallel()

	curve := testCurve(t)
	irs := testSwap(swap.PositionReceive, 2.5)

	_, pvFloat, err := irs.PVByLeg(curve)
	require.NoError(t, err)
	assert.InDelta(t, irs.Notional*(1-curve.DF(irs.Maturity)), pvFloat, 1e-6)
}

func TestParRateZeroesNPV(t *testing.T) {
	t.Parallel()

	curve := testCurve(t)
	irs := testSwap(swap.PositionReceive, 0)

	par, err := irs.ParRate(curve)
	require.NoError(t, err)
	assert.Greater(t, par, 2.0)
	assert.Less(t, par, 3.0)

	irs.FixedRate = par
	npv, err := irs.NPV(curve)
	require.NoError(t, err)
	assert.InDelta(t, 0, npv, 1e-6)

	spread, err := irs.FloatSpreadBP(curve)
	require.NoError(t, err)
	assert.InDelta(t, 0, spread, 1e-9)
}

func TestPV01MatchesBump(t *testing.T) {
	t.Parallel()

	curve := testCurve(t)
	for _, dir := range []swap.Position{swap.PositionReceive, swap.PositionPay} {
		irs := testSwap(dir, 2.4)
		base, err := irs.NPV(curve)
		require.NoError(t, err)

		irs.FixedRate += 0.01
		bumped, err := irs.NPV(curve)
		require.NoError(t, err)

		pv01, err := irs.PV01(curve)
		require.NoError(t, err)
		assert.InDelta(t, bumped-base, pv01, 1e-6, string(dir))
	}
}

func TestDirectionFlipsSign(t *testing.T) {
	t.Parallel()

	curve := testCurve(t)
	rec, err := testSwap(swap.PositionReceive, 3.0).NPV(curve)
	require.NoError(t, err)
	pay, err := testSwap(swap.PositionPay, 3.0).NPV(curve)
	require.NoError(t, err)

	assert.Greater(t, rec, 0.0)
	assert.InDelta(t, -rec, pay, 1e-9)
}

func TestFloatSpreadOffPar(t *testing.T) {
	t.Parallel()

	curve := testCurve(t)
	irs := testSwap(swap.PositionReceive, 3.0)

	spread, err := irs.FloatSpreadBP(curve)
	require.NoError(t, err)

	_, pvFloat, err := irs.PVByLeg(curve)
	require.NoError(t, err)
	pvFixed, _, err := irs.PVByLeg(curve)
	require.NoError(t, err)

	irsFloat := irs
	irsFloat.FixedLeg = irs.FloatLeg
	irsFloat.FixedRate = 1
	annuity, err := irsFloat.PV01(curve)
	require.NoError(t, err)
	assert.InDelta(t, pvFixed, pvFloat+spread*annuity, 1e-6)
}

func TestSeasonedSwapUsesLastFixing(t *testing.T) {
	t.Parallel()

	curve := testCurve(t)
	irs := testSwap(swap.PositionPay, 2.5)
	irs.Effective = date(2025, time.October, 15)
	irs.Maturity = date(2030, time.October, 15)
	irs.SettlementDate = date(2026, time.January, 15)

	implied, err := irs.FloatCashflows(curve)
	require.NoError(t, err)

	irs.LastFixing = 4.0
	fixed, err := irs.FloatCashflows(curve)
	require.NoError(t, err)

	require.Len(t, fixed, len(implied))
	assert.Equal(t, date(2026, time.April, 15), fixed[0].PayDate)
	assert.InDelta(t, 0.04*irs.Notional*182.0/360.0, fixed[0].Amount, 1e-6)
	assert.InDelta(t, implied[1].Amount, fixed[1].Amount, 1e-9)
}

func TestSwapValidation(t *testing.T) {
	t.Parallel()

	irs := testSwap("BUY", 2.5)
	_, err := irs.NPV(testCurve(t))
	require.ErrorIs(t, err, swap.ErrInvalidDirection)

	_, err = testSwap(swap.PositionPay, 2.5).NPV(nil)
	require.ErrorIs(t, err, swap.ErrNilCurve)
}

func TestFlatCurve(t *testing.T) {
	t.Parallel()

	ref := date(2026, time.January, 1)
	c := swap.FlatCurve{Reference: ref, Rate: 0.03}
	assert.Equal(t, 1.0, c.DF(ref.AddDate(0, 0, -5)))
	assert.InDelta(t, math.Exp(-0.03*2), c.DF(ref.AddDate(0, 0, 730)), 1e-12)
}
