package xva_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/quantlib/xva"
)

const (
	spot     = 100.0
	strike   = 100.0
	rate     = 0.05
	vol      = 0.2
	maturity = 1.0
)

func blackScholes(call bool) float64 {
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*maturity) / (vol * math.Sqrt(maturity))
	d2 := d1 - vol*math.Sqrt(maturity)
	n := distuv.UnitNormal
	if call {
		return spot*n.CDF(d1) - strike*math.Exp(-rate*maturity)*n.CDF(d2)
	}
	return strike*math.Exp(-rate*maturity)*n.CDF(-d2) - spot*n.CDF(-d1)
}

func solver(credit xva.CreditSpecification) xva.BurgardKjaer {
	credit.RiskFreeRate = rate
	return xva.BurgardKjaer{
		Asset: xva.TradeableAsset{
			Numeraire: xva.LogarithmicEvolver{Drift: rate, Volatility: vol},
			RepoRate:  rate,
		},
		Credit:  credit,
		Control: xva.DefaultPDEControl(),
	}
}

func TestBurgardKjaer_RiskFreeMatchesBlackScholes(t *testing.T) {
	t.Parallel()

	bk := solver(xva.CreditSpecification{})

	call, err := bk.Solve(xva.CallPayoff(strike), maturity, spot)
	require.NoError(t, err)
	assert.InDelta(t, blackScholes(true), call.RiskFreeEdge.Value, 0.03)
	assert.InDelta(t, 0.6368, call.RiskFreeEdge.Delta, 5e-3)
	assert.Greater(t, call.RiskFreeEdge.Gamma, 0.0)

	put, err := bk.Solve(xva.PutPayoff(strike), maturity, spot)
	require.NoError(t, err)
	assert.InDelta(t, blackScholes(false), put.RiskFreeEdge.Value, 0.03)
	assert.Less(t, put.RiskFreeEdge.Delta, 0.0)
}

func TestBurgardKjaer_ForwardIsLinear(t *testing.T) {
	t.Parallel()

	out, err := solver(xva.CreditSpecification{}).Solve(xva.ForwardPayoff(strike), maturity, spot)
	require.NoError(t, err)
	assert.InDelta(t, spot-strike*math.Exp(-rate*maturity), out.RiskFreeEdge.Value, 1e-3)
	assert.InDelta(t, 1, out.RiskFreeEdge.Delta, 1e-9)
	assert.InDelta(t, 0, out.RiskFreeEdge.Gamma, 1e-9)
}

func TestBurgardKjaer_NoDefaultRiskNoAdjustment(t *testing.T) {
	t.Parallel()

	out, err := solver(xva.CreditSpecification{BankRecovery: 0.4, CounterpartyRecovery: 0.4}).Solve(xva.CallPayoff(strike), maturity, spot)
	require.NoError(t, err)
	assert.InDelta(t, 0, out.XVA(), 1e-12)
	assert.Equal(t, out.RiskFree, out.Adjusted)
}

func TestBurgardKjaer_CounterpartyRiskRiskFreeCloseOut(t *testing.T) {
	t.Parallel()

	credit := xva.CreditSpecification{CounterpartyHazardRate: 0.05, CounterpartyRecovery: 0.4}
	out, err := solver(credit).Solve(xva.CallPayoff(strike), maturity, spot)
	require.NoError(t, err)

	// V̂ = V·(R_C + (1 − R_C)e^{−λ_C T}) for a payoff that stays positive.
	want := -(1 - 0.4) * (1 - math.Exp(-0.05*maturity))
	assert.Less(t, out.AdjustedEdge.Value, out.RiskFreeEdge.Value)
	assert.InEpsilon(t, want, out.XVA()/out.RiskFreeEdge.Value, 5e-3)
}

func TestBurgardKjaer_CounterpartyRiskRiskyCloseOut(t *testing.T) {
	t.Parallel()

	credit := xva.CreditSpecification{CounterpartyHazardRate: 0.05, CounterpartyRecovery: 0.4, CloseOut: xva.CloseOutRisky}
	out, err := solver(credit).Solve(xva.CallPayoff(strike), maturity, spot)
	require.NoError(t, err)

	// Risky close-out adds the loss rate (1 − R_C)λ_C to the discount rate.
	want := math.Exp(-(1-0.4)*0.05*maturity) - 1
	assert.InEpsilon(t, want, out.XVA()/out.RiskFreeEdge.Value, 5e-3)
}

func TestBurgardKjaer_FundingCost(t *testing.T) {
	t.Parallel()

	credit := xva.CreditSpecification{BankHazardRate: 0.03, BankRecovery: 0.4}
	require.InDelta(t, 0.018, credit.FundingSpread(), 1e-15)

	out, err := solver(credit).Solve(xva.CallPayoff(strike), maturity, spot)
	require.NoError(t, err)

	lb, sf := 0.03, 0.018
	f := lb/(lb+sf) + sf/(lb+sf)*math.Exp(-(lb+sf)*maturity)
	assert.InEpsilon(t, f-1, out.XVA()/out.RiskFreeEdge.Value, 5e-3)
}

func TestBurgardKjaer_Validation(t *testing.T) {
	t.Parallel()

	bk := solver(xva.CreditSpecification{})
	bk.Control = xva.PDEControl{SpotNodes: 1, SpotMultiple: 0.5, TimeSteps: -1}
	_, err := bk.Solve(xva.CallPayoff(strike), maturity, spot)
	require.Error(t, err)
	assert.ErrorContains(t, err, "spot nodes")
	assert.ErrorContains(t, err, "spot multiple")
	assert.ErrorContains(t, err, "time steps")

	bk = solver(xva.CreditSpecification{BankRecovery: 1.5, CounterpartyHazardRate: -1})
	_, err = bk.Solve(xva.CallPayoff(strike), maturity, spot)
	assert.ErrorContains(t, err, "bank recovery")
	assert.ErrorContains(t, err, "counterparty hazard rate")

	bk = solver(xva.CreditSpecification{})
	_, err = bk.Solve(nil, 0, spot)
	assert.ErrorContains(t, err, "payoff is required")
	assert.ErrorContains(t, err, "maturity must be positive")

	bk.Control.TimeSteps = 10
	_, err = bk.Solve(xva.CallPayoff(strike), maturity, spot)
	assert.ErrorIs(t, err, xva.ErrUnstableGrid)
}

func TestParseCloseOut(t *testing.T) {
	t.Parallel()

	c, err := xva.ParseCloseOut("risky")
	require.NoError(t, err)
	assert.Equal(t, xva.CloseOutRisky, c)
	assert.Equal(t, "risky", c.String())

	c, err = xva.ParseCloseOut("")
	require.NoError(t, err)
	assert.Equal(t, xva.CloseOutRiskFree, c)

	_, err = xva.ParseCloseOut("netted")
	assert.Error(t, err)
}

func TestParabolicDifferentialOperator_Apply(t *testing.T) {
	t.Parallel()

	op := xva.ParabolicDifferentialOperator{Underlier: xva.TradeableAsset{
		Numeraire:            xva.LogarithmicEvolver{Volatility: 0.2},
		RepoRate:             0.05,
		CashAccumulationRate: 0.02,
	}}
	got, err := op.Apply(xva.EdgeGreeks{Value: 7, Delta: 0.5, Gamma: 0.01}, 100)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got, 1e-12)

	_, err = op.Apply(xva.EdgeGreeks{}, math.NaN())
	assert.Error(t, err)
}

func TestLogarithmicEvolver(t *testing.T) {
	t.Parallel()

	e, err := xva.NewLogarithmicEvolver(0.06, 0.15)
	require.NoError(t, err)

	assert.InDelta(t, 9, e.Increment(100, 0.25, 1), 1e-12)
	assert.InDelta(t, 100*math.Exp(0.06-0.5*0.0225), e.Evolve(100, 1, 0), 1e-12)

	path := e.Path(1, 0.5, []float64{0, 0})
	require.Len(t, path, 3)
	assert.InDelta(t, math.Exp(0.06-0.5*0.0225), path[2], 1e-12)

	_, err = xva.NewLogarithmicEvolver(0, -0.1)
	assert.Error(t, err)
}

func burgardCorrelation() *mat.SymDense {
	return mat.NewSymDense(4, []float64{
		1.00, 0.20, 0.15, 0.05,
		0.20, 1.00, 0.13, 0.25,
		0.15, 0.13, 1.00, 0.00,
		0.05, 0.25, 0.00, 1.00,
	})
}

func TestGaussianJoint_Correlation(t *testing.T) {
	t.Parallel()

	draws, err := xva.GaussianJoint(20000, burgardCorrelation(), rand.NewPCG(17, 19))
	require.NoError(t, err)
	require.Len(t, draws, 20000)

	column := func(j int) []float64 {
		out := make([]float64, len(draws))
		for i, d := range draws {
			out[i] = d[j]
		}
		return out
	}
	assert.InDelta(t, 0.20, stat.Correlation(column(0), column(1), nil), 0.03)
	assert.InDelta(t, 0.25, stat.Correlation(column(1), column(3), nil), 0.03)
	assert.InDelta(t, 0.00, stat.Correlation(column(2), column(3), nil), 0.03)

	_, std := stat.MeanStdDev(column(2), nil)
	assert.InDelta(t, 1, std, 0.03)
}

func TestGaussianJoint_Rejects(t *testing.T) {
	t.Parallel()

	src := rand.NewPCG(1, 2)
	_, err := xva.GaussianJoint(0, burgardCorrelation(), src)
	assert.Error(t, err)

	notPD := mat.NewSymDense(3, []float64{
		1, 0.9, 0.9,
		0.9, 1, -0.9,
		0.9, -0.9, 1,
	})
	_, err = xva.GaussianJoint(10, notPD, src)
	assert.ErrorContains(t, err, "positive definite")

	scaled := mat.NewSymDense(2, []float64{2, 0, 0, 1})
	_, err = xva.GaussianJoint(10, scaled, src)
	assert.ErrorContains(t, err, "diagonal")
}

func TestNumeraireEvolution(t *testing.T) {
	t.Parallel()

	set := xva.NumeraireSet{
		Asset:        xva.LogarithmicEvolver{Drift: 0.06, Volatility: 0.15},
		Collateral:   xva.LogarithmicEvolver{Drift: 0.01, Volatility: 0.01},
		Bank:         xva.LogarithmicEvolver{Drift: 0.03, Volatility: 0.10},
		Counterparty: xva.LogarithmicEvolver{Drift: 0.04, Volatility: 0.12},
	}
	out, err := xva.NumeraireEvolution(set, [4]float64{1, 1, 1, 1}, burgardCorrelation(), 1, 24, rand.NewPCG(5, 8))
	require.NoError(t, err)

	require.Len(t, out.Times, 25)
	assert.Equal(t, 1.0, out.Times[24])
	for _, path := range [][]float64{out.Asset, out.Collateral, out.Bank, out.Counterparty} {
		require.Len(t, path, 25)
		assert.Equal(t, 1.0, path[0])
		for _, v := range path {
			assert.Greater(t, v, 0.0)
		}
	}

	_, err = xva.NumeraireEvolution(set, [4]float64{1, 0, 1, 1}, burgardCorrelation(), 1, 24, rand.NewPCG(5, 8))
	assert.Error(t, err)
	_, err = xva.NumeraireEvolution(set, [4]float64{1, 1, 1, 1}, mat.NewSymDense(2, nil), 1, 24, rand.NewPCG(5, 8))
	assert.Error(t, err)
}
